package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"officehub-backend/internal/client"
	"officehub-backend/internal/history"
)

var (
	serverURL      string
	timeoutSeconds int
	historyPath    string
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive office assistant chat",
	Long:  "Talks to the OfficeHub assistant backend, streaming replies as they are generated.",
	RunE:  runChat,
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "assistant backend base URL")
	rootCmd.Flags().IntVar(&timeoutSeconds, "timeout", 15, "seconds to wait for the stream to open before falling back")
	rootCmd.Flags().StringVar(&historyPath, "history", ".officechat_history.json", "conversation history file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	userColor := color.New(color.FgCyan, color.Bold)
	botColor := color.New(color.FgGreen)

	hist := history.NewStore(historyPath)
	c := client.New(serverURL, hist,
		client.WithTimeout(time.Duration(timeoutSeconds)*time.Second))

	// Replay previous conversation on open.
	for _, entry := range hist.Entries() {
		if entry.Type == history.EntryUser {
			userColor.Printf("you> ")
			fmt.Println(entry.Content)
		} else {
			botColor.Println(entry.Content)
		}
	}

	fmt.Println("Office assistant ready. /clear wipes history, /quit exits.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		userColor.Printf("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			if err := hist.Clear(); err != nil {
				return err
			}
			fmt.Println("🗑️ Conversation history has been cleared!")
			continue
		case "/history":
			for _, entry := range hist.Entries() {
				fmt.Printf("[%s] %s: %s\n", entry.Timestamp.Format("15:04"), entry.Type, entry.Content)
			}
			continue
		}

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " thinking..."
		s.Start()

		waiting := true
		printed := ""
		_, err := c.Send(context.Background(), line, func(text string) {
			if waiting {
				s.Stop()
				waiting = false
			}
			// Print only what grew; a notice replaces the line instead.
			if strings.HasPrefix(text, printed) {
				botColor.Print(text[len(printed):])
			} else {
				botColor.Printf("\n%s", text)
			}
			printed = text
		})
		if waiting {
			s.Stop()
		}
		fmt.Println()
		if err != nil {
			color.Red("error: %v", err)
		}
	}
	return scanner.Err()
}
