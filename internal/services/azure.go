package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"officehub-backend/internal/models"
)

// systemPrompt is prepended to every exchange.
const systemPrompt = "You are a helpful AI assistant for an Office Management System. " +
	"Help users with coffee machine status, temperature monitoring, employee presence, " +
	"stock management and dashboard metrics. Be helpful, concise and friendly."

const (
	maxTokens   = 300
	temperature = 0.3
)

// BackendError is a failed call to the completion backend. Status carries the
// upstream HTTP status when known, 502 otherwise.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

// AzureService wraps an Azure OpenAI chat-completion deployment. It is built
// once at startup and shared across requests; every call is stateless, so
// concurrent use is safe.
type AzureService struct {
	endpoint   string
	deployment string
	apiVersion string
	apiKey     string

	httpClient *http.Client

	// Degraded-mode streaming: when real streaming is disabled or fails to
	// open, the full reply is split into word groups and delivered with a
	// small delay to simulate incremental output. This is a UX simulation,
	// not a real streaming guarantee.
	streamingEnabled bool
	simulateDelay    time.Duration
	chunker          WordChunker
}

type Option func(*AzureService)

func WithHTTPClient(c *http.Client) Option {
	return func(s *AzureService) { s.httpClient = c }
}

// WithStreamingDisabled forces the simulated word-chunked delivery even when
// the backend supports real streaming.
func WithStreamingDisabled() Option {
	return func(s *AzureService) { s.streamingEnabled = false }
}

func WithSimulateDelay(d time.Duration) Option {
	return func(s *AzureService) { s.simulateDelay = d }
}

func NewAzureService(endpoint, deployment, apiVersion, apiKey string, opts ...Option) (*AzureService, error) {
	if endpoint == "" || deployment == "" || apiKey == "" {
		return nil, fmt.Errorf("azure service requires endpoint, deployment and api key")
	}

	s := &AzureService{
		endpoint:         strings.TrimRight(endpoint, "/"),
		deployment:       deployment,
		apiVersion:       apiVersion,
		apiKey:           apiKey,
		httpClient:       &http.Client{Timeout: 2 * time.Minute},
		streamingEnabled: true,
		simulateDelay:    40 * time.Millisecond,
		chunker:          WordChunker{CharLimit: 40},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type chatCompletionRequest struct {
	Messages    []models.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
	Stream      bool                 `json:"stream,omitempty"`
}

type chatCompletionChoice struct {
	Message models.ChatMessage `json:"message"`
	Delta   models.ChatMessage `json:"delta"`
}

type chatCompletionResponse struct {
	Choices []chatCompletionChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *AzureService) completionURL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		s.endpoint, s.deployment, s.apiVersion)
}

func (s *AzureService) newRequest(ctx context.Context, message string, stream bool) (*http.Request, error) {
	body := chatCompletionRequest{
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: systemPrompt},
			{Role: models.RoleUser, Content: message},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      stream,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.completionURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

// CompleteChat sends the system prompt plus the user message and waits for
// the full completion. One attempt, no retry.
func (s *AzureService) CompleteChat(ctx context.Context, message string) (string, error) {
	req, err := s.newRequest(ctx, message, false)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &BackendError{Status: http.StatusBadGateway, Message: fmt.Sprintf("Azure OpenAI request failed: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &BackendError{Status: http.StatusBadGateway, Message: fmt.Sprintf("failed to read Azure OpenAI response: %v", err)}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil && resp.StatusCode < 300 {
		return "", &BackendError{Status: http.StatusBadGateway, Message: "Azure OpenAI returned an unreadable response."}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("Azure OpenAI request failed with status %d", resp.StatusCode)
		if completion.Error != nil && completion.Error.Message != "" {
			msg = completion.Error.Message
		}
		return "", &BackendError{Status: resp.StatusCode, Message: msg}
	}

	if len(completion.Choices) == 0 {
		return "", &BackendError{Status: http.StatusBadGateway, Message: "Azure OpenAI returned an empty response."}
	}
	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	if reply == "" {
		return "", &BackendError{Status: http.StatusBadGateway, Message: "Azure OpenAI returned an empty response."}
	}
	return reply, nil
}

// StreamChat delivers the assistant reply incrementally. With streaming
// enabled it forwards each upstream delta as received; otherwise, or when the
// upstream stream cannot be opened, it degrades to CompleteChat plus
// simulated word-chunked delivery. Exactly one value is ever sent on the
// error channel, and only after no more deltas will follow.
func (s *AzureService) StreamChat(ctx context.Context, message string) (<-chan string, <-chan error) {
	deltas := make(chan string, 8)
	errc := make(chan error, 1)

	go func() {
		defer close(deltas)
		defer close(errc)

		if !s.streamingEnabled {
			s.simulateStream(ctx, message, deltas, errc)
			return
		}

		req, err := s.newRequest(ctx, message, true)
		if err != nil {
			errc <- err
			return
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			log.Printf("Azure streaming unavailable, using simulated delivery: %v", err)
			s.simulateStream(ctx, message, deltas, errc)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			var failure chatCompletionResponse
			msg := fmt.Sprintf("Azure OpenAI request failed with status %d", resp.StatusCode)
			if json.Unmarshal(raw, &failure) == nil && failure.Error != nil && failure.Error.Message != "" {
				msg = failure.Error.Message
			}
			errc <- &BackendError{Status: resp.StatusCode, Message: msg}
			return
		}

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					errc <- &BackendError{Status: http.StatusBadGateway, Message: fmt.Sprintf("Azure OpenAI stream broke: %v", err)}
				}
				return
			}

			line = strings.TrimRight(line, "\r\n")
			if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var chunk chatCompletionResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case deltas <- chunk.Choices[0].Delta.Content:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return deltas, errc
}

// simulateStream fetches the whole reply and replays it in word groups.
func (s *AzureService) simulateStream(ctx context.Context, message string, deltas chan<- string, errc chan<- error) {
	reply, err := s.CompleteChat(ctx, message)
	if err != nil {
		errc <- err
		return
	}

	for _, chunk := range s.chunker.Split(reply) {
		select {
		case deltas <- chunk:
		case <-ctx.Done():
			errc <- ctx.Err()
			return
		}
		if s.simulateDelay > 0 {
			select {
			case <-time.After(s.simulateDelay):
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}
}
