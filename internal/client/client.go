// Package client drives one chat exchange against the assistant service: it
// opens the streaming endpoint, decodes frames as they arrive, accumulates
// the reply, and falls back to the non-streaming endpoint when the stream
// cannot be opened in time.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"officehub-backend/internal/history"
	"officehub-backend/internal/models"
	"officehub-backend/internal/sse"
)

const (
	defaultTimeout  = 15 * time.Second
	emptyReply      = "No response."
	fallbackNotice  = "❌ Streaming failed; falling back to full reply..."
	unavailableText = "Assistant unavailable."
)

// UpdateFunc receives the full text of the in-progress reply bubble after
// every change: the growing accumulator during streaming, or a notice/error
// line when the exchange degrades.
type UpdateFunc func(text string)

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	history    *history.Store
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout bounds how long opening the stream may take before the client
// aborts the attempt and falls back.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

func New(baseURL string, hist *history.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		history:    hist,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) History() *history.Store {
	return c.history
}

// Send runs one exchange. The user message is appended to history up front;
// the bot entry is appended exactly once, when the exchange finalizes. Send
// degrades rather than fails: stream errors surface through onUpdate and the
// returned text, not as an error.
func (c *Client) Send(ctx context.Context, message string, onUpdate UpdateFunc) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}
	if onUpdate == nil {
		onUpdate = func(string) {}
	}

	if err := c.history.Append(history.EntryUser, message); err != nil {
		return "", err
	}

	// The timeout covers opening the stream only; once frames are flowing
	// the exchange runs to its terminal frame.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	timer := time.AfterFunc(c.timeout, cancel)

	resp, err := c.openStream(streamCtx, message)
	if err != nil {
		timer.Stop()
		return c.fallback(ctx, message, onUpdate)
	}
	timer.Stop()
	defer resp.Body.Close()

	return c.consumeStream(resp.Body, onUpdate)
}

func (c *Client) openStream(ctx context.Context, message string) (*http.Response, error) {
	payload, err := json.Marshal(models.ChatRequest{Message: message})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai_stream", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp, nil
}

// consumeStream reads the event stream to its end, rendering each delta as
// it lands. Malformed frames are dropped by the decoder; a mid-stream read
// error finalizes with whatever has accumulated.
func (c *Client) consumeStream(body io.Reader, onUpdate UpdateFunc) (string, error) {
	decoder := sse.NewDecoder()
	buf := make([]byte, 4096)
	var accumulated string

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, frame := range decoder.Feed(buf[:n]) {
				switch {
				case frame.Delta != "":
					accumulated += frame.Delta
					onUpdate(accumulated)
				case frame.Done:
					return c.finalize(accumulated)
				case frame.Error != "":
					onUpdate("❌ " + frame.Error)
				}
			}
		}
		if err != nil {
			return c.finalize(accumulated)
		}
	}
}

// fallback issues the one-shot request and renders its reply directly.
func (c *Client) fallback(ctx context.Context, message string, onUpdate UpdateFunc) (string, error) {
	onUpdate(fallbackNotice)

	reply, err := c.complete(ctx, message)
	if err != nil || reply == "" {
		reply = unavailableText
	}
	onUpdate(reply)
	return c.finalize(reply)
}

func (c *Client) complete(ctx context.Context, message string) (string, error) {
	payload, err := json.Marshal(models.ChatRequest{Message: message})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode reply: %w", err)
	}
	return chatResp.Reply, nil
}

// finalize appends the single bot history entry for this exchange.
func (c *Client) finalize(accumulated string) (string, error) {
	if accumulated == "" {
		accumulated = emptyReply
	}
	if err := c.history.Append(history.EntryBot, accumulated); err != nil {
		return accumulated, err
	}
	return accumulated, nil
}
