package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"officehub-backend/internal/models"
	"officehub-backend/internal/services"
	"officehub-backend/internal/sse"
)

// stubChat counts calls so tests can assert the backend was never reached.
type stubChat struct {
	completeCalls int
	streamCalls   int
	reply         string
	err           error
	deltas        []string
	streamErr     error
}

func (s *stubChat) CompleteChat(ctx context.Context, message string) (string, error) {
	s.completeCalls++
	return s.reply, s.err
}

func (s *stubChat) StreamChat(ctx context.Context, message string) (<-chan string, <-chan error) {
	s.streamCalls++
	deltas := make(chan string, len(s.deltas))
	errc := make(chan error, 1)
	for _, d := range s.deltas {
		deltas <- d
	}
	if s.streamErr != nil {
		errc <- s.streamErr
	}
	close(deltas)
	close(errc)
	return deltas, errc
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ai", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestChat_BlankMessageRejectedBeforeBackend(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty message", `{"message":""}`},
		{"whitespace message", `{"message":"   "}`},
		{"missing field", `{}`},
		{"invalid body", `not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubChat{reply: "should not be used"}
			h := NewChatHandler(stub)

			for _, endpoint := range []http.HandlerFunc{h.Chat, h.ChatStream} {
				rr := postJSON(t, endpoint, tc.body)
				if rr.Code != http.StatusBadRequest {
					t.Errorf("Expected 400, got %d", rr.Code)
				}
			}
			if stub.completeCalls != 0 || stub.streamCalls != 0 {
				t.Errorf("Backend must not be called for invalid input (complete=%d stream=%d)",
					stub.completeCalls, stub.streamCalls)
			}
		})
	}
}

func TestChat_Success(t *testing.T) {
	stub := &stubChat{reply: "Hi there!"}
	h := NewChatHandler(stub)

	rr := postJSON(t, h.Chat, `{"message":"Hello"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Reply != "Hi there!" {
		t.Errorf("Expected reply 'Hi there!', got %q", resp.Reply)
	}
	if stub.completeCalls != 1 {
		t.Errorf("Expected exactly one backend call, got %d", stub.completeCalls)
	}
}

func TestChat_BackendErrorStatusPropagated(t *testing.T) {
	stub := &stubChat{err: &services.BackendError{Status: http.StatusBadGateway, Message: "Azure OpenAI returned an empty response."}}
	h := NewChatHandler(stub)

	rr := postJSON(t, h.Chat, `{"message":"Hello"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error == "" {
		t.Error("Expected error message in response")
	}
}

func TestChat_UnknownErrorIsGeneric(t *testing.T) {
	stub := &stubChat{err: context.DeadlineExceeded}
	h := NewChatHandler(stub)

	rr := postJSON(t, h.Chat, `{"message":"Hello"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if strings.Contains(resp.Error, "deadline") {
		t.Errorf("Internal detail leaked to client: %q", resp.Error)
	}
}

func decodeFrames(t *testing.T, body []byte) []sse.Frame {
	t.Helper()
	return sse.NewDecoder().Feed(body)
}

func TestChatStream_DeltasThenDone(t *testing.T) {
	stub := &stubChat{deltas: []string{"Hi ", "there!"}}
	h := NewChatHandler(stub)

	rr := postJSON(t, h.ChatStream, `{"message":"Hello"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %q", ct)
	}

	frames := decodeFrames(t, rr.Body.Bytes())
	if len(frames) != 3 {
		t.Fatalf("Expected 3 frames, got %d: %+v", len(frames), frames)
	}

	concat := frames[0].Delta + frames[1].Delta
	if concat != "Hi there!" {
		t.Errorf("Delta order broken: %q", concat)
	}
	if !frames[2].Done {
		t.Errorf("Expected done frame last, got %+v", frames[2])
	}
	for _, f := range frames[:2] {
		if f.Terminal() {
			t.Errorf("Terminal frame before the last: %+v", f)
		}
	}
}

func TestChatStream_ErrorFrameWithoutDone(t *testing.T) {
	stub := &stubChat{streamErr: &services.BackendError{Status: http.StatusBadGateway, Message: "Azure OpenAI returned an empty response."}}
	h := NewChatHandler(stub)

	rr := postJSON(t, h.ChatStream, `{"message":"Hello"}`)
	frames := decodeFrames(t, rr.Body.Bytes())

	if len(frames) != 1 {
		t.Fatalf("Expected exactly one frame, got %d: %+v", len(frames), frames)
	}
	if frames[0].Error == "" {
		t.Errorf("Expected error frame, got %+v", frames[0])
	}
	if frames[0].Done {
		t.Error("No done frame may follow an error")
	}
}

func TestChatStream_DeltasBeforeError(t *testing.T) {
	stub := &stubChat{
		deltas:    []string{"partial "},
		streamErr: &services.BackendError{Status: http.StatusBadGateway, Message: "stream broke"},
	}
	h := NewChatHandler(stub)

	rr := postJSON(t, h.ChatStream, `{"message":"Hello"}`)
	frames := decodeFrames(t, rr.Body.Bytes())

	if len(frames) != 2 {
		t.Fatalf("Expected delta then error, got %+v", frames)
	}
	if frames[0].Delta != "partial " {
		t.Errorf("Expected delta first, got %+v", frames[0])
	}
	if frames[1].Error == "" {
		t.Errorf("Expected terminal error frame, got %+v", frames[1])
	}
}
