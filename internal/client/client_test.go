package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"officehub-backend/internal/history"
	"officehub-backend/internal/sse"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	hist := history.NewStore(filepath.Join(t.TempDir(), "history.json"))
	return New(server.URL, hist, opts...)
}

func streamHandler(frames ...sse.Frame) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ai_stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			sse.WriteFrame(w, f)
			flusher.Flush()
		}
	})
	return mux
}

func TestSend_AccumulatesDeltasInOrder(t *testing.T) {
	c := newTestClient(t, streamHandler(
		sse.DeltaFrame("Hi "),
		sse.DeltaFrame("there!"),
		sse.DoneFrame(),
	))

	var updates []string
	reply, err := c.Send(context.Background(), "Hello", func(text string) {
		updates = append(updates, text)
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if reply != "Hi there!" {
		t.Errorf("Expected 'Hi there!', got %q", reply)
	}
	if len(updates) != 2 || updates[0] != "Hi " || updates[1] != "Hi there!" {
		t.Errorf("Expected incremental renders of the accumulator, got %v", updates)
	}

	entries := c.History().Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected user + bot history entries, got %d", len(entries))
	}
	if entries[0].Type != history.EntryUser || entries[0].Content != "Hello" {
		t.Errorf("Unexpected user entry %+v", entries[0])
	}
	if entries[1].Type != history.EntryBot || entries[1].Content != "Hi there!" {
		t.Errorf("Unexpected bot entry %+v", entries[1])
	}
}

func TestSend_EmptyStreamFinalizesWithDefault(t *testing.T) {
	c := newTestClient(t, streamHandler(sse.DoneFrame()))

	reply, err := c.Send(context.Background(), "Hello", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply != "No response." {
		t.Errorf("Expected default reply, got %q", reply)
	}
}

func TestSend_StreamEndWithoutDoneStillFinalizes(t *testing.T) {
	c := newTestClient(t, streamHandler(sse.DeltaFrame("partial")))

	reply, err := c.Send(context.Background(), "Hello", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply != "partial" {
		t.Errorf("Expected accumulated text on EOF, got %q", reply)
	}
}

func TestSend_ErrorFrameRenderedAndFinalized(t *testing.T) {
	c := newTestClient(t, streamHandler(
		sse.DeltaFrame("partial "),
		sse.ErrorFrame("upstream down"),
	))

	var updates []string
	reply, err := c.Send(context.Background(), "Hello", func(text string) {
		updates = append(updates, text)
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	found := false
	for _, u := range updates {
		if u == "❌ upstream down" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected error rendered with marker, got %v", updates)
	}
	if reply != "partial " {
		t.Errorf("Expected finalize with accumulator, got %q", reply)
	}
}

func TestSend_FallsBackWhenStreamRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ai_stream", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/ai", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"reply":"full reply"}`)
	})

	c := newTestClient(t, mux)

	var updates []string
	reply, err := c.Send(context.Background(), "Hello", func(text string) {
		updates = append(updates, text)
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if reply != "full reply" {
		t.Errorf("Expected fallback reply, got %q", reply)
	}
	if len(updates) == 0 || !strings.Contains(updates[0], "falling back") {
		t.Errorf("Expected fallback notice first, got %v", updates)
	}

	entries := c.History().Entries()
	if len(entries) != 2 || entries[1].Content != "full reply" {
		t.Errorf("Expected fallback reply in history, got %+v", entries)
	}
}

func TestSend_FallsBackOnOpenTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ai_stream", func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel the request context; otherwise this blocks forever
		// and deadlocks the httptest server's Close in cleanup.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})
	mux.HandleFunc("/api/ai", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"reply":"slow path reply"}`)
	})

	c := newTestClient(t, mux, WithTimeout(50*time.Millisecond))

	reply, err := c.Send(context.Background(), "Hello", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply != "slow path reply" {
		t.Errorf("Expected fallback after timeout, got %q", reply)
	}
}

func TestSend_BothPathsDownRendersUnavailable(t *testing.T) {
	hist := history.NewStore(filepath.Join(t.TempDir(), "history.json"))
	c := New("http://127.0.0.1:1", hist)

	reply, err := c.Send(context.Background(), "Hello", nil)
	if err != nil {
		t.Fatalf("Send must degrade, not fail: %v", err)
	}
	if reply != "Assistant unavailable." {
		t.Errorf("Expected unavailable text, got %q", reply)
	}
}

func TestSend_EmptyMessageRejected(t *testing.T) {
	hist := history.NewStore(filepath.Join(t.TempDir(), "history.json"))
	c := New("http://127.0.0.1:1", hist)

	if _, err := c.Send(context.Background(), "   ", nil); err == nil {
		t.Error("Expected error for blank message")
	}
	if len(hist.Entries()) != 0 {
		t.Error("Blank message must not reach history")
	}
}
