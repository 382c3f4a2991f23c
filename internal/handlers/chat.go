package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"officehub-backend/internal/models"
	"officehub-backend/internal/sse"
)

// chatService is the slice of the completion backend the handler needs.
type chatService interface {
	CompleteChat(ctx context.Context, message string) (string, error)
	StreamChat(ctx context.Context, message string) (<-chan string, <-chan error)
}

type ChatHandler struct {
	chat chatService
}

func NewChatHandler(chat chatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// parseMessage validates the request body. An empty result means a 400 was
// already written and no backend call may happen.
func (h *ChatHandler) parseMessage(w http.ResponseWriter, r *http.Request) string {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return ""
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", `A non-empty "message" field is required.`, r))
		return ""
	}
	return message
}

// Chat answers one exchange with a single full reply.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	message := h.parseMessage(w, r)
	if message == "" {
		return
	}

	reply, err := h.chat.CompleteChat(r.Context(), message)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}

// ChatStream answers one exchange as a live event stream: zero or more delta
// frames in reply order, then exactly one terminal frame (done or error).
// Once headers are sent every failure is reported in-stream, never as a
// status code.
func (h *ChatHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	message := h.parseMessage(w, r)
	if message == "" {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Streaming is not supported", r))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	deltas, errc := h.chat.StreamChat(ctx, message)

	for {
		select {
		case <-ctx.Done():
			// Client went away; stop relaying and drop further writes.
			return
		case delta, open := <-deltas:
			if !open {
				if err := <-errc; err != nil {
					log.Printf("chat stream failed: %v", err)
					h.emit(w, flusher, sse.ErrorFrame(streamErrorMessage(err)), r)
				} else {
					h.emit(w, flusher, sse.DoneFrame(), r)
				}
				return
			}
			if !h.emit(w, flusher, sse.DeltaFrame(delta), r) {
				return
			}
		}
	}
}

// emit writes one frame and flushes it to the transport. A false return means
// the transport is gone and the exchange is over.
func (h *ChatHandler) emit(w http.ResponseWriter, flusher http.Flusher, f sse.Frame, r *http.Request) bool {
	if err := sse.WriteFrame(w, f); err != nil {
		log.Printf("chat stream write failed (request %s): %v", r.Header.Get("X-Request-ID"), err)
		return false
	}
	flusher.Flush()
	return true
}
