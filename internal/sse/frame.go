// Package sse implements the server-sent-event frame protocol used by the
// chat stream: records of the form "data: <json>\n\n" where the JSON payload
// is one of {"delta": string}, {"done": true} or {"error": string}.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// Frame is one discrete unit of the chat stream. Exactly one of the fields
// is meaningful: a text delta, the done marker, or an error message.
// Done and Error frames are terminal; no frame follows either.
type Frame struct {
	Delta string `json:"delta,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

func DeltaFrame(text string) Frame { return Frame{Delta: text} }
func DoneFrame() Frame             { return Frame{Done: true} }
func ErrorFrame(message string) Frame {
	return Frame{Error: message}
}

// Terminal reports whether no further frames may follow f in an exchange.
func (f Frame) Terminal() bool {
	return f.Done || f.Error != ""
}

// WriteFrame encodes f as a single event-stream record.
func WriteFrame(w io.Writer, f Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
