package sse

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	recordDelimiter = "\n\n"
	dataPrefix      = "data: "
)

// Decoder incrementally splits a byte stream into frames. Partial records
// (a frame split across reads) stay buffered until the rest arrives, so
// callers can feed whatever each network read returns. Malformed data lines
// are dropped silently and decoding continues with the next record.
type Decoder struct {
	buf bytes.Buffer
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends p to the internal buffer and returns every complete frame
// now available, in arrival order.
func (d *Decoder) Feed(p []byte) []Frame {
	d.buf.Write(p)

	var frames []Frame
	for {
		raw := d.buf.Bytes()
		idx := bytes.Index(raw, []byte(recordDelimiter))
		if idx < 0 {
			break
		}
		record := string(raw[:idx])
		d.buf.Next(idx + len(recordDelimiter))

		for _, line := range strings.Split(record, "\n") {
			line = strings.TrimSuffix(line, "\r")
			if !strings.HasPrefix(line, dataPrefix) {
				continue
			}
			var f Frame
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, dataPrefix)), &f); err != nil {
				continue
			}
			frames = append(frames, f)
		}
	}
	return frames
}
