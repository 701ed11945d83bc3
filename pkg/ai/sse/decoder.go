package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
)

const (
	DATA_PREFIX   = "data:"
	DONE_SENTINEL = "[DONE]"
)

type frame struct {
	Response *string `json:"response"`
}

// Decoder turns raw event-stream bytes into reply fragments. Lines split across
// reads are buffered until their newline arrives. Frames that are not valid JSON
// are logged and skipped.
type Decoder struct {
	pending []byte
	reply   strings.Builder
	done    bool
	skipped int
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes one raw read and returns the fragments completed by it.
// Nothing is returned once the sentinel has been seen.
func (d *Decoder) Feed(p []byte) []string {
	if d.done {
		return nil
	}
	d.pending = append(d.pending, p...)

	var chunks []string
	for !d.done {
		idx := bytes.IndexByte(d.pending, '\n')
		if idx < 0 {
			break
		}
		line := string(d.pending[:idx])
		d.pending = d.pending[idx+1:]
		if chunk, ok := d.line(line); ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// Flush decodes a trailing line that was not newline terminated.
func (d *Decoder) Flush() []string {
	if d.done || len(d.pending) == 0 {
		return nil
	}
	line := string(d.pending)
	d.pending = nil
	if chunk, ok := d.line(line); ok {
		return []string{chunk}
	}
	return nil
}

func (d *Decoder) line(line string) (string, bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, DATA_PREFIX) {
		return "", false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, DATA_PREFIX))
	if payload == "" {
		return "", false
	}
	if payload == DONE_SENTINEL {
		d.done = true
		return "", false
	}

	var f frame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		d.skipped++
		slog.Warn("skip malformed stream frame", slog.String("component", "sse.Decoder"), slog.String("error", err.Error()))
		return "", false
	}
	if f.Response == nil || *f.Response == "" {
		return "", false
	}
	d.reply.WriteString(*f.Response)
	return *f.Response, true
}

// Done reports whether the sentinel was received.
func (d *Decoder) Done() bool {
	return d.done
}

// Reply is everything accumulated so far.
func (d *Decoder) Reply() string {
	return d.reply.String()
}

func (d *Decoder) Skipped() int {
	return d.skipped
}

// Consume reads body until the sentinel or EOF, handing every fragment to onChunk
// as soon as it is decoded. It returns the accumulated reply. A read error or an
// error from onChunk aborts the stream.
func Consume(ctx context.Context, body io.Reader, onChunk func(chunk string) error) (string, error) {
	d := NewDecoder()
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return d.Reply(), err
		}
		n, err := body.Read(buf)
		if n > 0 {
			for _, chunk := range d.Feed(buf[:n]) {
				if cbErr := onChunk(chunk); cbErr != nil {
					return d.Reply(), cbErr
				}
			}
			if d.Done() {
				return d.Reply(), nil
			}
		}
		if errors.Is(err, io.EOF) {
			for _, chunk := range d.Flush() {
				if cbErr := onChunk(chunk); cbErr != nil {
					return d.Reply(), cbErr
				}
			}
			return d.Reply(), nil
		}
		if err != nil {
			return d.Reply(), err
		}
	}
}
