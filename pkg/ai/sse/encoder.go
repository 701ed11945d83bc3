package sse

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gin-contrib/sse"
)

// WriteChunk writes one reply fragment in the upstream frame shape,
// `data: {"response": chunk}`.
func WriteChunk(w io.Writer, chunk string) error {
	raw, err := json.Marshal(frame{Response: &chunk})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s %s\n\n", DATA_PREFIX, raw)
	return err
}

// WriteEvent writes a named event. v must be a struct, map or slice value so it
// is encoded as JSON.
func WriteEvent(w io.Writer, event string, v any) error {
	return sse.Encode(w, sse.Event{
		Event: event,
		Data:  v,
	})
}

func WriteDone(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s\n\n", DATA_PREFIX, DONE_SENTINEL)
	return err
}
