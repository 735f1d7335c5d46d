package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
)

// sseSink relays engine stream events as server-sent events. One data line
// per fragment, then exactly one done or error line; ordering follows the
// call order, which the engine guarantees matches production order.
type sseSink struct {
	w     io.Writer
	flush func()
}

func (s *sseSink) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return err
	}
	if s.flush != nil {
		s.flush()
	}
	return nil
}

func (s *sseSink) Fragment(token, task string) error {
	return s.send(map[string]any{"token": token, "task": task})
}

func (s *sseSink) Done(sessionID string) error {
	return s.send(map[string]any{"done": true, "session_id": sessionID})
}

func (s *sseSink) Error(msg string) error {
	return s.send(map[string]any{"error": msg})
}
