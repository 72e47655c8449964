package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonathan/invoice-reconciler/internal/pipeline"
)

// Event names on the comparison stream
const (
	eventStep   = "step"
	eventResult = "result"
	eventError  = "error"
)

// SSEWriter writes a run's progress as Server-Sent Events. Each event carries an
// increasing id so clients can tell whether they missed one.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	nextID  int
}

// NewSSEWriter sets the stream headers on w
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w, flusher: flusher, nextID: 1}, nil
}

// WriteEvent sends data as JSON under the given event name
func (s *SSEWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}

	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.nextID, event, payload); err != nil {
		return err
	}
	s.nextID++
	s.flusher.Flush()
	return nil
}

// WriteStep sends a progress event without its content, which can be a whole payload
func (s *SSEWriter) WriteStep(ev pipeline.ProgressEvent) error {
	ev.Content = nil
	return s.WriteEvent(eventStep, ev)
}

// WriteResult sends the final run result
func (s *SSEWriter) WriteResult(result *pipeline.RunResult) error {
	return s.WriteEvent(eventResult, result)
}

// WriteError sends an error event with the status the error would map to
func (s *SSEWriter) WriteError(err error) {
	s.WriteEvent(eventError, map[string]any{"error": err.Error(), "status": HTTPStatus(err)}) //nolint:errcheck
}
