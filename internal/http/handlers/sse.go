package handlers

import (
	"encoding/json"
	"net/http"
)

const sseDone = "data: [DONE]\n\n"

// eventStream writes server-sent events and flushes after each one.
type eventStream struct {
	w     http.ResponseWriter
	flush http.Flusher
}

// openEventStream commits the 200 status and stream headers. It reports false,
// leaving the response untouched, when w cannot flush.
func openEventStream(w http.ResponseWriter) (*eventStream, bool) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &eventStream{w: w, flush: f}, true
}

// Send encodes payload as a single JSON data line under the named event.
func (s *eventStream) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	buf := make([]byte, 0, len(event)+len(data)+16)
	if event != "" {
		buf = append(buf, "event: "...)
		buf = append(buf, event...)
		buf = append(buf, '\n')
	}
	buf = append(buf, "data: "...)
	buf = append(buf, data...)
	buf = append(buf, '\n', '\n')
	if _, err := s.w.Write(buf); err != nil {
		return err
	}
	s.flush.Flush()
	return nil
}

// Done writes the terminal sentinel.
func (s *eventStream) Done() {
	_, _ = s.w.Write([]byte(sseDone))
	s.flush.Flush()
}
