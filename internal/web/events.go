// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"
)

// streamEvent is one NDJSON line in a parse stream. Type is "status",
// "result", or "error".
type streamEvent struct {
	Type     string        `json:"type"`
	Stage    string        `json:"stage,omitempty"`
	Message  string        `json:"message,omitempty"`
	Document *documentMeta `json:"document,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// documentMeta is the client-facing summary of a converted document.
// Rendition bodies are fetched through the export endpoint, not
// streamed here.
type documentMeta struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ConvertedAt time.Time `json:"converted_at"`
	Formats     []string  `json:"formats"`
}

// eventWriter streams NDJSON events, flushing each line through to the
// client immediately.
type eventWriter struct {
	enc     *json.Encoder
	buf     *bufio.Writer
	flusher http.Flusher
	mu      sync.Mutex
}

func newEventWriter(w io.Writer) *eventWriter {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	e := &eventWriter{enc: enc, buf: buf}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

func (e *eventWriter) emit(ev streamEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.enc.Encode(ev)
	_ = e.buf.Flush()
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

func (e *eventWriter) Status(stage, message string) {
	e.emit(streamEvent{Type: "status", Stage: stage, Message: message})
}

func (e *eventWriter) Result(meta documentMeta, message string) {
	e.emit(streamEvent{Type: "result", Stage: "done", Message: message, Document: &meta})
}

func (e *eventWriter) Error(err error) {
	e.emit(streamEvent{Type: "error", Error: err.Error()})
}
