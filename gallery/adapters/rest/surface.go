package rest

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"morty.dev/characters/gallery/core"
)

type surfaceOp struct {
	Op     string       `json:"op"`
	HTML   string       `json:"html,omitempty"`
	Card   *core.Card   `json:"card,omitempty"`
	Text   string       `json:"text,omitempty"`
	Result *resultReply `json:"result,omitempty"`
}

type resultReply struct {
	Kind     core.Kind `json:"kind"`
	Rendered int       `json:"rendered"`
}

// streamSurface writes surface operations as newline-delimited JSON and
// flushes after each one so cards show up as they are rendered.
type streamSurface struct {
	log     *slog.Logger
	tmpl    *template.Template
	enc     *json.Encoder
	flusher http.Flusher
	err     error
}

func newStreamSurface(log *slog.Logger, tmpl *template.Template, w http.ResponseWriter) *streamSurface {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	return &streamSurface{log: log, tmpl: tmpl, enc: json.NewEncoder(w), flusher: flusher}
}

func (s *streamSurface) write(op surfaceOp) {
	if s.err != nil {
		return
	}
	if err := s.enc.Encode(op); err != nil {
		s.err = err
		s.log.Debug("surface write failed", "op", op.Op, "error", err)
		return
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func (s *streamSurface) Clear() {
	s.write(surfaceOp{Op: "clear"})
}

func (s *streamSurface) Append(card core.Card) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "card.html", card); err != nil {
		s.log.Error("card render failed", "id", card.ID, "error", err)
		return
	}
	s.write(surfaceOp{Op: "card", HTML: buf.String(), Card: &card})
}

func (s *streamSurface) Message(text string) {
	s.write(surfaceOp{Op: "message", Text: text})
}

func (s *streamSurface) Done(res core.Result) {
	s.write(surfaceOp{Op: "done", Result: &resultReply{Kind: res.Kind, Rendered: res.Rendered}})
}
