// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package web serves the browser UI: upload a document, configure the
// engine, parse, and export or save the result.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/pdiddy/docbench/internal/accel"
	"github.com/pdiddy/docbench/internal/convert"
	"github.com/pdiddy/docbench/internal/history"
	"github.com/pdiddy/docbench/pkg/types"
)

//go:embed templates static
var assets embed.FS

const (
	sessionCookie        = "docbench_session"
	sessionSweepInterval = 5 * time.Minute
	defaultMaxUploadMB   = 64
)

// healthChecker is implemented by converters that can probe the engine.
type healthChecker interface {
	Healthz(ctx context.Context) error
}

// Server is the browser UI server. History may be nil, which disables
// conversion logging but nothing else.
type Server struct {
	cfg       types.ServerConfig
	log       *zap.Logger
	converter convert.Converter
	acc       accel.Accelerator
	history   *history.Store
	sessions  *sessionStore
	markdown  goldmark.Markdown
	tmpl      *template.Template
	mux       *http.ServeMux
}

// NewServer wires the UI server. log may be nil in tests.
func NewServer(cfg types.ServerConfig, conv convert.Converter, acc accel.Accelerator, hist *history.Store, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	tmpl, err := template.ParseFS(assets, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		log:       log,
		converter: conv,
		acc:       acc,
		history:   hist,
		sessions:  newSessionStore(cfg.SessionTTL),
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		tmpl:      tmpl,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.Handle("GET /static/", http.FileServerFS(assets))

	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("POST /api/parse", s.handleParse)
	s.mux.HandleFunc("POST /api/export", s.handleExport)
	s.mux.HandleFunc("POST /api/save", s.handleSave)
	s.mux.HandleFunc("GET /api/preview", s.handlePreview)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)

	s.mux.HandleFunc("GET /files/{name}", s.handleFile)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves the UI until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{Addr: addr, Handler: s.mux}

	s.sessions.start(sessionSweepInterval, s.cleanupUploads)
	defer s.sessions.close()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("serving UI", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down UI server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("UI server: %w", err)
		}
		return nil
	}
}

// cleanupUploads removes upload files left behind by evicted sessions,
// then their per-session directories when empty.
func (s *Server) cleanupUploads(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.log.Warn("removing expired upload", zap.String("path", p), zap.Error(err))
			continue
		}
		os.Remove(filepath.Dir(p))
		s.log.Info("evicted idle session upload", zap.String("path", p))
	}
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = defaultMaxUploadMB
	}
	return mb << 20
}

// ensureSession resolves the request's session cookie, creating a new
// session (and cookie) when absent or expired.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) *session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.lookup(c.Value); ok {
			return sess
		}
	}

	sess := s.sessions.create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}
