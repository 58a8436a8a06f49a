// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/docbench/internal/convert"
	"github.com/pdiddy/docbench/internal/export"
	"github.com/pdiddy/docbench/internal/history"
	"github.com/pdiddy/docbench/internal/options"
	"github.com/pdiddy/docbench/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// indexData feeds the single-page template.
type indexData struct {
	Engines     []string
	Formats     []export.Format
	Extensions  string
	Device      string
	Flash       bool
	MaxUploadMB int64
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.ensureSession(w, r)

	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = defaultMaxUploadMB
	}
	data := indexData{
		Engines:     options.OCREngineKeys(),
		Formats:     export.Formats(),
		Extensions:  strings.Join(convert.SupportedExtensions(), ","),
		Device:      string(s.acc.Device),
		Flash:       s.acc.FlashAttention,
		MaxUploadMB: mb,
	}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.log.Error("rendering index", zap.Error(err))
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := s.ensureSession(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("reading upload: %v", err))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !convert.Supported(name) {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf(
			"unsupported file type %q; accepted: %s",
			filepath.Ext(name), strings.Join(convert.SupportedExtensions(), " ")))
		return
	}

	dir := filepath.Join(s.cfg.UploadDir, sess.id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		jsonError(w, http.StatusInternalServerError, fmt.Sprintf("staging upload: %v", err))
		return
	}

	dest := filepath.Join(dir, name)
	out, err := os.Create(dest)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, fmt.Sprintf("staging upload: %v", err))
		return
	}
	size, err := io.Copy(out, file)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		jsonError(w, http.StatusInternalServerError, fmt.Sprintf("staging upload: %v", err))
		return
	}

	// Each session holds one staged upload at a time.
	if prior := sess.setUpload(dest); prior != "" && prior != dest {
		os.Remove(prior)
	}

	s.log.Info("upload staged",
		zap.String("session", sess.id),
		zap.String("file", name),
		zap.Int64("bytes", size))
	writeJSON(w, http.StatusOK, map[string]any{"filename": name, "size": size})
}

type parseRequest struct {
	OCREngine             string `json:"ocr_engine"`
	CodeEnrichment        bool   `json:"code_enrichment"`
	FormulaEnrichment     bool   `json:"formula_enrichment"`
	PictureClassification bool   `json:"picture_classification"`
	PictureDescription    bool   `json:"picture_description"`
}

// handleParse converts the session's staged upload and streams NDJSON
// progress: a status event when parsing starts, then a result event
// with the document summary, or an error event. A failed parse leaves
// the previously parsed document in place.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	sess := s.ensureSession(w, r)

	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("decoding parse request: %v", err))
		return
	}

	upload := sess.uploadPath()
	if upload == "" {
		jsonError(w, http.StatusConflict, "upload a document first")
		return
	}

	opts, err := options.Build(req.OCREngine, options.Flags{
		CodeEnrichment:        req.CodeEnrichment,
		FormulaEnrichment:     req.FormulaEnrichment,
		PictureClassification: req.PictureClassification,
		PictureDescription:    req.PictureDescription,
	}, s.acc)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !sess.beginParse() {
		jsonError(w, http.StatusConflict, "a parse is already running for this session")
		return
	}
	defer sess.endParse()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	events := newEventWriter(w)

	start := time.Now()
	_, err = convert.ParseDocument(r.Context(), s.converter, convert.Request{Path: upload, Options: opts},
		func(u convert.Update) {
			switch u.Stage {
			case convert.StageParsing:
				events.Status(string(u.Stage), u.Message)
			case convert.StageDone:
				sess.setDocument(u.Document)
				events.Result(documentMetaFor(u.Document), u.Message)
			}
		})
	took := time.Since(start)

	rec := history.Record{
		Filename:   filepath.Base(upload),
		OCREngine:  string(opts.OCREngine),
		Enrichment: opts.EnabledEnrichments(),
		Device:     string(opts.Accelerator.Device),
		DurationMS: took.Milliseconds(),
	}

	if err != nil {
		events.Error(err)
		rec.Status = history.StatusFailed
		rec.Error = err.Error()
		s.log.Warn("parse failed",
			zap.String("session", sess.id),
			zap.String("file", rec.Filename),
			zap.Error(err))
	} else {
		rec.Status = history.StatusDone
		s.log.Info("parse done",
			zap.String("session", sess.id),
			zap.String("file", rec.Filename),
			zap.Duration("took", took))
	}
	s.record(r, rec)
}

func documentMetaFor(doc *types.Document) documentMeta {
	formats := make([]string, 0, len(export.Formats()))
	for _, f := range export.Formats() {
		formats = append(formats, string(f))
	}
	return documentMeta{
		ID:          doc.ID,
		Filename:    doc.Filename,
		ConvertedAt: doc.ConvertedAt,
		Formats:     formats,
	}
}

func (s *Server) record(r *http.Request, rec history.Record) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Add(r.Context(), rec); err != nil {
		s.log.Warn("recording conversion history", zap.Error(err))
	}
}

type exportRequest struct {
	Format string `json:"format"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := s.ensureSession(w, r)

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("decoding export request: %v", err))
		return
	}

	doc := sess.document()
	if doc == nil {
		jsonError(w, http.StatusConflict, "no parsed document; parse a document first")
		return
	}

	f, err := export.ParseFormat(req.Format)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := export.Export(doc, f)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess.setLastExport(res)

	writeJSON(w, http.StatusOK, map[string]string{
		"format":  string(res.Format),
		"content": res.Text,
	})
}

type saveRequest struct {
	Format string `json:"format"`
}

// handleSave persists an export to the output directory as doc.<tag>.
// With an explicit format it re-exports the current document; without
// one it writes the most recent export. Write failures surface as
// status text, never as a crash.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess := s.ensureSession(w, r)

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("decoding save request: %v", err))
		return
	}

	var res export.Result
	if req.Format != "" {
		doc := sess.document()
		if doc == nil {
			jsonError(w, http.StatusConflict, "no parsed document; parse a document first")
			return
		}
		f, err := export.ParseFormat(req.Format)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err = export.Export(doc, f)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sess.setLastExport(res)
	} else {
		var ok bool
		res, ok = sess.exportResult()
		if !ok {
			jsonError(w, http.StatusConflict, "export a format first")
			return
		}
	}

	path, err := export.WriteFile(s.cfg.OutputDir, res)
	if err != nil {
		s.log.Error("saving export", zap.String("format", string(res.Format)), zap.Error(err))
		jsonError(w, http.StatusInternalServerError, fmt.Sprintf("saving file: %v", err))
		return
	}

	s.log.Info("export saved", zap.String("session", sess.id), zap.String("path", path))
	writeJSON(w, http.StatusOK, map[string]string{
		"filename": res.Format.Filename(),
		"path":     path,
		"message":  "Saved " + res.Format.Filename(),
	})
}

// handlePreview renders the document's Markdown rendition to HTML for
// the in-page preview pane.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess := s.ensureSession(w, r)

	doc := sess.document()
	if doc == nil {
		jsonError(w, http.StatusConflict, "no parsed document; parse a document first")
		return
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(doc.Markdown), &buf); err != nil {
		jsonError(w, http.StatusInternalServerError, fmt.Sprintf("rendering preview: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": buf.String()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false, "records": []history.Record{}})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, fmt.Sprintf("reading history: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "records": records})
}

// handleFile serves a previously saved doc.<tag> from the output
// directory. Only the four known output names are reachable.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var format export.Format
	found := false
	for _, f := range export.Formats() {
		if f.Filename() == name {
			format, found = f, true
			break
		}
	}
	if !found {
		jsonError(w, http.StatusNotFound, "unknown file")
		return
	}

	path := filepath.Join(s.cfg.OutputDir, format.Filename())
	if _, err := os.Stat(path); err != nil {
		jsonError(w, http.StatusNotFound, "file not saved yet")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	engine := "unknown"
	if hc, ok := s.converter.(healthChecker); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := hc.Healthz(ctx); err != nil {
			engine = "down"
		} else {
			engine = "up"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "engine": engine})
}
