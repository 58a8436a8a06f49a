// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert drives document conversion through a pluggable engine
// backend and reports parse progress in two stages.
package convert

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docbench/internal/options"
	"github.com/pdiddy/docbench/pkg/types"
)

// Converter turns an uploaded file into a converted Document. Different
// backends (docling-serve over HTTP, fakes in tests) implement this
// interface.
type Converter interface {
	// Convert parses the file named by req.Path with req.Options and
	// returns the converted document with all renditions populated.
	Convert(ctx context.Context, req Request) (*types.Document, error)
}

// Request names the file to convert and the engine options to convert
// it with.
type Request struct {
	Path    string
	Options options.Options
}

// ErrUnsupportedFile reports an upload whose extension is not in the
// supported set.
var ErrUnsupportedFile = errors.New("unsupported file type")

// supportedExtensions mirrors the upload filter in the browser UI. The
// engine accepts exactly these formats.
var supportedExtensions = map[string]bool{
	".pdf":   true,
	".docx":  true,
	".pptx":  true,
	".csv":   true,
	".md":    true,
	".png":   true,
	".jpg":   true,
	".tiff":  true,
	".bmp":   true,
	".html":  true,
	".xhtml": true,
	".xlsx":  true,
}

// SupportedExtensions returns the accepted upload extensions in a fixed
// order, each with its leading dot.
func SupportedExtensions() []string {
	return []string{
		".pdf", ".docx", ".pptx", ".csv", ".md", ".png",
		".jpg", ".tiff", ".bmp", ".html", ".xhtml", ".xlsx",
	}
}

// Supported reports whether the file at path has an accepted extension.
// The check is case-insensitive.
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// ConversionError wraps an engine failure for a specific file. The
// original document state is untouched when a parse ends with one.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Stage identifies a point in the parse lifecycle.
type Stage string

const (
	// StageParsing is emitted once, before the engine is called.
	StageParsing Stage = "parsing"
	// StageDone is emitted once, with the converted document attached.
	StageDone Stage = "done"
)

// Message returns the user-facing status line for the stage.
func (s Stage) Message() string {
	switch s {
	case StageParsing:
		return "Parsing document..."
	case StageDone:
		return "Done"
	}
	return string(s)
}

// Update is one progress signal from ParseDocument. Document is nil
// until StageDone.
type Update struct {
	Stage    Stage
	Message  string
	Document *types.Document
}

// ParseDocument converts a single file and reports progress through
// notify. A successful parse emits exactly two updates: StageParsing
// with a nil document, then StageDone carrying the converted document.
// A failed parse emits only the first update and returns a
// *ConversionError; no document is produced.
//
// Files with an unsupported extension fail the same way before the
// engine is called and before any update is emitted; the returned
// error unwraps to ErrUnsupportedFile. notify may be nil.
func ParseDocument(ctx context.Context, c Converter, req Request, notify func(Update)) (*types.Document, error) {
	if notify == nil {
		notify = func(Update) {}
	}

	if !Supported(req.Path) {
		return nil, &ConversionError{
			Path: req.Path,
			Err:  fmt.Errorf("%w: %q", ErrUnsupportedFile, filepath.Ext(req.Path)),
		}
	}

	notify(Update{Stage: StageParsing, Message: StageParsing.Message()})

	doc, err := c.Convert(ctx, req)
	if err != nil {
		return nil, &ConversionError{Path: req.Path, Err: err}
	}

	notify(Update{Stage: StageDone, Message: StageDone.Message(), Document: doc})
	return doc, nil
}

// BatchResult holds the outcome of converting a list of files.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int

	// Outcomes records each attempted conversion in input order,
	// excluding skipped files.
	Outcomes []Outcome
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any files failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}
