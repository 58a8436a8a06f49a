// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export projects a converted document into its output formats
// and persists the result to disk. Projections are pure: the same
// document and format always yield byte-identical output.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docbench/pkg/types"
)

// Format is an output format tag. The tag doubles as the file extension
// for persisted results.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatText     Format = "txt"
)

// ErrUnknownFormat reports a format tag outside the supported set.
var ErrUnknownFormat = errors.New("unknown export format")

var formatTags = map[string]Format{
	"html":     FormatHTML,
	"md":       FormatMarkdown,
	"markdown": FormatMarkdown,
	"json":     FormatJSON,
	"txt":      FormatText,
	"text":     FormatText,
}

// Formats returns the supported formats in display order.
func Formats() []Format {
	return []Format{FormatHTML, FormatMarkdown, FormatJSON, FormatText}
}

// ParseFormat resolves a format tag or its common alias ("markdown",
// "text"). Matching is case-insensitive.
func ParseFormat(tag string) (Format, error) {
	if f, ok := formatTags[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, tag)
}

// Filename returns the fixed output name for persisted results,
// doc.<tag>.
func (f Format) Filename() string {
	return "doc." + string(f)
}

// ContentType returns the MIME type served for this format.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// Result is one projection of a document. Text is the serialized
// content shown to the user and written to disk. Data carries the
// structured mapping for JSON exports and is nil otherwise.
type Result struct {
	Format Format
	Text   string
	Data   json.RawMessage
}

// Export projects doc into the requested format. HTML, Markdown and
// text are returned verbatim from the document's renditions; JSON is
// re-indented with four spaces, preserving the engine's key order and
// values exactly.
func Export(doc *types.Document, f Format) (Result, error) {
	if doc == nil {
		return Result{}, errors.New("no document to export")
	}

	switch f {
	case FormatHTML:
		return Result{Format: f, Text: doc.HTML}, nil
	case FormatMarkdown:
		return Result{Format: f, Text: doc.Markdown}, nil
	case FormatText:
		return Result{Format: f, Text: doc.Text}, nil
	case FormatJSON:
		if len(doc.JSON) == 0 {
			return Result{}, errors.New("document has no JSON rendition")
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, doc.JSON, "", "    "); err != nil {
			return Result{}, fmt.Errorf("formatting JSON rendition: %w", err)
		}
		return Result{Format: f, Text: buf.String(), Data: doc.JSON}, nil
	}

	return Result{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteFile persists res as doc.<tag> under dir, creating dir if
// needed, and returns the written path. Existing files are overwritten.
func WriteFile(dir string, res Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, res.Format.Filename())
	if err := os.WriteFile(path, []byte(res.Text), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
