// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pdiddy/docbench/internal/accel"
	"github.com/pdiddy/docbench/internal/options"
	"github.com/pdiddy/docbench/pkg/types"
)

// fakeConverter implements Converter for testing. It returns a canned
// document or an error, depending on configuration, and counts calls.
type fakeConverter struct {
	doc   *types.Document
	err   error
	calls int
}

func (f *fakeConverter) Convert(_ context.Context, _ Request) (*types.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func TestSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"report.pdf", true},
		{"slides.pptx", true},
		{"notes.md", true},
		{"scan.TIFF", true},
		{"page.xhtml", true},
		{"sheet.xlsx", true},
		{"photo.jpg", true},
		{"Report.PDF", true},
		{"archive.zip", false},
		{"binary.exe", false},
		{"noextension", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.path); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSupportedExtensionsAllAccepted(t *testing.T) {
	for _, ext := range SupportedExtensions() {
		if !Supported("document" + ext) {
			t.Errorf("extension %s listed but not accepted", ext)
		}
	}
}

func TestParseDocument_TwoStages(t *testing.T) {
	doc := &types.Document{ID: "d1", Filename: "report.pdf", Markdown: "# Report"}
	conv := &fakeConverter{doc: doc}

	var updates []Update
	got, err := ParseDocument(context.Background(), conv, Request{Path: "report.pdf"}, func(u Update) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != doc {
		t.Error("returned document should be the converter's document")
	}

	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2", len(updates))
	}
	if updates[0].Stage != StageParsing {
		t.Errorf("first stage = %q, want %q", updates[0].Stage, StageParsing)
	}
	if updates[0].Document != nil {
		t.Error("first update must not carry a document")
	}
	if updates[0].Message != "Parsing document..." {
		t.Errorf("first message = %q", updates[0].Message)
	}
	if updates[1].Stage != StageDone {
		t.Errorf("second stage = %q, want %q", updates[1].Stage, StageDone)
	}
	if updates[1].Document != doc {
		t.Error("done update must carry the converted document")
	}
	if updates[1].Message != "Done" {
		t.Errorf("second message = %q", updates[1].Message)
	}
}

func TestParseDocument_EngineFailure(t *testing.T) {
	cause := errors.New("engine crashed")
	conv := &fakeConverter{err: cause}

	var updates []Update
	doc, err := ParseDocument(context.Background(), conv, Request{Path: "report.pdf"}, func(u Update) {
		updates = append(updates, u)
	})
	if doc != nil {
		t.Error("failed parse must not return a document")
	}

	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("error = %T, want *ConversionError", err)
	}
	if convErr.Path != "report.pdf" {
		t.Errorf("Path = %q, want report.pdf", convErr.Path)
	}
	if !errors.Is(err, cause) {
		t.Error("ConversionError should unwrap to the engine error")
	}

	// Only the parsing update fires; done is never emitted on failure.
	if len(updates) != 1 || updates[0].Stage != StageParsing {
		t.Errorf("updates = %+v, want single parsing update", updates)
	}
}

func TestParseDocument_UnsupportedExtension(t *testing.T) {
	conv := &fakeConverter{doc: &types.Document{}}

	var updates []Update
	_, err := ParseDocument(context.Background(), conv, Request{Path: "malware.exe"}, func(u Update) {
		updates = append(updates, u)
	})
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("error = %v, want ErrUnsupportedFile", err)
	}
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("error = %T, want *ConversionError", err)
	}
	if conv.calls != 0 {
		t.Error("engine must not be called for unsupported files")
	}
	if len(updates) != 0 {
		t.Errorf("got %d updates, want none", len(updates))
	}
}

func TestParseDocument_NilNotify(t *testing.T) {
	doc := &types.Document{ID: "d2"}
	conv := &fakeConverter{doc: doc}

	got, err := ParseDocument(context.Background(), conv, Request{Path: "notes.md"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != doc {
		t.Error("document should be returned even without a notify callback")
	}
}

func TestConversionError(t *testing.T) {
	cause := errors.New("timeout")
	err := &ConversionError{Path: "/uploads/x/report.pdf", Err: cause}

	if !strings.Contains(err.Error(), "report.pdf") {
		t.Errorf("message %q should name the file", err.Error())
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("message %q should include the cause", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should expose the cause")
	}
}

func TestBatchResult(t *testing.T) {
	r := BatchResult{Converted: 3, Skipped: 1, Failed: 2}
	if r.Total() != 6 {
		t.Errorf("Total = %d, want 6", r.Total())
	}
	if !r.HasFailures() {
		t.Error("HasFailures should be true")
	}

	clean := BatchResult{Converted: 2}
	if clean.HasFailures() {
		t.Error("HasFailures should be false with no failures")
	}
}

// Parse requests carry options through untouched; exercised here to pin
// the Request surface used by backends.
func TestRequestCarriesOptions(t *testing.T) {
	opts, err := options.Build("Tesseract", options.Flags{CodeEnrichment: true}, accel.Accelerator{Device: accel.DeviceCPU})
	if err != nil {
		t.Fatal(err)
	}
	req := Request{Path: "doc.pdf", Options: opts}
	if req.Options.OCREngine != options.OCRTesseract {
		t.Errorf("OCREngine = %q, want tesseract", req.Options.OCREngine)
	}
	if !req.Options.CodeEnrichment {
		t.Error("CodeEnrichment flag lost")
	}
}
