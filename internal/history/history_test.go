// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docbench/pkg/types"
)

func newTestStore(t *testing.T, maxResults int) *Store {
	t.Helper()
	cfg := types.HistoryConfig{
		Path:       filepath.Join(t.TempDir(), "docbench.db"),
		MaxResults: maxResults,
	}
	s, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndRecent(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	rec := Record{
		Filename:   "report.pdf",
		OCREngine:  "easyocr",
		Enrichment: []string{"picture_classification", "picture_description"},
		Device:     "cuda",
		Status:     StatusDone,
		DurationMS: 4200,
		CreatedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	id, err := s.Add(ctx, rec)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == 0 {
		t.Error("ID should be assigned")
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}

	r := got[0]
	if r.ID != id {
		t.Errorf("ID = %d, want %d", r.ID, id)
	}
	if r.Filename != "report.pdf" || r.OCREngine != "easyocr" || r.Device != "cuda" {
		t.Errorf("fields lost: %+v", r)
	}
	if len(r.Enrichment) != 2 || r.Enrichment[0] != "picture_classification" {
		t.Errorf("Enrichment = %v", r.Enrichment)
	}
	if r.Status != StatusDone || r.Error != "" {
		t.Errorf("status = %q error = %q", r.Status, r.Error)
	}
	if r.DurationMS != 4200 {
		t.Errorf("DurationMS = %d", r.DurationMS)
	}
	if !r.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", r.CreatedAt, rec.CreatedAt)
	}
}

func TestAddFailedRecord(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	_, err := s.Add(ctx, Record{
		Filename:  "broken.pdf",
		OCREngine: "tesseract",
		Device:    "cpu",
		Status:    StatusFailed,
		Error:     "engine conversion failure: could not parse page 3",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if got[0].Status != StatusFailed {
		t.Errorf("Status = %q, want failed", got[0].Status)
	}
	if got[0].Error == "" {
		t.Error("failed record should keep its error text")
	}
	if got[0].Enrichment != nil && len(got[0].Enrichment) != 0 {
		t.Errorf("Enrichment = %v, want empty", got[0].Enrichment)
	}
}

func TestAddFillsCreatedAt(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	if _, err := s.Add(ctx, Record{Filename: "a.md", OCREngine: "easyocr", Status: StatusDone}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, should default to now", got[0].CreatedAt)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"first.pdf", "second.pdf", "third.pdf"} {
		_, err := s.Add(ctx, Record{
			Filename:  name,
			OCREngine: "easyocr",
			Status:    StatusDone,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Filename != "third.pdf" || got[1].Filename != "second.pdf" {
		t.Errorf("order wrong: %s, %s", got[0].Filename, got[1].Filename)
	}
}

func TestRecentDefaultLimit(t *testing.T) {
	s := newTestStore(t, 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Add(ctx, Record{Filename: "f.pdf", OCREngine: "easyocr", Status: StatusDone}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d records, want configured max of 2", len(got))
	}
}

func TestRecentEmptyStore(t *testing.T) {
	s := newTestStore(t, 0)

	got, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records, want none", len(got))
	}
}

func TestNewStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "docbench.db")
	s, err := NewStore(types.HistoryConfig{Path: path})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestExportYAML(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	for _, name := range []string{"a.pdf", "b.docx"} {
		if _, err := s.Add(ctx, Record{Filename: name, OCREngine: "rapidocr", Status: StatusDone}); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "export.yaml")
	if err := s.ExportYAML(ctx, path); err != nil {
		t.Fatalf("ExportYAML: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var records []Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		t.Fatalf("export is not valid YAML: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("exported %d records, want 2", len(records))
	}
	if records[0].Filename != "b.docx" {
		t.Errorf("newest record should export first, got %s", records[0].Filename)
	}
}

func TestExportJSON(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	if _, err := s.Add(ctx, Record{Filename: "a.pdf", OCREngine: "easyocr", Status: StatusFailed, Error: "boom"}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "export.json")
	if err := s.ExportJSON(ctx, path); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(records) != 1 || records[0].Error != "boom" {
		t.Errorf("records = %+v", records)
	}
}
