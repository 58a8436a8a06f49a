// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/pdiddy/docbench/internal/export"
	"github.com/pdiddy/docbench/internal/options"
	"github.com/pdiddy/docbench/pkg/types"
)

// Outcome describes one file's conversion attempt. Skipped files carry
// no Outcome; they never reach the engine.
type Outcome struct {
	Path     string
	Document *types.Document
	Err      error
	Took     time.Duration
}

// ConvertBatch converts each file and writes doc.<tag> to outputDir for
// every requested format, overwriting previous exports. Files with
// unsupported extensions are skipped. Progress lines go to w.
func ConvertBatch(ctx context.Context, c Converter, paths []string, opts options.Options, formats []export.Format, outputDir string, w io.Writer) BatchResult {
	var result BatchResult
	for _, path := range paths {
		name := filepath.Base(path)

		if !Supported(path) {
			fmt.Fprintf(w, "skipped: %s (unsupported file type)\n", name)
			result.Skipped++
			continue
		}

		fmt.Fprintf(w, "converting: %s\n", name)
		start := time.Now()
		doc, err := ParseDocument(ctx, c, Request{Path: path, Options: opts}, func(u Update) {
			fmt.Fprintf(w, "  %s\n", u.Message)
		})
		took := time.Since(start)
		result.Outcomes = append(result.Outcomes, Outcome{Path: path, Document: doc, Err: err, Took: took})

		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
			result.Failed++
			continue
		}

		if exportErr := writeFormats(doc, formats, outputDir, w); exportErr != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", name, exportErr)
			result.Failed++
			continue
		}
		result.Converted++
	}

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

func writeFormats(doc *types.Document, formats []export.Format, outputDir string, w io.Writer) error {
	for _, f := range formats {
		res, err := export.Export(doc, f)
		if err != nil {
			return err
		}
		dest, err := export.WriteFile(outputDir, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  wrote %s\n", dest)
	}
	return nil
}
