// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docbench/internal/accel"
	"github.com/pdiddy/docbench/internal/convert"
	"github.com/pdiddy/docbench/internal/export"
	"github.com/pdiddy/docbench/internal/history"
	"github.com/pdiddy/docbench/internal/options"
	"github.com/pdiddy/docbench/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert documents and export them without the UI",
	Long: `Convert parses one or more files through the conversion engine and
writes doc.<format> for each requested format into the output directory,
overwriting previous exports. Files with unsupported extensions are
skipped; the command exits non-zero when any file fails.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringSlice("to", []string{"md"}, "output formats: html, md, json, txt")
	convertCmd.Flags().String("ocr-engine", "", "OCR engine: EasyOCR, Tesseract, RapidOCR, or OcrMac (default EasyOCR)")
	convertCmd.Flags().Bool("code-enrichment", false, "enable code understanding")
	convertCmd.Flags().Bool("formula-enrichment", false, "enable formula understanding")
	convertCmd.Flags().Bool("picture-classification", false, "enable picture classification")
	convertCmd.Flags().Bool("picture-description", false, "enable picture description")
	convertCmd.Flags().String("output-dir", "", "directory for doc.<format> files (default output)")
	convertCmd.Flags().String("engine-api-key", "", "bearer token for the engine (default: .secrets/engine-api-key)")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more files to convert")
	}

	tags, _ := cmd.Flags().GetStringSlice("to")
	formats := make([]export.Format, 0, len(tags))
	for _, tag := range tags {
		f, err := export.ParseFormat(tag)
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}

	engineKey, _ := cmd.Flags().GetString("ocr-engine")
	code, _ := cmd.Flags().GetBool("code-enrichment")
	formula, _ := cmd.Flags().GetBool("formula-enrichment")
	classification, _ := cmd.Flags().GetBool("picture-classification")
	description, _ := cmd.Flags().GetBool("picture-description")

	opts, err := options.Build(engineKey, options.Flags{
		CodeEnrichment:        code,
		FormulaEnrichment:     formula,
		PictureClassification: classification,
		PictureDescription:    description,
	}, accel.Detect())
	if err != nil {
		return err
	}

	cfg := loadConfig()
	outputDir := cfg.Server.OutputDir
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		outputDir = dir
	}

	apiKey, _ := cmd.Flags().GetString("engine-api-key")
	conv := convert.NewServeConverter(cfg.Engine, secretDefault("engine-api-key", apiKey))

	result := convert.ConvertBatch(context.Background(), conv, args, opts, formats, outputDir, os.Stdout)

	recordOutcomes(cfg, opts, result.Outcomes)

	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}

// recordOutcomes adds each attempted conversion to the history store.
// History problems warn; they never fail the conversion itself.
func recordOutcomes(cfg types.Config, opts options.Options, outcomes []convert.Outcome) {
	if cfg.History.Path == "" || len(outcomes) == 0 {
		return
	}

	store, err := history.NewStore(cfg.History)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		return
	}
	defer store.Close()

	for _, o := range outcomes {
		rec := history.Record{
			Filename:   filepath.Base(o.Path),
			OCREngine:  string(opts.OCREngine),
			Enrichment: opts.EnabledEnrichments(),
			Device:     string(opts.Accelerator.Device),
			Status:     history.StatusDone,
			DurationMS: o.Took.Milliseconds(),
		}
		if o.Err != nil {
			rec.Status = history.StatusFailed
			rec.Error = o.Err.Error()
		}
		if _, err := store.Add(context.Background(), rec); err != nil {
			fmt.Fprintf(os.Stderr, "warning: recording history: %v\n", err)
		}
	}
}
