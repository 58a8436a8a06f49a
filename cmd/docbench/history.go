// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docbench/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent conversions",
	Long: `History lists recent conversions from the local SQLite store: filename,
OCR engine, enrichments, device, status, and duration. Use --json for
machine-readable output or --export to write the full history to a YAML
or JSON file.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 0, "maximum records to list (0 = configured default)")
	historyCmd.Flags().Bool("json", false, "output records as JSON")
	historyCmd.Flags().String("export", "", "write the full history to this path (.yaml or .json)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if cfg.History.Path == "" {
		return fmt.Errorf("history is disabled: set history.path in the config")
	}

	store, err := history.NewStore(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	if path, _ := cmd.Flags().GetString("export"); path != "" {
		return exportHistory(store, path)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := store.Recent(context.Background(), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No conversions recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-19s  %-30s  %-10s  %-28s  %-6s  %-6s  %s\n",
		"When", "File", "OCR", "Enrichment", "Device", "Status", "Took")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 116))

	for _, r := range records {
		name := r.Filename
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		enrichment := strings.Join(r.Enrichment, ",")
		if enrichment == "" {
			enrichment = "-"
		}
		if len(enrichment) > 28 {
			enrichment = enrichment[:25] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-19s  %-30s  %-10s  %-28s  %-6s  %-6s  %dms\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), name, r.OCREngine,
			enrichment, r.Device, r.Status, r.DurationMS)
	}

	fmt.Fprintf(os.Stdout, "\n%d conversions\n", len(records))
	return nil
}

func exportHistory(store *history.Store, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := store.ExportYAML(context.Background(), path); err != nil {
			return err
		}
	case ".json":
		if err := store.ExportJSON(context.Background(), path); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported export extension %q: use .yaml or .json", filepath.Ext(path))
	}
	fmt.Println("Exported to", path)
	return nil
}
