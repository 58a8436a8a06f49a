// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docbench/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage the engine's model assets (download, list)",
	Long: `Models pre-downloads the model artifacts the conversion engine needs
(layout, table structure, picture classification and description, OCR
detection weights) into a local cache, so the first parse does not stall
on model fetches. Already-cached files are skipped.`,
}

// --- download subcommand ---

var modelsDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download missing model artifacts into the cache",
	RunE:  runModelsDownload,
}

func runModelsDownload(cmd *cobra.Command, args []string) error {
	dl := modelsDownloader(cmd)

	summary, err := dl.Download(context.Background(), models.Manifest(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d model file(s) failed to download", summary.Failed)
	}
	return nil
}

// --- list subcommand ---

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List model artifacts and their cache status",
	RunE:  runModelsList,
}

func runModelsList(cmd *cobra.Command, args []string) error {
	dl := modelsDownloader(cmd)

	cached, missing := dl.List(models.Manifest(), os.Stdout)
	fmt.Fprintf(os.Stdout, "\n%d cached, %d missing\n", cached, missing)
	return nil
}

// --- shared helpers ---

func modelsDownloader(cmd *cobra.Command) *models.Downloader {
	cfg := loadConfig()
	if dir, _ := cmd.Flags().GetString("models-dir"); dir != "" {
		cfg.Models.Dir = dir
	}
	token, _ := cmd.Flags().GetString("hf-token")
	return models.NewDownloader(cfg.Models, secretDefault("hf-token", token))
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	modelsCmd.PersistentFlags().String("models-dir", "", "model cache directory (default models)")
	modelsCmd.PersistentFlags().String("hf-token", "", "Hugging Face token for gated artifacts (default: .secrets/hf-token)")

	modelsCmd.AddCommand(modelsDownloadCmd)
	modelsCmd.AddCommand(modelsListCmd)

	rootCmd.AddCommand(modelsCmd)
}
