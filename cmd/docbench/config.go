// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/docbench/pkg/types"
)

const defaultUserAgent = "docbench/0.1"

// enginePort is the port docling-serve listens on inside its container.
const enginePort = 5001

// setDefaults registers the full configuration surface so the config
// file and DOCBENCH_* environment variables resolve through one path.
func setDefaults() {
	viper.SetDefault("hosted", false)

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.upload_dir", "uploads")
	viper.SetDefault("server.output_dir", "output")
	viper.SetDefault("server.max_upload_mb", 64)
	viper.SetDefault("server.session_ttl", 2*time.Hour)

	viper.SetDefault("engine.url", "http://127.0.0.1:5001")
	viper.SetDefault("engine.timeout", 5*time.Minute)
	viper.SetDefault("engine.autostart", false)
	viper.SetDefault("engine.image", "quay.io/docling-project/docling-serve:latest")
	viper.SetDefault("engine.port", enginePort)
	viper.SetDefault("engine.startup_wait", 2*time.Minute)

	viper.SetDefault("models.dir", "models")
	viper.SetDefault("models.base_url", "https://huggingface.co")
	viper.SetDefault("models.timeout", 10*time.Minute)

	viper.SetDefault("history.path", "docbench.db")
	viper.SetDefault("history.max_results", 20)
}

// loadConfig materializes the typed configuration from viper.
func loadConfig() types.Config {
	return types.Config{
		Hosted: viper.GetBool("hosted"),
		Server: types.ServerConfig{
			Host:        viper.GetString("server.host"),
			Port:        viper.GetInt("server.port"),
			UploadDir:   viper.GetString("server.upload_dir"),
			OutputDir:   viper.GetString("server.output_dir"),
			MaxUploadMB: viper.GetInt64("server.max_upload_mb"),
			SessionTTL:  viper.GetDuration("server.session_ttl"),
		},
		Engine: types.EngineConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("engine.timeout"),
				UserAgent: defaultUserAgent,
			},
			URL:         viper.GetString("engine.url"),
			Autostart:   viper.GetBool("engine.autostart"),
			Image:       viper.GetString("engine.image"),
			Port:        viper.GetInt("engine.port"),
			StartupWait: viper.GetDuration("engine.startup_wait"),
		},
		Models: types.ModelsConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("models.timeout"),
				UserAgent: defaultUserAgent,
			},
			Dir:     viper.GetString("models.dir"),
			BaseURL: viper.GetString("models.base_url"),
		},
		History: types.HistoryConfig{
			Path:       viper.GetString("history.path"),
			MaxResults: viper.GetInt("history.max_results"),
		},
	}
}
