// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the value types shared between docbench stages:
// configuration records and the converted document model.
package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "docbench/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ServerConfig holds settings for the local web UI server.
type ServerConfig struct {
	// Host is the listen address (default "127.0.0.1").
	Host string `json:"host" yaml:"host"`

	// Port is the listen port (default 8080).
	Port int `json:"port" yaml:"port"`

	// UploadDir is the directory where uploaded files are staged.
	UploadDir string `json:"upload_dir" yaml:"upload_dir"`

	// OutputDir is the directory where persisted doc.<ext> files land.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// MaxUploadMB caps the size of a single uploaded file, in mebibytes
	// (default 64).
	MaxUploadMB int64 `json:"max_upload_mb" yaml:"max_upload_mb"`

	// SessionTTL is how long an idle UI session keeps its parsed document
	// before eviction (default 2h).
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl"`
}

// EngineConfig holds settings for the external document-conversion engine.
type EngineConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the base URL of the engine's HTTP API (default
	// "http://127.0.0.1:5001").
	URL string `json:"url" yaml:"url"`

	// Autostart launches the engine container when URL is not answering.
	Autostart bool `json:"autostart" yaml:"autostart"`

	// Image is the engine container image used by Autostart.
	Image string `json:"image" yaml:"image"`

	// Port is the engine port published when autostarting (default 5001).
	Port int `json:"port" yaml:"port"`

	// StartupWait bounds how long serve waits for an autostarted engine
	// to answer its health endpoint (default 2m).
	StartupWait time.Duration `json:"startup_wait" yaml:"startup_wait"`
}

// ModelsConfig holds settings for model asset pre-download.
type ModelsConfig struct {
	HTTPConfig `yaml:",inline"`

	// Dir is the local cache directory for model artifacts (default
	// "models").
	Dir string `json:"dir" yaml:"dir"`

	// BaseURL is the artifact host (default "https://huggingface.co").
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// HistoryConfig holds settings for the conversion history store.
type HistoryConfig struct {
	// Path is the SQLite database file (default "docbench.db"). Empty
	// disables history recording.
	Path string `json:"path" yaml:"path"`

	// MaxResults is the default number of records returned by listings
	// (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Config groups all docbench settings.
type Config struct {
	// Hosted indicates the process runs in a hosted environment; when set,
	// model assets are downloaded once at startup before the UI becomes
	// interactive.
	Hosted bool `json:"hosted" yaml:"hosted"`

	Server  ServerConfig  `json:"server" yaml:"server"`
	Engine  EngineConfig  `json:"engine" yaml:"engine"`
	Models  ModelsConfig  `json:"models" yaml:"models"`
	History HistoryConfig `json:"history" yaml:"history"`
}
