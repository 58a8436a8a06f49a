// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/docbench/internal/httputil"
	"github.com/pdiddy/docbench/internal/options"
	"github.com/pdiddy/docbench/pkg/types"
)

const (
	convertEndpoint = "/v1alpha/convert/source"
	healthEndpoint  = "/health"

	defaultEngineTimeout = 5 * time.Minute
)

// ServeConverter converts documents through a docling-serve engine over
// HTTP. A single request asks the engine for every rendition (HTML,
// Markdown, structured JSON, plain text), so exports never call the
// engine again.
type ServeConverter struct {
	baseURL   string
	apiKey    string
	userAgent string
	client    *http.Client
}

// NewServeConverter builds a converter for the engine at cfg.URL.
// apiKey may be empty for unauthenticated local engines.
func NewServeConverter(cfg types.EngineConfig, apiKey string) *ServeConverter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultEngineTimeout
	}
	return &ServeConverter{
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		apiKey:    apiKey,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// enginePayload is the docling-serve convert/source request body.
type enginePayload struct {
	Options     engineOptions `json:"options"`
	FileSources []fileSource  `json:"file_sources"`
}

type engineOptions struct {
	ToFormats               []string            `json:"to_formats"`
	DoOCR                   bool                `json:"do_ocr"`
	OCREngine               string              `json:"ocr_engine"`
	DoCodeEnrichment        bool                `json:"do_code_enrichment"`
	DoFormulaEnrichment     bool                `json:"do_formula_enrichment"`
	DoPictureClassification bool                `json:"do_picture_classification"`
	DoPictureDescription    bool                `json:"do_picture_description"`
	GeneratePictureImages   bool                `json:"generate_picture_images"`
	ImagesScale             float64             `json:"images_scale"`
	PictureDescriptionLocal *pictureDescription `json:"picture_description_local,omitempty"`
	AcceleratorDevice       string              `json:"accelerator_device"`
	CUDAFlashAttention      bool                `json:"cuda_use_flash_attention2"`
}

type pictureDescription struct {
	RepoID string `json:"repo_id"`
	Prompt string `json:"prompt"`
}

type fileSource struct {
	Filename     string `json:"filename"`
	Base64String string `json:"base64_string"`
}

// engineResponse is the docling-serve convert/source response body.
type engineResponse struct {
	Status         string         `json:"status"`
	Errors         []engineError  `json:"errors"`
	ProcessingTime float64        `json:"processing_time"`
	Document       engineDocument `json:"document"`
}

type engineError struct {
	ComponentType string `json:"component_type"`
	ModuleName    string `json:"module_name"`
	ErrorMessage  string `json:"error_message"`
}

type engineDocument struct {
	Filename    string          `json:"filename"`
	HTMLContent string          `json:"html_content"`
	MDContent   string          `json:"md_content"`
	TextContent string          `json:"text_content"`
	JSONContent json.RawMessage `json:"json_content"`
}

// wireOptions maps build options onto the engine's request fields.
func wireOptions(opts options.Options) engineOptions {
	eo := engineOptions{
		ToFormats:               []string{"html", "md", "json", "text"},
		DoOCR:                   true,
		OCREngine:               string(opts.OCREngine),
		DoCodeEnrichment:        opts.CodeEnrichment,
		DoFormulaEnrichment:     opts.FormulaEnrichment,
		DoPictureClassification: opts.PictureClassification,
		DoPictureDescription:    opts.PictureDescription,
		GeneratePictureImages:   opts.GeneratePictureImages,
		ImagesScale:             opts.ImagesScale,
		AcceleratorDevice:       string(opts.Accelerator.Device),
		CUDAFlashAttention:      opts.Accelerator.FlashAttention,
	}
	if opts.PictureDescription {
		eo.PictureDescriptionLocal = &pictureDescription{
			RepoID: opts.DescriptionModel,
			Prompt: opts.DescriptionPrompt,
		}
	}
	return eo
}

// Convert uploads the file as a base64 source and returns the converted
// document with all four renditions populated.
func (s *ServeConverter) Convert(ctx context.Context, req Request) (*types.Document, error) {
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("reading upload %s: %w", req.Path, err)
	}

	filename := filepath.Base(req.Path)
	payload := enginePayload{
		Options: wireOptions(req.Options),
		FileSources: []fileSource{{
			Filename:     filename,
			Base64String: base64.StdEncoding.EncodeToString(data),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding engine request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+convertEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building engine request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	s.setHeaders(httpReq)

	resp, err := httputil.DoWithRetry(ctx, s.client, httpReq, 0)
	if err != nil {
		return nil, fmt.Errorf("calling engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("engine returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var er engineResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decoding engine response: %w", err)
	}

	if er.Status != "success" {
		return nil, fmt.Errorf("engine conversion %s: %s", er.Status, joinEngineErrors(er.Errors))
	}

	return &types.Document{
		ID:          uuid.NewString(),
		Filename:    filename,
		HTML:        er.Document.HTMLContent,
		Markdown:    er.Document.MDContent,
		Text:        er.Document.TextContent,
		JSON:        er.Document.JSONContent,
		ConvertedAt: time.Now().UTC(),
	}, nil
}

// Healthz checks the engine's health endpoint. It returns nil when the
// engine answers 200.
func (s *ServeConverter) Healthz(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine health returned %s", resp.Status)
	}
	return nil
}

func (s *ServeConverter) setHeaders(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
}

func joinEngineErrors(errs []engineError) string {
	if len(errs) == 0 {
		return "no error detail"
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.ErrorMessage)
	}
	return strings.Join(msgs, "; ")
}
