// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// Document is the structured result of converting one input file. The
// engine produces every rendition in a single pass, so exports are pure
// projections of stored data and repeat byte-identically. A Document is
// owned by the UI session that created it and stays in place until a
// later parse completes; a failed parse never replaces it.
type Document struct {
	// ID identifies this conversion result.
	ID string `json:"id" yaml:"id"`

	// Filename is the original name of the converted file.
	Filename string `json:"filename" yaml:"filename"`

	// HTML, Markdown and Text are the engine's text renditions.
	HTML     string `json:"html" yaml:"html"`
	Markdown string `json:"markdown" yaml:"markdown"`
	Text     string `json:"text" yaml:"text"`

	// JSON is the engine's lossless structured rendition.
	JSON json.RawMessage `json:"json" yaml:"-"`

	// ConvertedAt records when the engine finished.
	ConvertedAt time.Time `json:"converted_at" yaml:"converted_at"`
}
