// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package options builds conversion options for the document-conversion
// engine from the values selected in the UI. Building is pure: every parse
// request constructs a fresh Options value from the current selections and
// the accelerator detected at startup.
package options

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/docbench/internal/accel"
)

// OCREngine identifies the text-recognition backend the engine applies to
// image content.
type OCREngine string

const (
	OCREasyOCR   OCREngine = "easyocr"
	OCRTesseract OCREngine = "tesseract"
	OCRRapidOCR  OCREngine = "rapidocr"
	OCRMac       OCREngine = "ocrmac"
)

// DefaultOCREngine is selected when the request names no engine.
const DefaultOCREngine = OCREasyOCR

// ErrUnknownOCREngine reports an OCR engine key outside the supported set.
var ErrUnknownOCREngine = errors.New("unknown OCR engine")

const (
	// ImagesScale is the fixed render scale for page images.
	ImagesScale = 2.0

	// PictureDescriptionModel and PictureDescriptionPrompt configure the
	// vision model the engine uses when picture description is enabled.
	PictureDescriptionModel  = "HuggingFaceTB/SmolVLM-256M-Instruct"
	PictureDescriptionPrompt = "Describe this image in a few sentences."
)

// ocrEngineKeys maps lowercased selector keys onto engine identifiers.
// The UI display keys (EasyOCR, Tesseract, RapidOCR, OcrMac) lowercase to
// exactly the canonical wire names, so one table covers both spellings.
var ocrEngineKeys = map[string]OCREngine{
	"easyocr":   OCREasyOCR,
	"tesseract": OCRTesseract,
	"rapidocr":  OCRRapidOCR,
	"ocrmac":    OCRMac,
}

// OCREngineKeys returns the UI selector keys in display order.
func OCREngineKeys() []string {
	return []string{"EasyOCR", "Tesseract", "RapidOCR", "OcrMac"}
}

// ParseOCREngine resolves a selector key to an OCREngine. The empty key
// selects the default engine; an unrecognized key is a configuration
// error reported via ErrUnknownOCREngine.
func ParseOCREngine(key string) (OCREngine, error) {
	if key == "" {
		return DefaultOCREngine, nil
	}
	if eng, ok := ocrEngineKeys[strings.ToLower(key)]; ok {
		return eng, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOCREngine, key)
}

// Flags holds the enrichment toggles selected in the UI. All default off.
type Flags struct {
	CodeEnrichment        bool `json:"code_enrichment" yaml:"code_enrichment"`
	FormulaEnrichment     bool `json:"formula_enrichment" yaml:"formula_enrichment"`
	PictureClassification bool `json:"picture_classification" yaml:"picture_classification"`
	PictureDescription    bool `json:"picture_description" yaml:"picture_description"`
}

// Options is one fully resolved conversion configuration.
type Options struct {
	OCREngine             OCREngine
	CodeEnrichment        bool
	FormulaEnrichment     bool
	PictureClassification bool
	PictureDescription    bool

	// GeneratePictureImages is forced on whenever classification or
	// description is requested; both enrichments consume rendered page
	// images, so the flags are not independent in effect.
	GeneratePictureImages bool

	// ImagesScale is the page image render scale, fixed at ImagesScale.
	ImagesScale float64

	// DescriptionModel and DescriptionPrompt are populated only when
	// PictureDescription is on.
	DescriptionModel  string
	DescriptionPrompt string

	// Accelerator is the device detected once at startup.
	Accelerator accel.Accelerator
}

// EnabledEnrichments lists the enrichment flags switched on, in a fixed
// order, for history records and logs.
func (o Options) EnabledEnrichments() []string {
	var names []string
	if o.CodeEnrichment {
		names = append(names, "code")
	}
	if o.FormulaEnrichment {
		names = append(names, "formula")
	}
	if o.PictureClassification {
		names = append(names, "picture_classification")
	}
	if o.PictureDescription {
		names = append(names, "picture_description")
	}
	return names
}

// Build constructs Options from an OCR engine selector key, the enrichment
// flags, and the startup-detected accelerator. It performs no I/O and
// touches no process state.
func Build(engineKey string, flags Flags, acc accel.Accelerator) (Options, error) {
	engine, err := ParseOCREngine(engineKey)
	if err != nil {
		return Options{}, err
	}

	opts := Options{
		OCREngine:             engine,
		CodeEnrichment:        flags.CodeEnrichment,
		FormulaEnrichment:     flags.FormulaEnrichment,
		PictureClassification: flags.PictureClassification,
		PictureDescription:    flags.PictureDescription,
		GeneratePictureImages: flags.PictureClassification || flags.PictureDescription,
		ImagesScale:           ImagesScale,
		Accelerator:           acc,
	}
	if flags.PictureDescription {
		opts.DescriptionModel = PictureDescriptionModel
		opts.DescriptionPrompt = PictureDescriptionPrompt
	}
	return opts, nil
}
