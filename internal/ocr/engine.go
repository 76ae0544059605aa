package ocr

import (
	"context"
	"fmt"
	"strings"
)

// Engine names accepted by NewRecognizer.
const (
	EngineTesseract  = "tesseract"
	EngineVision     = "vision"
	EngineDocumentAI = "documentai"
)

// EngineConfig selects and configures a recognition engine.
type EngineConfig struct {
	Engine        string
	TesseractPath string
	TesseractLang string
	DocumentAI    DocumentAIConfig
}

// NewRecognizer builds the recognizer named by config.Engine.
func NewRecognizer(ctx context.Context, config EngineConfig) (Recognizer, error) {
	switch strings.ToLower(strings.TrimSpace(config.Engine)) {
	case "", EngineTesseract:
		return NewTesseract(config.TesseractPath, config.TesseractLang)
	case EngineVision:
		return NewVisionRecognizer(ctx)
	case EngineDocumentAI:
		return NewDocumentAIRecognizer(ctx, config.DocumentAI)
	default:
		return nil, WrapOCRError("NewRecognizer", 0, ErrUnknownEngine, fmt.Sprintf("%q", config.Engine))
	}
}
