package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"labelocr/internal/logger"
)

// MaxOCRWorkers bounds OCR_WORKERS; each worker may hold an 8x page image.
const MaxOCRWorkers = 8

type Config struct {
	// Input and output locations
	PDFDir             string
	RawTextDir         string
	OCRTextDir         string
	ManifestPath       string
	OutputManifestPath string

	// OCR Configuration
	OCRWorkers        int
	OCREngine         string
	TesseractPath     string
	TesseractLang     string
	PdftoppmPath      string
	OCRPrimaryScale   float64
	OCRFallbackScale  float64
	OCRMaxImagePixels int64

	// Classification thresholds
	MinPageChars         int
	OCRMinGain           int
	PrimaryLabelAuthType string

	// Google Cloud Configuration
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string
	GCSOutputBucket       string
	GCSOutputFolder       string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		PDFDir:                getEnv("PDF_DIR", "PDFs"),
		RawTextDir:            getEnv("RAW_TEXT_DIR", "PDFs/label_txt"),
		OCRTextDir:            getEnv("OCR_TEXT_DIR", "PDFs/label_txt_ocr"),
		ManifestPath:          getEnv("MANIFEST_PATH", "current_products.csv"),
		OutputManifestPath:    getEnv("OUTPUT_MANIFEST_PATH", "current_products_ocr.csv"),
		OCREngine:             strings.ToLower(getEnv("OCR_ENGINE", "tesseract")),
		TesseractPath:         getEnv("TESSERACT_PATH", "tesseract"),
		TesseractLang:         getEnv("TESSERACT_LANG", "eng"),
		PdftoppmPath:          getEnv("PDFTOPPM_PATH", "pdftoppm"),
		PrimaryLabelAuthType:  getEnv("PRIMARY_LABEL_AUTH_TYPE", "primary label"),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GCSOutputBucket:       getEnv("GCS_OUTPUT_BUCKET", ""),
		GCSOutputFolder:       getEnv("GCS_OUTPUT_FOLDER", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "OCR_Results"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	var err error
	if config.OCRWorkers, err = getEnvInt("OCR_WORKERS", MaxOCRWorkers); err != nil {
		return nil, err
	}
	if config.MinPageChars, err = getEnvInt("MIN_PAGE_CHARS", 300); err != nil {
		return nil, err
	}
	if config.OCRMinGain, err = getEnvInt("OCR_MIN_GAIN", 100); err != nil {
		return nil, err
	}
	if config.OCRPrimaryScale, err = getEnvFloat("OCR_PRIMARY_SCALE", 8); err != nil {
		return nil, err
	}
	if config.OCRFallbackScale, err = getEnvFloat("OCR_FALLBACK_SCALE", 3); err != nil {
		return nil, err
	}
	pixels, err := getEnvInt("OCR_MAX_IMAGE_PIXELS", 178956970)
	if err != nil {
		return nil, err
	}
	config.OCRMaxImagePixels = int64(pixels)

	if config.OCRWorkers > MaxOCRWorkers {
		config.OCRWorkers = MaxOCRWorkers
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.OCRWorkers < 1 {
		return fmt.Errorf("OCR_WORKERS must be at least 1")
	}
	if c.MinPageChars < 1 {
		return fmt.Errorf("MIN_PAGE_CHARS must be positive")
	}
	if c.OCRMinGain < 0 {
		return fmt.Errorf("OCR_MIN_GAIN must not be negative")
	}
	if c.OCRPrimaryScale <= 0 || c.OCRFallbackScale <= 0 {
		return fmt.Errorf("OCR scales must be positive")
	}
	if c.OCRFallbackScale > c.OCRPrimaryScale {
		return fmt.Errorf("OCR_FALLBACK_SCALE (%.1f) must not exceed OCR_PRIMARY_SCALE (%.1f)", c.OCRFallbackScale, c.OCRPrimaryScale)
	}
	switch c.OCREngine {
	case "tesseract", "vision":
	case "documentai":
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for OCR_ENGINE=documentai")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for OCR_ENGINE=documentai")
		}
	default:
		return fmt.Errorf("unknown OCR_ENGINE %q (tesseract, vision, documentai)", c.OCREngine)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, value)
	}
	return f, nil
}
