package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"OCR_WORKERS", "OCR_ENGINE", "MIN_PAGE_CHARS", "OCR_MIN_GAIN",
		"OCR_PRIMARY_SCALE", "OCR_FALLBACK_SCALE", "OCR_MAX_IMAGE_PIXELS", "PRIMARY_LABEL_AUTH_TYPE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OCRWorkers != MaxOCRWorkers {
		t.Errorf("OCRWorkers = %d, want %d", cfg.OCRWorkers, MaxOCRWorkers)
	}
	if cfg.MinPageChars != 300 || cfg.OCRMinGain != 100 {
		t.Errorf("thresholds = %d/%d, want 300/100", cfg.MinPageChars, cfg.OCRMinGain)
	}
	if cfg.OCRPrimaryScale != 8 || cfg.OCRFallbackScale != 3 {
		t.Errorf("scales = %v/%v, want 8/3", cfg.OCRPrimaryScale, cfg.OCRFallbackScale)
	}
	if cfg.OCRMaxImagePixels != 178956970 {
		t.Errorf("OCRMaxImagePixels = %d", cfg.OCRMaxImagePixels)
	}
	if cfg.PrimaryLabelAuthType != "primary label" || cfg.OCREngine != "tesseract" {
		t.Errorf("got auth type %q engine %q", cfg.PrimaryLabelAuthType, cfg.OCREngine)
	}
}

func TestLoadCapsWorkers(t *testing.T) {
	t.Setenv("OCR_WORKERS", "64")
	t.Setenv("OCR_ENGINE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OCRWorkers != MaxOCRWorkers {
		t.Errorf("OCRWorkers = %d, want cap %d", cfg.OCRWorkers, MaxOCRWorkers)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad workers", map[string]string{"OCR_WORKERS": "many"}, "OCR_WORKERS"},
		{"zero workers", map[string]string{"OCR_WORKERS": "0"}, "OCR_WORKERS"},
		{"bad scale", map[string]string{"OCR_PRIMARY_SCALE": "big"}, "OCR_PRIMARY_SCALE"},
		{"fallback above primary", map[string]string{"OCR_PRIMARY_SCALE": "2", "OCR_FALLBACK_SCALE": "3"}, "OCR_FALLBACK_SCALE"},
		{"unknown engine", map[string]string{"OCR_ENGINE": "abbyy"}, "OCR_ENGINE"},
		{"documentai without processor", map[string]string{"OCR_ENGINE": "documentai", "GOOGLE_CLOUD_PROJECT": "p", "DOCUMENT_AI_PROCESSOR_ID": ""}, "DOCUMENT_AI_PROCESSOR_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"OCR_WORKERS", "OCR_ENGINE", "OCR_PRIMARY_SCALE", "OCR_FALLBACK_SCALE"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
