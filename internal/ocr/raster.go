package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"labelocr/internal/logger"
)

// RasterConfig controls the resolution policy of the raster service.
type RasterConfig struct {
	PrimaryScale   float64
	FallbackScale  float64
	MaxImagePixels int64
}

// DefaultRasterConfig returns the 8x/3x policy with the default pixel guard.
func DefaultRasterConfig() RasterConfig {
	return RasterConfig{
		PrimaryScale:   DefaultPrimaryScale,
		FallbackScale:  DefaultFallbackScale,
		MaxImagePixels: DefaultMaxImagePixels,
	}
}

// RasterService renders pages and runs recognition with a two-tier resolution
// fallback. It is safe for concurrent use when its renderer and recognizer are.
type RasterService struct {
	renderer   Renderer
	recognizer Recognizer
	config     RasterConfig
	log        zerolog.Logger
}

// NewRasterService wires a renderer and a recognizer. Zero config values take
// the defaults.
func NewRasterService(renderer Renderer, recognizer Recognizer, config RasterConfig) *RasterService {
	def := DefaultRasterConfig()
	if config.PrimaryScale <= 0 {
		config.PrimaryScale = def.PrimaryScale
	}
	if config.FallbackScale <= 0 {
		config.FallbackScale = def.FallbackScale
	}
	if config.MaxImagePixels <= 0 {
		config.MaxImagePixels = def.MaxImagePixels
	}
	return &RasterService{
		renderer:   renderer,
		recognizer: recognizer,
		config:     config,
		log:        logger.WithComponent("raster-ocr"),
	}
}

// RecognizePage OCRs a page at the primary scale. A size failure is retried
// once at the fallback scale; any remaining failure returns the page's
// embedded text with FellBack set. It never returns an error.
func (s *RasterService) RecognizePage(ctx context.Context, page PageHandle) PageResult {
	start := time.Now()
	log := s.log.With().Str("file", page.Path).Int("page", page.Number).Logger()

	text, err := s.RecognizeAt(ctx, page, s.config.PrimaryScale)
	if err == nil {
		return s.result(page, text, s.config.PrimaryScale, start)
	}

	if errors.Is(err, ErrImageTooLarge) {
		log.Warn().
			Err(err).
			Float64("scale", s.config.FallbackScale).
			Msg("Page image too large, retrying at lower resolution")

		text, err = s.RecognizeAt(ctx, page, s.config.FallbackScale)
		if err == nil {
			return s.result(page, text, s.config.FallbackScale, start)
		}
	}

	log.Warn().Err(err).Msg("OCR failed, keeping embedded page text")
	return PageResult{
		Page:     page.Number,
		Text:     page.Original,
		Length:   utf8.RuneCountInString(page.Original),
		FellBack: true,
		Err:      err,
		Duration: time.Since(start),
	}
}

// RecognizeAt renders the page at scale and recognizes it, without fallback.
func (s *RasterService) RecognizeAt(ctx context.Context, page PageHandle, scale float64) (string, error) {
	const op = "RecognizeAt"

	if err := s.checkPixels(page.Width*scale, page.Height*scale); err != nil {
		return "", WrapOCRError(op, page.Number, err, fmt.Sprintf("page size %.0fx%.0f pt at scale %.1f", page.Width, page.Height, scale))
	}

	img, err := s.renderer.RenderPage(ctx, page.Path, page.Number, scale)
	if err != nil {
		return "", err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return "", WrapOCRError(op, page.Number, ErrRenderFailed, fmt.Sprintf("undecodable image: %v", err))
	}
	if err := s.checkPixels(float64(cfg.Width), float64(cfg.Height)); err != nil {
		return "", WrapOCRError(op, page.Number, err, fmt.Sprintf("rendered %dx%d px", cfg.Width, cfg.Height))
	}

	text, err := s.recognizer.Recognize(ctx, img)
	if errors.Is(err, ErrImageTooLarge) {
		return "", WrapOCRError(op, page.Number, err, s.recognizer.Name())
	}
	if err != nil {
		return "", WrapOCRError(op, page.Number, fmt.Errorf("%w: %v", ErrOCRFailed, err), s.recognizer.Name())
	}
	return text, nil
}

func (s *RasterService) checkPixels(width, height float64) error {
	if width*height > float64(s.config.MaxImagePixels) {
		return ErrImageTooLarge
	}
	return nil
}

func (s *RasterService) result(page PageHandle, text string, scale float64, start time.Time) PageResult {
	return PageResult{
		Page:     page.Number,
		Text:     text,
		Length:   utf8.RuneCountInString(text),
		Scale:    scale,
		Duration: time.Since(start),
	}
}
