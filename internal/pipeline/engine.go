package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"labelocr/internal/cache"
	"labelocr/internal/classify"
	"labelocr/internal/extract"
	"labelocr/internal/logger"
	"labelocr/internal/ocr"
	"labelocr/internal/quality"
	"labelocr/pkg/models"
)

// PageRecognizer OCRs one page and never fails; see ocr.RasterService.
type PageRecognizer interface {
	RecognizePage(ctx context.Context, page ocr.PageHandle) ocr.PageResult
}

// Options are the per-run settings shared by every task.
type Options struct {
	PDFDir           string
	PrimaryLabelType string
	MinPageChars     int
	MinOCRGain       int

	// Force reprocesses documents whose artifact already exists.
	Force bool
}

// Engine is the OCR decision stage. It classifies each document, OCRs the
// pages that need it, grades the result and writes the _OCR artifact.
type Engine struct {
	extractor extract.PageExtractor
	geometry  extract.Geometry
	pages     PageRecognizer
	scanner   *quality.Scanner
	store     *cache.Store
	mirror    Mirror
	opts      Options
}

// EngineDeps are the collaborators of an Engine. Geometry and Mirror are
// optional.
type EngineDeps struct {
	Extractor extract.PageExtractor
	Geometry  extract.Geometry
	Pages     PageRecognizer
	Scanner   *quality.Scanner
	Store     *cache.Store
	Mirror    Mirror
}

// NewEngine wires an OCR stage.
func NewEngine(deps EngineDeps, opts Options) *Engine {
	if deps.Scanner == nil {
		deps.Scanner = quality.NewScanner()
	}
	if opts.MinPageChars <= 0 {
		opts.MinPageChars = classify.MinPageChars
	}
	if opts.MinOCRGain <= 0 {
		opts.MinOCRGain = classify.MinOCRGain
	}
	return &Engine{
		extractor: deps.Extractor,
		geometry:  deps.Geometry,
		pages:     deps.Pages,
		scanner:   deps.Scanner,
		store:     deps.Store,
		mirror:    deps.Mirror,
		opts:      opts,
	}
}

// Process runs the OCR stage for one document.
func (e *Engine) Process(ctx context.Context, doc models.Document) (res Result) {
	const op = "ProcessOCR"
	start := time.Now()
	res = Result{Index: doc.Index, Filename: doc.Filename}
	defer func() { res.Duration = time.Since(start) }()

	pdfPath, err := locatePDF(e.opts.PDFDir, doc)
	if err != nil {
		res = degrade(res, err)
		return res
	}
	log := logger.WithDocument("ocr-engine", doc.Filename)

	force := e.opts.Force
	if !force {
		a, err := e.store.Load(doc.Filename)
		switch {
		case err == nil:
			res.Status = StatusCached
			res.Assessment = &a
			return res
		case errors.Is(err, cache.ErrNeedsReprocessing):
			log.Warn().Err(err).Msg("Cached artifact unreadable, reprocessing")
			force = true
		case !errors.Is(err, cache.ErrNotFound):
			res = degrade(res, WrapStageError(op, KindArtifact, err, "load cached artifact"))
			return res
		}
	}

	pages, err := e.extractor.ExtractPages(ctx, pdfPath)
	if err != nil {
		res = degrade(res, WrapStageError("ExtractPages", KindExtraction, err, ""))
		return res
	}
	sizes := e.pageGeometry(log, pdfPath, doc, len(pages))

	lengths := extract.PageLengths(pages)
	if doc.PageLengths != nil {
		if len(doc.PageLengths) == len(pages) {
			lengths = doc.PageLengths
		} else {
			log.Warn().
				Ints("manifest_page_lengths", doc.PageLengths).
				Int("pages", len(pages)).
				Msg("Manifest page lengths disagree with the PDF, using live extraction")
		}
	}

	var pre models.QualitySignals
	if doc.PreOCR != nil {
		pre = *doc.PreOCR
	} else {
		pre = e.scanner.Scan(strings.Join(pages, "\n"), doc.Filename, doc.RegistrationID)
	}
	primary := doc.IsPrimaryLabel(e.opts.PrimaryLabelType)

	need := classify.ClassifyNeed(classify.NeedInput{
		PageLengths:  lengths,
		Signals:      pre,
		PrimaryLabel: primary,
		MinPageChars: e.opts.MinPageChars,
	})

	a := models.Assessment{
		PageLengths: lengths,
		TextLength:  extract.TotalLength(pages),
		PreOCR:      pre,
		Requirement: need.Requirement,
		Reason:      need.Reason,
		Verdict:     models.VerdictOriginal,
	}
	if a.Reason == "" {
		a.Reason = "no OCR needed"
	}

	body := extract.Bookend(pages)
	res.Status = StatusNoOCRNeeded

	if need.Requirement.NeedsOCR() {
		targets := need.Pages
		if need.Requirement == models.RequirementFullDocument {
			targets = allPages(len(pages))
		}
		// page_specific indices come from the manifest lengths; drop any the
		// live document does not have.
		targets = clampPages(targets, len(pages))

		merged := models.PageTexts(e.recognize(ctx, log, pdfPath, pages, sizes, targets))
		if err := ctx.Err(); err != nil {
			res = degrade(res, WrapStageError(op, KindCanceled, err, ""))
			return res
		}

		post := e.scanner.Scan(strings.Join(merged, "\n"), doc.Filename, doc.RegistrationID)
		a.OCRPages = targets
		a.OCRPageLengths = extract.PageLengths(merged)
		a.PostOCR = &post
		body = extract.Bookend(merged)

		if need.Requirement == models.RequirementPageSpecific {
			// Compared against the recorded lengths so the row reproduces its verdict.
			a.Verdict = classify.ComparePageLengths(a.PageLengths, a.OCRPageLengths, e.opts.MinOCRGain)
			res.Status = StatusPageSpecific
		} else {
			a.Verdict = models.VerdictOCR
			res.Status = StatusFullOCR
		}
	}

	var post models.QualitySignals
	if a.PostOCR != nil {
		post = *a.PostOCR
	}
	a.Final = classify.Determine(classify.FinalInput{
		Requirement:  a.Requirement,
		Verdict:      a.Verdict,
		PreOCR:       a.PreOCR,
		PostOCR:      post,
		PrimaryLabel: primary,
	})

	art, err := e.store.Write(doc.Filename, body, a, force)
	if err != nil {
		res = degrade(res, WrapStageError("WriteArtifact", KindArtifact, err, ""))
		return res
	}
	mirror(ctx, log, e.mirror, art, force)

	log.Info().
		Str("requirement", string(a.Requirement)).
		Ints("ocr_pages", a.OCRPages).
		Str("verdict", string(a.Verdict)).
		Str("final", string(a.Final)).
		Msg("Document classified")

	res.Assessment = &a
	return res
}

// recognize OCRs the target pages. A page whose recognition fell back keeps
// only its embedded text.
func (e *Engine) recognize(ctx context.Context, log zerolog.Logger, pdfPath string, texts []string, sizes []extract.PageSize, targets []int) []models.Page {
	pages := models.NewPages(texts)
	for _, p := range targets {
		if ctx.Err() != nil {
			break
		}
		page := &pages[p-1]
		handle := ocr.PageHandle{Path: pdfPath, Number: page.Number, Original: page.Original}
		if p <= len(sizes) {
			handle.Width, handle.Height = sizes[p-1].Width, sizes[p-1].Height
		}

		pr := e.pages.RecognizePage(ctx, handle)
		if !pr.FellBack {
			page.OCR, page.HasOCR = pr.Text, true
		}
		log.Debug().
			Int("page", p).
			Int("original_length", utf8.RuneCountInString(page.Original)).
			Int("ocr_length", pr.Length).
			Float64("scale", pr.Scale).
			Bool("fell_back", pr.FellBack).
			Dur("duration", pr.Duration).
			Msg("Page recognized")
	}
	return pages
}

// pageGeometry checks the page count against the manifest and returns page
// sizes for the OCR pixel guard. Failures only cost the pre-check.
func (e *Engine) pageGeometry(log zerolog.Logger, pdfPath string, doc models.Document, extracted int) []extract.PageSize {
	if e.geometry == nil {
		return nil
	}
	if n, err := e.geometry.PageCount(pdfPath); err != nil {
		log.Debug().Err(err).Msg("Page count unavailable")
	} else if (doc.PageLengths != nil && n != len(doc.PageLengths)) || n != extracted {
		log.Warn().
			Int("page_count", n).
			Int("manifest_pages", len(doc.PageLengths)).
			Int("extracted_pages", extracted).
			Msg("Page count mismatch")
	}

	sizes, err := e.geometry.PageSizes(pdfPath)
	if err != nil {
		log.Debug().Err(err).Msg("Page sizes unavailable, pixel pre-check disabled")
		return nil
	}
	return sizes
}

// locatePDF resolves the PDF of a row and checks that it exists.
func locatePDF(dir string, doc models.Document) (string, error) {
	if strings.TrimSpace(doc.Filename) == "" {
		return "", ErrNoFilename
	}
	path := filepath.Join(dir, doc.Filename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", WrapStageError("LocatePDF", KindMissingPDF, ErrMissingPDF, path)
		}
		return "", WrapStageError("LocatePDF", KindMissingPDF, fmt.Errorf("%w: %v", ErrMissingPDF, err), path)
	}
	return path, nil
}

// mirror uploads an artifact when a mirror is configured, replacing the
// remote copy when the local one was rewritten. Failures are logged and never
// fail the task.
func mirror(ctx context.Context, log zerolog.Logger, m Mirror, art cache.Artifact, rewritten bool) {
	if m == nil {
		return
	}
	if err := m.Upload(ctx, rewritten, art.Paths()...); err != nil {
		log.Warn().Err(err).Msg("Artifact mirror upload failed")
	}
}

func allPages(n int) []int {
	pages := make([]int, n)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

func clampPages(pages []int, n int) []int {
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if p >= 1 && p <= n {
			out = append(out, p)
		}
	}
	return out
}
