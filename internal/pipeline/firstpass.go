package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"labelocr/internal/cache"
	"labelocr/internal/extract"
	"labelocr/internal/logger"
	"labelocr/internal/quality"
	"labelocr/pkg/models"
)

// FirstPass is the extraction stage: it records the embedded text layer, its
// per-page lengths and the pre-OCR quality signals, and writes the raw text
// artifact consumed by later stages.
type FirstPass struct {
	extractor extract.PageExtractor
	scanner   *quality.Scanner
	store     *cache.Store
	mirror    Mirror
	opts      Options
}

// NewFirstPass wires an extraction stage. Mirror may be nil.
func NewFirstPass(extractor extract.PageExtractor, scanner *quality.Scanner, store *cache.Store, m Mirror, opts Options) *FirstPass {
	if scanner == nil {
		scanner = quality.NewScanner()
	}
	return &FirstPass{
		extractor: extractor,
		scanner:   scanner,
		store:     store,
		mirror:    m,
		opts:      opts,
	}
}

// Process extracts one document.
func (f *FirstPass) Process(ctx context.Context, doc models.Document) (res Result) {
	start := time.Now()
	res = Result{Index: doc.Index, Filename: doc.Filename}
	defer func() { res.Duration = time.Since(start) }()

	pdfPath, err := locatePDF(f.opts.PDFDir, doc)
	if err != nil {
		res = degrade(res, err)
		return res
	}
	log := logger.WithDocument("first-pass", doc.Filename)

	force := f.opts.Force
	if !force {
		a, err := f.store.Load(doc.Filename)
		switch {
		case err == nil:
			res.Status = StatusCached
			res.Assessment = &a
			return res
		case errors.Is(err, cache.ErrNeedsReprocessing):
			log.Warn().Err(err).Msg("Cached text unreadable, extracting again")
			force = true
		case !errors.Is(err, cache.ErrNotFound):
			res = degrade(res, WrapStageError("ProcessFirstPass", KindArtifact, err, "load cached artifact"))
			return res
		}
	}

	pages, err := f.extractor.ExtractPages(ctx, pdfPath)
	if err != nil {
		res = degrade(res, WrapStageError("ExtractPages", KindExtraction, err, ""))
		return res
	}

	a := models.Assessment{
		PageLengths: extract.PageLengths(pages),
		TextLength:  extract.TotalLength(pages),
		PreOCR:      f.scanner.Scan(strings.Join(pages, "\n"), doc.Filename, doc.RegistrationID),
	}

	art, err := f.store.Write(doc.Filename, extract.Bookend(pages), a, force)
	if err != nil {
		res = degrade(res, WrapStageError("WriteArtifact", KindArtifact, err, ""))
		return res
	}
	mirror(ctx, log, f.mirror, art, force)

	log.Debug().
		Ints("page_lengths", a.PageLengths).
		Bool("product_name", a.PreOCR.ProductName).
		Bool("registration_number", a.PreOCR.RegistrationNumber).
		Bool("boilerplate", a.PreOCR.Boilerplate).
		Msg("Text layer extracted")

	res.Status = StatusExtracted
	res.Assessment = &a
	return res
}
