package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"labelocr/internal/cache"
	"labelocr/internal/classify"
	"labelocr/internal/manifest"
	"labelocr/internal/ocr"
	"labelocr/pkg/models"
)

// fakeExtractor serves page texts by file name.
type fakeExtractor struct {
	pages map[string][]string
}

func (f *fakeExtractor) ExtractPages(ctx context.Context, pdfPath string) ([]string, error) {
	pages, ok := f.pages[filepath.Base(pdfPath)]
	if !ok {
		return nil, errors.New("unreadable PDF")
	}
	return append([]string(nil), pages...), nil
}

// fakePages returns canned OCR text per file and page, and counts calls.
type fakePages struct {
	mu    sync.Mutex
	text  map[string]map[int]string
	calls int
}

func (f *fakePages) RecognizePage(ctx context.Context, page ocr.PageHandle) ocr.PageResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	text, ok := f.text[filepath.Base(page.Path)][page.Number]
	if !ok {
		return ocr.PageResult{Page: page.Number, Text: page.Original, Length: len([]rune(page.Original)), FellBack: true}
	}
	return ocr.PageResult{Page: page.Number, Text: text, Length: len([]rune(text)), Scale: ocr.DefaultPrimaryScale}
}

func (f *fakePages) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	pdfDir string
	outDir string
	ext    *fakeExtractor
	pages  *fakePages
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	fx := &fixture{
		pdfDir: filepath.Join(root, "pdf"),
		outDir: filepath.Join(root, "ocr"),
		ext:    &fakeExtractor{pages: map[string][]string{}},
		pages:  &fakePages{text: map[string]map[int]string{}},
	}
	if err := os.MkdirAll(fx.pdfDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return fx
}

// addPDF registers a document with its embedded pages and OCR pages.
func (fx *fixture) addPDF(t *testing.T, name string, pages []string, ocrText map[int]string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(fx.pdfDir, name), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	fx.ext.pages[name] = pages
	fx.pages.text[name] = ocrText
}

func (fx *fixture) engine(force bool) *Engine {
	return NewEngine(EngineDeps{
		Extractor: fx.ext,
		Pages:     fx.pages,
		Store:     cache.NewStore(fx.outDir, cache.StageOCR),
	}, Options{
		PDFDir:           fx.pdfDir,
		PrimaryLabelType: "primary label",
		Force:            force,
	})
}

func alphaDoc() models.Document {
	return models.Document{
		Filename:       "ALPHA_Label.pdf",
		RegistrationID: "100-1-9",
		AuthType:       "primary label",
		PageLengths:    []int{50, 800},
	}
}

func TestEngineScenarioA(t *testing.T) {
	fx := newFixture(t)
	fx.addPDF(t, "ALPHA_Label.pdf",
		[]string{strings.Repeat("x", 50), strings.Repeat("y", 800)},
		map[int]string{1: "ALPHA " + strings.Repeat("z", 594)})

	res := fx.engine(false).Process(context.Background(), alphaDoc())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Status != StatusPageSpecific {
		t.Errorf("Status = %s, want %s", res.Status, StatusPageSpecific)
	}

	a := res.Assessment
	if a.Requirement != models.RequirementPageSpecific {
		t.Errorf("Requirement = %s", a.Requirement)
	}
	if !reflect.DeepEqual(a.OCRPages, []int{1}) {
		t.Errorf("OCRPages = %v, want [1]", a.OCRPages)
	}
	if !reflect.DeepEqual(a.OCRPageLengths, []int{600, 800}) {
		t.Errorf("OCRPageLengths = %v, want [600 800]", a.OCRPageLengths)
	}
	if a.Verdict != models.VerdictOCR {
		t.Errorf("Verdict = %s, want OCR", a.Verdict)
	}
	if a.PostOCR == nil || !a.PostOCR.ProductName {
		t.Errorf("PostOCR = %+v, want product name matched", a.PostOCR)
	}
	if a.Final != models.DeterminationOCR {
		t.Errorf("Final = %s, want OCR", a.Final)
	}
}

func TestEngineScenarioB(t *testing.T) {
	fx := newFixture(t)
	fx.addPDF(t, "ALPHA_Label.pdf",
		[]string{strings.Repeat("x", 50), strings.Repeat("y", 800)},
		map[int]string{1: strings.Repeat("z", 600)})

	res := fx.engine(false).Process(context.Background(), alphaDoc())
	if res.Assessment == nil {
		t.Fatalf("no assessment: %+v", res)
	}
	if res.Assessment.Verdict != models.VerdictOCR {
		t.Errorf("Verdict = %s, want OCR", res.Assessment.Verdict)
	}
	if res.Assessment.Final != models.DeterminationManualReview {
		t.Errorf("Final = %s, want Manual_Review", res.Assessment.Final)
	}
}

func TestEngineVerdictFollowsRecordedLengths(t *testing.T) {
	fx := newFixture(t)
	// The live text layer reads 250 characters on page 1 where the manifest
	// recorded 50.
	fx.addPDF(t, "ALPHA_Label.pdf",
		[]string{strings.Repeat("x", 250), strings.Repeat("y", 800)},
		map[int]string{1: "ALPHA " + strings.Repeat("z", 324)})

	res := fx.engine(false).Process(context.Background(), alphaDoc())
	a := res.Assessment
	if a == nil {
		t.Fatalf("no assessment: %+v", res)
	}
	if !reflect.DeepEqual(a.PageLengths, []int{50, 800}) {
		t.Errorf("PageLengths = %v, want [50 800]", a.PageLengths)
	}
	if !reflect.DeepEqual(a.OCRPageLengths, []int{330, 800}) {
		t.Errorf("OCRPageLengths = %v, want [330 800]", a.OCRPageLengths)
	}
	if a.Verdict != models.VerdictOCR {
		t.Errorf("Verdict = %s, want OCR", a.Verdict)
	}
	if got := classify.ComparePageLengths(a.PageLengths, a.OCRPageLengths, classify.MinOCRGain); got != a.Verdict {
		t.Errorf("recorded lengths give %s, recorded verdict %s", got, a.Verdict)
	}
}

func TestEngineArtifactHasMarkersForEveryPage(t *testing.T) {
	fx := newFixture(t)
	fx.addPDF(t, "ALPHA_Label.pdf",
		[]string{strings.Repeat("x", 50), strings.Repeat("y", 800)},
		map[int]string{1: "ALPHA " + strings.Repeat("z", 594)})

	if res := fx.engine(false).Process(context.Background(), alphaDoc()); res.Err != nil {
		t.Fatalf("Process: %v", res.Err)
	}

	body, err := cache.NewStore(fx.outDir, cache.StageOCR).ReadBody("ALPHA_Label.pdf")
	if err != nil {
		t.Fatalf("ReadBody: %v", err)
	}
	for _, marker := range []string{"***PAGE 1 START***", "***PAGE 1 END***", "***PAGE 2 START***", "***PAGE 2 END***"} {
		if strings.Count(body, marker) != 1 {
			t.Errorf("marker %q appears %d times", marker, strings.Count(body, marker))
		}
	}
	if !strings.Contains(body, "ALPHA zzz") {
		t.Error("OCR text missing from artifact")
	}
}

func TestEngineNoOCRNeeded(t *testing.T) {
	fx := newFixture(t)
	page := "ALPHA insecticide EPA Reg. No. 100-1 KEEP OUT OF REACH OF CHILDREN " + strings.Repeat("w", 300)
	fx.addPDF(t, "ALPHA_Label.pdf", []string{page}, nil)

	doc := alphaDoc()
	doc.PageLengths = nil
	res := fx.engine(false).Process(context.Background(), doc)

	if res.Status != StatusNoOCRNeeded {
		t.Fatalf("Status = %s, want %s (err %v)", res.Status, StatusNoOCRNeeded, res.Err)
	}
	a := res.Assessment
	if a.Requirement != models.RequirementNone || a.Final != models.DeterminationOriginal || a.Verdict != models.VerdictOriginal {
		t.Errorf("got %+v", a)
	}
	if !a.PreOCR.ProductName || !a.PreOCR.RegistrationNumber || !a.PreOCR.Boilerplate {
		t.Errorf("PreOCR = %+v, want all matched", a.PreOCR)
	}
	if fx.pages.Calls() != 0 {
		t.Errorf("OCR ran %d times for a clean document", fx.pages.Calls())
	}
}

func TestEngineFullDocument(t *testing.T) {
	long := strings.Repeat("q", 900)
	tests := []struct {
		name      string
		ocrPage   string
		wantFinal models.Determination
	}{
		{"attributed with boilerplate", "ALPHA keep out of reach of children " + long, models.DeterminationOCR},
		{"attributed without boilerplate", "ALPHA " + long, models.DeterminationManualReview},
		{"not attributed", long, models.DeterminationManualReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fx.addPDF(t, "ALPHA_Label.pdf", []string{long, long}, map[int]string{1: tt.ocrPage, 2: long})

			doc := alphaDoc()
			doc.PageLengths = nil
			res := fx.engine(false).Process(context.Background(), doc)

			if res.Status != StatusFullOCR {
				t.Fatalf("Status = %s, want %s (err %v)", res.Status, StatusFullOCR, res.Err)
			}
			if !reflect.DeepEqual(res.Assessment.OCRPages, []int{1, 2}) {
				t.Errorf("OCRPages = %v, want [1 2]", res.Assessment.OCRPages)
			}
			if res.Assessment.Verdict != models.VerdictOCR {
				t.Errorf("Verdict = %s, want OCR", res.Assessment.Verdict)
			}
			if res.Assessment.Final != tt.wantFinal {
				t.Errorf("Final = %s, want %s", res.Assessment.Final, tt.wantFinal)
			}
		})
	}
}

func TestEngineSkipsAndMissing(t *testing.T) {
	fx := newFixture(t)
	engine := fx.engine(false)

	res := engine.Process(context.Background(), models.Document{Index: 3})
	if res.Status != StatusSkippedNoFilename || !errors.Is(res.Err, ErrNoFilename) {
		t.Errorf("blank filename: got %s / %v", res.Status, res.Err)
	}

	res = engine.Process(context.Background(), models.Document{Index: 4, Filename: "GONE_Label.pdf"})
	if res.Status != StatusMissingPDF || res.Kind != KindMissingPDF {
		t.Errorf("missing PDF: got %s / %s", res.Status, res.Kind)
	}
	if !errors.Is(res.Err, ErrMissingPDF) {
		t.Errorf("Err = %v, want ErrMissingPDF", res.Err)
	}
}

func TestEngineExtractionFailure(t *testing.T) {
	fx := newFixture(t)
	if err := os.WriteFile(filepath.Join(fx.pdfDir, "BROKEN_Label.pdf"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := fx.engine(false).Process(context.Background(), models.Document{Filename: "BROKEN_Label.pdf"})
	if res.Status != StatusError || res.Kind != KindExtraction {
		t.Errorf("got %s / %s, want error / extraction", res.Status, res.Kind)
	}
	if res.Assessment != nil {
		t.Error("failed document carries an assessment")
	}
}

func TestEngineReprocessesUnreadableCache(t *testing.T) {
	fx := newFixture(t)
	fx.addPDF(t, "ALPHA_Label.pdf",
		[]string{strings.Repeat("x", 50), strings.Repeat("y", 800)},
		map[int]string{1: "ALPHA " + strings.Repeat("z", 594)})

	store := cache.NewStore(fx.outDir, cache.StageOCR)
	art := store.ArtifactFor("ALPHA_Label.pdf")
	if err := os.MkdirAll(fx.outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(art.TextPath, []byte("truncated output"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := fx.engine(false).Process(context.Background(), alphaDoc())
	if res.Status != StatusPageSpecific {
		t.Fatalf("Status = %s, want reprocessing (err %v)", res.Status, res.Err)
	}
	if _, err := store.Load("ALPHA_Label.pdf"); err != nil {
		t.Errorf("artifact not repaired: %v", err)
	}
}

const batchCSV = `pdf_filename,Product No.,Auth Type,each_page_len
ALPHA_Label.pdf,100-1-9,primary label,"[50, 800]"
BETA_Label.pdf,200-2-9,primary label,"[900]"
,300-3-9,primary label,
GONE_Label.pdf,400-4-9,primary label,"[10]"
`

func runBatch(t *testing.T, fx *fixture) *Collector {
	t.Helper()
	table, err := manifest.Parse(strings.NewReader(batchCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	docs := make([]models.Document, table.Len())
	for i := range docs {
		if docs[i], err = table.Document(i); err != nil {
			t.Fatalf("Document(%d): %v", i, err)
		}
	}

	collector := NewOCRCollector(table, filepath.Join(fx.outDir, "manifest.csv"))
	if err := NewOrchestrator(4).Run(context.Background(), docs, fx.engine(false).Process, collector.Collect); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := collector.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return collector
}

func (fx *fixture) addBatchPDFs(t *testing.T) {
	fx.addPDF(t, "ALPHA_Label.pdf",
		[]string{strings.Repeat("x", 50), strings.Repeat("y", 800)},
		map[int]string{1: "ALPHA " + strings.Repeat("z", 594)})
	fx.addPDF(t, "BETA_Label.pdf",
		[]string{strings.Repeat("b", 900)},
		map[int]string{1: strings.Repeat("c", 900)})
}

func TestBatchIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	fx.addBatchPDFs(t)

	first := runBatch(t, fx)
	callsAfterFirst := fx.pages.Calls()
	second := runBatch(t, fx)

	if !reflect.DeepEqual(first.Table().Rows(), second.Table().Rows()) {
		t.Errorf("rows differ between runs:\nfirst:  %v\nsecond: %v", first.Table().Rows(), second.Table().Rows())
	}
	if fx.pages.Calls() != callsAfterFirst {
		t.Errorf("second run OCRed %d pages, want 0", fx.pages.Calls()-callsAfterFirst)
	}
	if n := second.Summary().ByStatus[StatusCached]; n != 2 {
		t.Errorf("cached = %d, want 2", n)
	}
}

func TestBatchSummary(t *testing.T) {
	fx := newFixture(t)
	fx.addBatchPDFs(t)

	s := runBatch(t, fx).Summary()
	if s.Total != 4 {
		t.Errorf("Total = %d, want 4", s.Total)
	}
	want := map[Status]int{
		StatusPageSpecific:      1,
		StatusFullOCR:           1,
		StatusSkippedNoFilename: 1,
		StatusMissingPDF:        1,
	}
	if !reflect.DeepEqual(s.ByStatus, want) {
		t.Errorf("ByStatus = %v, want %v", s.ByStatus, want)
	}
	if !reflect.DeepEqual(s.ManualReview, []string{"BETA_Label.pdf"}) {
		t.Errorf("ManualReview = %v", s.ManualReview)
	}

	var out strings.Builder
	s.Print(&out)
	if !strings.Contains(out.String(), "Manual_Review (1)") || !strings.Contains(out.String(), "GONE_Label.pdf") {
		t.Errorf("summary output incomplete:\n%s", out.String())
	}
}

func TestOrchestratorIsolatesPanics(t *testing.T) {
	docs := []models.Document{
		{Index: 0, Filename: "a.pdf"},
		{Index: 1, Filename: "boom.pdf"},
		{Index: 2, Filename: "c.pdf"},
	}
	task := func(ctx context.Context, doc models.Document) Result {
		if doc.Filename == "boom.pdf" {
			panic("corrupt content stream")
		}
		return Result{Status: StatusNoOCRNeeded}
	}

	got := map[int]Result{}
	err := NewOrchestrator(2).Run(context.Background(), docs, task, func(r Result) {
		got[r.Index] = r
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("collected %d results, want 3", len(got))
	}
	if got[0].Status != StatusNoOCRNeeded || got[2].Status != StatusNoOCRNeeded {
		t.Errorf("siblings affected: %+v %+v", got[0], got[2])
	}
	boom := got[1]
	if boom.Status != StatusError || boom.Kind != KindPanic || !errors.Is(boom.Err, ErrTaskPanic) {
		t.Errorf("panic result = %+v", boom)
	}
	if boom.Trace == "" || boom.Filename != "boom.pdf" {
		t.Errorf("panic result missing trace or filename: %+v", boom)
	}
}

func TestOrchestratorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []models.Document{{Index: 0, Filename: "a.pdf"}}
	err := NewOrchestrator(1).Run(ctx, docs, func(ctx context.Context, doc models.Document) Result {
		return Result{Status: StatusNoOCRNeeded}
	}, func(Result) {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewOrchestratorClampsWorkers(t *testing.T) {
	if n := NewOrchestrator(0).Workers(); n != 1 {
		t.Errorf("workers(0) = %d, want 1", n)
	}
	if n := NewOrchestrator(32).Workers(); n != MaxWorkers {
		t.Errorf("workers(32) = %d, want %d", n, MaxWorkers)
	}
}

type recordingMirror struct {
	mu          sync.Mutex
	paths       []string
	overwritten []string
}

func (m *recordingMirror) Upload(ctx context.Context, overwrite bool, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, paths...)
	if overwrite {
		m.overwritten = append(m.overwritten, paths...)
	}
	return nil
}

func TestFirstPassFeedsOCRStage(t *testing.T) {
	fx := newFixture(t)
	fx.addPDF(t, "ALPHA_Label.pdf",
		[]string{strings.Repeat("x", 50), strings.Repeat("y", 800)},
		map[int]string{1: "ALPHA " + strings.Repeat("z", 594)})

	rawDir := filepath.Join(filepath.Dir(fx.outDir), "raw")
	m := &recordingMirror{}
	fp := NewFirstPass(fx.ext, nil, cache.NewStore(rawDir, cache.StageExtract), m, Options{PDFDir: fx.pdfDir})

	table, err := manifest.Parse(strings.NewReader("pdf_filename,Product No.,Auth Type\nALPHA_Label.pdf,100-1-9,primary label\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc, err := table.Document(0)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	collector := NewFirstPassCollector(table, "")
	collector.Collect(fp.Process(context.Background(), doc))

	if got := table.Get(0, manifest.ColPageLengths); got != "[50, 800]" {
		t.Errorf("%s = %q", manifest.ColPageLengths, got)
	}
	if got := table.Get(0, manifest.ColTextLength); got != "850" {
		t.Errorf("%s = %q", manifest.ColTextLength, got)
	}
	if got := table.Get(0, manifest.ColPreProduct); got != "false" {
		t.Errorf("%s = %q", manifest.ColPreProduct, got)
	}
	if len(m.paths) != 2 {
		t.Errorf("mirrored %v, want text and sidecar", m.paths)
	}

	// The OCR stage reads what the first pass recorded.
	doc, err = table.Document(0)
	if err != nil {
		t.Fatalf("Document after first pass: %v", err)
	}
	res := fx.engine(false).Process(context.Background(), doc)
	if res.Status != StatusPageSpecific || res.Assessment.Final != models.DeterminationOCR {
		t.Errorf("got %s / %+v", res.Status, res.Assessment)
	}

	again := fp.Process(context.Background(), doc)
	if again.Status != StatusCached {
		t.Errorf("second first pass = %s, want cached", again.Status)
	}
	if len(m.overwritten) != 0 {
		t.Errorf("overwrote %v without force", m.overwritten)
	}

	forced := NewFirstPass(fx.ext, nil, cache.NewStore(rawDir, cache.StageExtract), m, Options{PDFDir: fx.pdfDir, Force: true})
	if res := forced.Process(context.Background(), doc); res.Err != nil {
		t.Fatalf("forced first pass: %v", res.Err)
	}
	if len(m.overwritten) != 2 {
		t.Errorf("forced rewrite overwrote %v, want text and sidecar", m.overwritten)
	}
}
