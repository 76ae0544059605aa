// Package cache persists text artifacts and restores their classification
// without recomputing extraction or OCR.
//
// An artifact is the page-bookended text followed by a metadata trailer. Next
// to it a JSON sidecar carries the same record. Loading prefers the sidecar
// and falls back to a bounded tail read of the trailer; when neither can be
// parsed the document needs reprocessing. Artifacts are never overwritten
// unless the caller forces it.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"labelocr/internal/logger"
	"labelocr/pkg/models"
)

var (
	// ErrArtifactExists is returned by Write when the artifact is already on
	// disk and force is not set.
	ErrArtifactExists = errors.New("artifact already exists")

	// ErrNotFound is returned by Load when no artifact exists yet.
	ErrNotFound = errors.New("artifact not found")

	// ErrNeedsReprocessing is returned by Load when an artifact exists but
	// neither its sidecar nor its trailer can be parsed.
	ErrNeedsReprocessing = errors.New("artifact metadata unreadable, needs reprocessing")
)

// Stage selects the artifact family a Store manages.
type Stage int

const (
	// StageExtract stores raw text artifacts, <stem>.txt.
	StageExtract Stage = iota

	// StageOCR stores OCR artifacts, <stem>_OCR.txt.
	StageOCR
)

func (s Stage) suffix() string {
	if s == StageOCR {
		return "_OCR"
	}
	return ""
}

// Artifact names the files written for one document.
type Artifact struct {
	TextPath    string
	SidecarPath string
}

// Paths lists the artifact files.
func (a Artifact) Paths() []string {
	return []string{a.TextPath, a.SidecarPath}
}

// sidecar is the JSON record stored next to the text artifact.
type sidecar struct {
	Filename   string            `json:"filename"`
	WrittenAt  time.Time         `json:"written_at"`
	Assessment models.Assessment `json:"assessment"`
}

// Store reads and writes artifacts of one stage in one directory.
type Store struct {
	dir   string
	stage Stage
	log   zerolog.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, stage Stage) *Store {
	return &Store{
		dir:   dir,
		stage: stage,
		log:   logger.WithComponent("cache"),
	}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// ArtifactFor derives the artifact paths from a PDF filename.
func (s *Store) ArtifactFor(pdfFilename string) Artifact {
	base := Stem(pdfFilename) + s.stage.suffix()
	return Artifact{
		TextPath:    filepath.Join(s.dir, base+".txt"),
		SidecarPath: filepath.Join(s.dir, base+".json"),
	}
}

// Stem strips the directory and the extension from a filename.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Exists reports whether the text artifact for a document is on disk.
func (s *Store) Exists(pdfFilename string) bool {
	_, err := os.Stat(s.ArtifactFor(pdfFilename).TextPath)
	return err == nil
}

// Write stores the bookended body with its trailer and sidecar. Both files
// are written to temporary names and renamed into place, sidecar first, so a
// present text artifact always has its record.
func (s *Store) Write(pdfFilename, body string, a models.Assessment, force bool) (Artifact, error) {
	art := s.ArtifactFor(pdfFilename)

	if !force && s.Exists(pdfFilename) {
		return art, fmt.Errorf("%w: %s", ErrArtifactExists, art.TextPath)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return art, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	record, err := json.MarshalIndent(sidecar{
		Filename:   filepath.Base(pdfFilename),
		WrittenAt:  time.Now().UTC(),
		Assessment: a,
	}, "", "  ")
	if err != nil {
		return art, fmt.Errorf("failed to encode sidecar: %w", err)
	}
	if err := writeAtomic(art.SidecarPath, record); err != nil {
		return art, err
	}
	if err := writeAtomic(art.TextPath, []byte(body+encodeTrailer(a))); err != nil {
		return art, err
	}

	s.log.Debug().
		Str("file", pdfFilename).
		Str("artifact", art.TextPath).
		Msg("Artifact written")
	return art, nil
}

// Load restores the assessment of an existing artifact.
func (s *Store) Load(pdfFilename string) (models.Assessment, error) {
	art := s.ArtifactFor(pdfFilename)
	if _, err := os.Stat(art.TextPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Assessment{}, fmt.Errorf("%w: %s", ErrNotFound, art.TextPath)
		}
		return models.Assessment{}, err
	}

	a, err := s.loadSidecar(art.SidecarPath)
	if err == nil {
		return a, nil
	}
	s.log.Debug().Err(err).Str("file", pdfFilename).Msg("Sidecar unusable, reading trailer")

	lines, err := readTail(art.TextPath)
	if err == nil {
		a, err = parseTrailer(lines, s.stage == StageOCR)
	}
	if err != nil {
		return models.Assessment{}, fmt.Errorf("%w: %s: %v", ErrNeedsReprocessing, art.TextPath, err)
	}
	return a, nil
}

func (s *Store) loadSidecar(path string) (models.Assessment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Assessment{}, err
	}
	var rec sidecar
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.Assessment{}, err
	}
	if err := validate(rec.Assessment, s.stage == StageOCR); err != nil {
		return models.Assessment{}, err
	}
	return rec.Assessment, nil
}

// ReadBody returns the artifact text without its trailer.
func (s *Store) ReadBody(pdfFilename string) (string, error) {
	path := s.ArtifactFor(pdfFilename).TextPath
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", err
	}
	text := string(data)
	if i := strings.LastIndex(text, "\n"+trailerDelimiter+"\n"); i >= 0 {
		text = text[:i]
	}
	return text, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
