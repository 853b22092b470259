// Package pdfops implements the six PDF tools exposed by /api/process-pdf.
//
// merge/split/compress/edit are thin wrappers around pdfcpu's file-based API:
// each call stages its inputs in a scratch directory, runs the pdfcpu
// operation, and returns the result bytes. The repair tool lives in its own
// package (internal/services/repair) because it carries real control-flow
// complexity; convert lives in convert.go.
package pdfops

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrNotEnoughFiles is returned when merge gets fewer than two inputs.
var ErrNotEnoughFiles = errors.New("merge needs at least two PDF files")

// Service runs the structural PDF operations.
type Service struct {
	workDir string
}

// New creates a pdf operations service using the given scratch directory
// (os.TempDir() when empty).
func New(workDir string) *Service {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Service{workDir: workDir}
}

// scratch creates a throwaway directory for one operation. Callers defer the
// returned cleanup.
func (s *Service) scratch() (string, func(), error) {
	dir := filepath.Join(s.workDir, "op_"+uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// Merge concatenates the input documents in order into a single PDF.
func (s *Service) Merge(inputs [][]byte) ([]byte, error) {
	if len(inputs) < 2 {
		return nil, ErrNotEnoughFiles
	}
	dir, cleanup, err := s.scratch()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	paths := make([]string, len(inputs))
	for i, data := range inputs {
		p := filepath.Join(dir, fmt.Sprintf("in_%03d.pdf", i))
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to stage input %d: %w", i+1, err)
		}
		paths[i] = p
	}

	out := filepath.Join(dir, "merged.pdf")
	conf := model.NewDefaultConfiguration()
	if err := api.MergeCreateFile(paths, out, false, conf); err != nil {
		return nil, fmt.Errorf("merge failed: %w", err)
	}
	return os.ReadFile(out)
}

// Split breaks the document into single-page PDFs and returns them bundled
// as a zip archive.
func (s *Service) Split(input []byte) ([]byte, error) {
	dir, cleanup, err := s.scratch()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, input, 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage input: %w", err)
	}

	outDir := filepath.Join(dir, "pages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	conf := model.NewDefaultConfiguration()
	if err := api.SplitFile(in, outDir, 1, conf); err != nil {
		return nil, fmt.Errorf("split failed: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list split pages: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read split page %s: %w", name, err)
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Compress rewrites the document through pdfcpu's optimizer, which prunes
// unused objects and deduplicates resources.
func (s *Service) Compress(input []byte) ([]byte, error) {
	dir, cleanup, err := s.scratch()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, input, 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage input: %w", err)
	}
	out := filepath.Join(dir, "out.pdf")
	conf := model.NewDefaultConfiguration()
	if err := api.OptimizeFile(in, out, conf); err != nil {
		return nil, fmt.Errorf("compress failed: %w", err)
	}
	return os.ReadFile(out)
}

// Edit stamps the given text onto the selected pages (all pages when the
// selection is empty). This is the premium text-editing tool's current
// surface: overlay edits, not content-stream rewriting.
func (s *Service) Edit(input []byte, text string, pages []string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("edit needs non-empty text")
	}
	dir, cleanup, err := s.scratch()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, input, 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage input: %w", err)
	}

	wm, err := pdfcpu.ParseTextWatermarkDetails(text,
		"font:Helvetica, points:24, scale:1 abs, pos:c, rot:0, op:1", true, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("edit failed (text parse): %w", err)
	}
	conf := model.NewDefaultConfiguration()
	if err := api.AddWatermarksFile(in, "", pages, wm, conf); err != nil {
		return nil, fmt.Errorf("edit failed: %w", err)
	}
	return os.ReadFile(in)
}
