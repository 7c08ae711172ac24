// ABOUTME: FileLoader reads local documents: PDFs page by page, text and markdown as is
// ABOUTME: PDF text extraction uses github.com/ledongthuc/pdf
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FileLoader loads documents from the local filesystem
type FileLoader struct{}

// NewFileLoader creates a FileLoader
func NewFileLoader() *FileLoader { return &FileLoader{} }

// Load returns the text of path, one entry per PDF page
func (l *FileLoader) Load(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".text":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return nonEmpty([]string{string(data)}), nil
	case ".html", ".htm":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		defer f.Close()
		text, err := ExtractHTMLText(f)
		if err != nil {
			return nil, err
		}
		return nonEmpty([]string{text}), nil
	default:
		f, r, err := openPDF(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return pdfPages(r)
	}
}

func openPDF(path string) (f *os.File, r *pdf.Reader, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("parse pdf: %v", rec)
		}
	}()
	f, r, err = pdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("parse pdf: %w", err)
	}
	return f, r, nil
}

func readPDF(ra io.ReaderAt, size int64) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("parse pdf: %v", rec)
		}
	}()
	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	return pdfPages(r)
}

func pdfPages(r *pdf.Reader) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("extract pdf text: %v", rec)
		}
	}()
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}
