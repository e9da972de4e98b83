package extract

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/ledongthuc/pdf"
)

// PDFStrategy extracts text from PDF files through the extraction cache:
// a hit (stored size equals current size) skips the parse entirely.
type PDFStrategy struct {
	cache *Cache
}

// Extract returns the PDF's plain text, from cache when possible.
func (s *PDFStrategy) Extract(absPath, relPath string, size int64) (string, error) {
	if entry, ok := s.cache.Get(absPath, size); ok {
		return entry.Text, nil
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	text, pages, err := extractPDF(content)
	if err != nil {
		return "", err
	}
	s.cache.Put(absPath, CacheEntry{
		PDFPath:     relPath,
		PDFSize:     size,
		ExtractedAt: time.Now().UTC().Format(time.RFC3339),
		Text:        text,
		PageCount:   pages,
	})
	return text, nil
}

// extractPDF returns the concatenated page text and the page count.
func extractPDF(content []byte) (string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("open PDF: %w", err)
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("extract page %d: %w", i, err)
		}
		buf.WriteString(text)
		if i < numPages {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), numPages, nil
}
