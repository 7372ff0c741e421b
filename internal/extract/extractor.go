// Package extract converts corpus files into plain text, one passage per line.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor turns file contents into plain text. Line breaks separate passages,
// which the sentence splitter treats as hard boundaries.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes converts content according to ext (with the leading dot).
// PDF, DOCX and XLSX are decoded; every other extension is read as UTF-8 text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}
