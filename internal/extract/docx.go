package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultBody  = "word/document.xml"
	docxContentTypes = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// <w:p> or <w:p attr="..."> up to its closing tag; (?s) lets runs span lines.
	docxParagraph = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	docxText      = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	docxOverride  = regexp.MustCompile(`<Override[^>]*>`)
	docxPartName  = regexp.MustCompile(`PartName="/?([^"]+)"`)
)

// extractDOCX returns one passage per Word paragraph.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	bodyPath := docxDefaultBody
	if ct, err := readZipEntry(zr, docxContentTypes); err == nil {
		if p := docxMainPart(string(ct)); p != "" {
			bodyPath = p
		}
	}
	body, err := readZipEntry(zr, bodyPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	var paragraphs []string
	for _, para := range docxParagraph.FindAllString(string(body), -1) {
		var b strings.Builder
		for _, m := range docxText.FindAllStringSubmatch(para, -1) {
			b.WriteString(html.UnescapeString(m[1]))
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// docxMainPart finds the main document part named in [Content_Types].xml,
// whatever the attribute order of the Override element.
func docxMainPart(contentTypes string) string {
	for _, o := range docxOverride.FindAllString(contentTypes, -1) {
		if !strings.Contains(o, `ContentType="`+docxMainType+`"`) {
			continue
		}
		if m := docxPartName.FindStringSubmatch(o); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}
