package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrMalformedPDF = errors.New("malformed PDF")

// PDFLoader extracts the text layer of a PDF page by page. Scanned PDFs
// without text yield ErrEmptyDocument.
type PDFLoader struct {
	maxBytes int64
}

func NewPDFLoader(maxBytes int64) *PDFLoader {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &PDFLoader{maxBytes: maxBytes}
}

var _ Loader = (*PDFLoader)(nil)

func (l *PDFLoader) Load(path string) (text string, err error) {
	if err := checkSize(path, l.maxBytes); err != nil {
		return "", err
	}

	// The parser panics on some damaged files.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrMalformedPDF, rec)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPDF, err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrMalformedPDF, i, err)
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}

	text = strings.ToValidUTF8(strings.Join(pages, "\n\n"), "")
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}
