// Package pipeline implements the receipt ingestion pipeline: PDF text
// extraction, normalization, metadata detection, line-item parsing and
// fuzzy product matching. Every stage is a pure function over text except
// extraction, which touches the filesystem.
package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractionError wraps any failure to open or parse a PDF document. It is
// terminal for one processing attempt; callers may retry by re-invoking the
// whole process step.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract text from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractText pulls the linear text content out of the PDF at path, one
// page's text followed by a newline, in page order. Pages with no
// extractable text contribute nothing.
func ExtractText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}

	var text strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", &ExtractionError{Path: path, Err: err}
		}
		var pageText strings.Builder
		for _, row := range rows {
			for i, word := range row.Content {
				if i > 0 {
					pageText.WriteByte(' ')
				}
				pageText.WriteString(word.S)
			}
			pageText.WriteByte('\n')
		}
		if pageText.Len() == 0 {
			continue
		}
		text.WriteString(pageText.String())
	}

	return text.String(), nil
}
