package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

var errPageTimeout = errors.New("page extraction timeout")

func extractPDF(ctx context.Context, path string) ([]string, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []string
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(ctx, page)
		if err != nil {
			// one unreadable page does not sink the document
			logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}
		pages = append(pages, content)
	}
	return pages, nil
}

// extractDocument reads .odt, .docx, .rtf or plaintext files.
func extractDocument(path string) (string, error) {
	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("failed to extract document: %w", err)
	}
	return text, nil
}

func protectExtract(ctx context.Context, page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(config.PageExtractWait):
		return "", errPageTimeout
	}
}
