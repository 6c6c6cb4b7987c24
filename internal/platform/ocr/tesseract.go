//go:build tesseract

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract runs libtesseract through gosseract. A client is created per call
// because gosseract clients are not safe for concurrent use.
type Tesseract struct {
	languages []string
}

func NewTesseract(languages ...string) *Tesseract {
	return &Tesseract{languages: languages}
}

func (t *Tesseract) Extract(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return "", fmt.Errorf("setting ocr language: %w", err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("loading image for ocr: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}
