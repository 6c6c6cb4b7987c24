//go:build !tesseract

package ocr

import "context"

// Tesseract is a placeholder in builds without the tesseract tag; every call
// reports ErrUnavailable so the Fallback text is used.
type Tesseract struct{}

func NewTesseract(...string) *Tesseract { return &Tesseract{} }

func (*Tesseract) Extract(context.Context, []byte) (string, error) {
	return "", ErrUnavailable
}
