package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
)

var ErrUnsupportedImage = errors.New("unsupported image format")

// StripMetadata decodes an uploaded image and re-encodes only its pixels,
// dropping EXIF, XMP and any other ancillary chunks. JPEG stays JPEG; every
// other decodable format is written as PNG. It returns the clean bytes and
// their content type.
func StripMetadata(data []byte) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			return nil, "", fmt.Errorf("encoding jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encoding png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}
}
