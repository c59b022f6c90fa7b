package dds

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/mauserzjeh/dxt"
)

// ErrPreviewUnsupported means DecodeTopMip cannot decode the texture's format.
var ErrPreviewUnsupported = errors.New("preview not supported for format")

// TopMipSize returns the byte size of the largest mip level of t,
// or 0 if the format has no preview decoder.
func TopMipSize(t Texture) int {
	w, h := int(t.Width), int(t.Height)
	blocks := max(1, (w+3)/4) * max(1, (h+3)/4)

	switch t.Format {
	case FormatBC1UNorm:
		return blocks * 8
	case FormatBC3UNorm:
		return blocks * 16
	case FormatB8G8R8A8UNorm:
		return w * h * 4
	case FormatR8UNorm:
		return w * h
	default:
		return 0
	}
}

// DecodeTopMip decodes the largest mip level of t from data, which holds the
// pixel data that follows the DDS headers.
func DecodeTopMip(t Texture, data []byte) (image.Image, error) {
	size := TopMipSize(t)
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPreviewUnsupported, t.Format)
	}
	if len(data) < size {
		return nil, fmt.Errorf("top mip needs %d bytes, have %d", size, len(data))
	}
	data = data[:size]

	w, h := int(t.Width), int(t.Height)
	rect := image.Rect(0, 0, w, h)

	switch t.Format {
	case FormatBC1UNorm, FormatBC3UNorm:
		decode := dxt.DecodeDXT1
		if t.Format == FormatBC3UNorm {
			decode = dxt.DecodeDXT5
		}
		pix, err := decode(data, uint(w), uint(h))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t.Format, err)
		}
		if len(pix) < w*h*4 {
			return nil, fmt.Errorf("decoded %s has %d bytes, want %d", t.Format, len(pix), w*h*4)
		}
		return &image.RGBA{Pix: pix, Stride: w * 4, Rect: rect}, nil

	case FormatB8G8R8A8UNorm:
		pix := make([]byte, len(data))
		for i := 0; i < len(data); i += 4 {
			pix[i], pix[i+1], pix[i+2], pix[i+3] = data[i+2], data[i+1], data[i], data[i+3]
		}
		return &image.NRGBA{Pix: pix, Stride: w * 4, Rect: rect}, nil

	default: // FormatR8UNorm
		pix := make([]byte, len(data))
		copy(pix, data)
		return &image.Gray{Pix: pix, Stride: w, Rect: rect}, nil
	}
}

// WritePNG encodes img as PNG to w.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
