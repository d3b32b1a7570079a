// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/gen2brain/go-fitz"

	"github.com/docpipe/pdf-imgx/logger"
)

// Normalize converts image payloads in formats browsers cannot render
// into PNG. JPEG2000 payloads (.jp2, .jpx) are decoded and re-encoded
// as opaque three-channel PNG; everything else passes through
// byte-identical. A decode or encode failure yields an error and no
// data.
func Normalize(data []byte, ext string) ([]byte, string, error) {
	switch ext {
	case ".jp2", ".jpx":
		out, err := jp2ToPNG(data)
		if err != nil {
			return nil, "", err
		}
		logger.Debug(fmt.Sprintf("normalize: %s %d bytes -> png %d bytes", ext, len(data), len(out)), true)
		return out, ".png", nil
	default:
		return data, ext, nil
	}
}

// jp2ToPNG decodes a JPEG2000 payload and re-encodes it as PNG.
// MuPDF opens a bare image file as a one-page document, which gives a
// decoded raster without a JPEG2000 codec of our own. The raster is
// flattened onto white so the result is opaque; Go's PNG encoder then
// emits a truecolor image without an alpha channel.
func jp2ToPNG(data []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("decoding JPEG2000: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("decoding JPEG2000: %w", err)
	}
	return flattenPNG(img)
}

// flattenPNG draws the raster over white and encodes it as PNG. The
// result is fully opaque, so the encoder emits a truecolor image with
// no alpha channel.
func flattenPNG(img image.Image) ([]byte, error) {
	flat := image.NewRGBA(img.Bounds())
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, img.Bounds().Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
