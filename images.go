// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/docpipe/pdf-imgx/logger"
)

// An ImageObject is a single embedded raster image lifted out of a
// document, materialized as a complete image file.
type ImageObject struct {
	// Data holds the image file bytes: the raw stream payload for JPEG
	// and JPEG2000 images, or a PNG rebuilt from decoded samples.
	Data []byte
	// Ext is the matching file extension: ".jpg", ".jp2" or ".png".
	Ext string
}

// Images returns the image XObjects reachable from the page, in
// deterministic encounter order: sorted resource names, depth-first
// through Form XObjects. Soft masks attached to an image are not
// returned as images of their own.
//
// Images that use an unsupported encoding are skipped with a log
// entry; a page whose structure cannot be traversed at all yields an
// error. ImagesStrict instead fails on the first bad image.
func (p Page) Images() ([]ImageObject, error) {
	return p.images(false)
}

// ImagesStrict is Images with strict error handling: the first image
// that cannot be materialized fails the whole page.
func (p Page) ImagesStrict() ([]ImageObject, error) {
	return p.images(true)
}

func (p Page) images(strict bool) (imgs []ImageObject, err error) {
	if p.V.IsNull() {
		return nil, errors.New("page not present")
	}
	// Object resolution panics on references that cannot be loaded;
	// contain that to the page.
	defer func() {
		if r := recover(); r != nil {
			imgs = nil
			err = fmt.Errorf("traversing page resources: %v", r)
		}
	}()
	visited := make(map[objptr]bool)
	return collectImages(p.Resources(), visited, strict)
}

func collectImages(res Value, visited map[objptr]bool, strict bool) ([]ImageObject, error) {
	var out []ImageObject
	xobjs := res.Key("XObject")
	if xobjs.IsNull() {
		return out, nil
	}
	for _, xname := range xobjs.Keys() {
		xo := xobjs.Key(xname)
		if xo.Kind() != Stream {
			continue
		}
		if xo.ptr != (objptr{}) {
			if visited[xo.ptr] {
				continue
			}
			visited[xo.ptr] = true
		}
		switch xo.Key("Subtype").Name() {
		case "Image":
			img, err := materializeImage(xo)
			if err != nil {
				if strict {
					return nil, fmt.Errorf("image %s (object %d %d R): %w", xname, xo.ptr.id, xo.ptr.gen, err)
				}
				logger.Error(fmt.Sprintf("image %s (object %d %d R): %v", xname, xo.ptr.id, xo.ptr.gen, err))
				continue
			}
			logger.Debug(fmt.Sprintf("image %s: %d bytes, %s", xname, len(img.Data), img.Ext), true)
			out = append(out, img)
		case "Form":
			// Form XObjects carry their own resource dictionary and can
			// nest further images.
			nested, err := collectImages(xo.Key("Resources"), visited, strict)
			if err != nil {
				if strict {
					return nil, fmt.Errorf("form %s: %w", xname, err)
				}
				logger.Error(fmt.Sprintf("form %s (object %d %d R): %v", xname, xo.ptr.id, xo.ptr.gen, err))
				continue
			}
			out = append(out, nested...)
		}
	}
	return out, nil
}

// materializeImage turns an image XObject stream into a complete image
// file. The last filter in the chain decides the shape of the result:
// DCTDecode payloads are already JPEG files and JPXDecode payloads are
// already JPEG2000 files, so both pass through untouched; everything
// the stream layer can decode to raw samples is rebuilt as a PNG.
func materializeImage(xo Value) (ImageObject, error) {
	filters := xo.FilterNames()
	last := ""
	if len(filters) > 0 {
		last = filters[len(filters)-1]
	}

	switch last {
	case "DCTDecode", "DCT":
		data, err := imagePayload(xo, filters[:len(filters)-1])
		if err != nil {
			return ImageObject{}, err
		}
		return ImageObject{Data: data, Ext: ".jpg"}, nil
	case "JPXDecode":
		data, err := imagePayload(xo, filters[:len(filters)-1])
		if err != nil {
			return ImageObject{}, err
		}
		return ImageObject{Data: data, Ext: ".jp2"}, nil
	case "", "FlateDecode", "Fl", "ASCII85Decode", "A85", "ASCIIHexDecode", "AHx":
		samples, err := xo.DecodedStream()
		if err != nil {
			return ImageObject{}, err
		}
		data, err := samplesToPNG(xo, samples)
		if err != nil {
			return ImageObject{}, err
		}
		return ImageObject{Data: data, Ext: ".png"}, nil
	default:
		return ImageObject{}, fmt.Errorf("unsupported image encoding %s", last)
	}
}

// imagePayload returns the stream payload with any transport filters
// ahead of the image codec undone. In the common case the codec is the
// only filter and the raw payload is returned as is.
func imagePayload(xo Value, transport []string) ([]byte, error) {
	raw, err := xo.RawStream()
	if err != nil {
		return nil, err
	}
	if len(transport) == 0 {
		return raw, nil
	}
	params := xo.Key("DecodeParms")
	var r io.Reader = bytes.NewReader(raw)
	for i, f := range transport {
		parm := params
		if params.Kind() == Array {
			parm = params.Index(i)
		}
		r, err = applyFilter(r, f, parm)
		if err != nil {
			return nil, err
		}
	}
	return io.ReadAll(r)
}

// samplesToPNG rebuilds a PNG from decoded raster samples and the
// image dictionary: /Width, /Height, /BitsPerComponent and
// /ColorSpace. DeviceGray, DeviceRGB and Indexed color spaces are
// supported; rows are padded to byte boundaries per the imaging model.
func samplesToPNG(xo Value, samples []byte) ([]byte, error) {
	width := int(xo.Key("Width").Int64())
	height := int(xo.Key("Height").Int64())
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	bpc := int(xo.Key("BitsPerComponent").Int64())
	if bpc == 0 {
		// Stencil masks are always 1 bit deep and may omit the entry.
		if xo.Key("ImageMask").Bool() {
			bpc = 1
		} else {
			bpc = 8
		}
	}

	cs := xo.Key("ColorSpace")
	switch {
	case cs.Name() == "DeviceGray" || (cs.IsNull() && xo.Key("ImageMask").Bool()):
		return grayToPNG(samples, width, height, bpc)
	case cs.Name() == "DeviceRGB":
		return rgbToPNG(samples, width, height, bpc)
	case cs.Kind() == Array && cs.Index(0).Name() == "Indexed":
		return indexedToPNG(cs, samples, width, height, bpc)
	default:
		return nil, fmt.Errorf("unsupported color space %v", cs)
	}
}

func grayToPNG(samples []byte, width, height, bpc int) ([]byte, error) {
	rowBytes := (width*bpc + 7) / 8
	if len(samples) < rowBytes*height {
		return nil, fmt.Errorf("short image data: have %d bytes, need %d", len(samples), rowBytes*height)
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := samples[y*rowBytes:]
		for x := 0; x < width; x++ {
			v, err := sampleAt(row, x, bpc)
			if err != nil {
				return nil, err
			}
			img.SetGray(x, y, color.Gray{Y: scaleTo8(v, bpc)})
		}
	}
	return encodePNG(img)
}

func rgbToPNG(samples []byte, width, height, bpc int) ([]byte, error) {
	rowBytes := (width*3*bpc + 7) / 8
	if len(samples) < rowBytes*height {
		return nil, fmt.Errorf("short image data: have %d bytes, need %d", len(samples), rowBytes*height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := samples[y*rowBytes:]
		for x := 0; x < width; x++ {
			r, err1 := sampleAt(row, 3*x, bpc)
			g, err2 := sampleAt(row, 3*x+1, bpc)
			b, err3 := sampleAt(row, 3*x+2, bpc)
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, errors.New("short image row")
			}
			img.SetNRGBA(x, y, color.NRGBA{R: scaleTo8(r, bpc), G: scaleTo8(g, bpc), B: scaleTo8(b, bpc), A: 255})
		}
	}
	return encodePNG(img)
}

func indexedToPNG(cs Value, samples []byte, width, height, bpc int) ([]byte, error) {
	base := cs.Index(1)
	if base.Kind() == Array {
		base = base.Index(0)
	}
	hival := int(cs.Index(2).Int64())
	lookup, err := paletteBytes(cs.Index(3))
	if err != nil {
		return nil, err
	}

	var comps int
	switch base.Name() {
	case "DeviceGray":
		comps = 1
	case "DeviceRGB":
		comps = 3
	default:
		return nil, fmt.Errorf("unsupported indexed base color space %v", base)
	}
	if len(lookup) < (hival+1)*comps {
		return nil, fmt.Errorf("short palette: have %d bytes, need %d", len(lookup), (hival+1)*comps)
	}

	pal := make(color.Palette, hival+1)
	for i := 0; i <= hival; i++ {
		if comps == 1 {
			pal[i] = color.NRGBA{R: lookup[i], G: lookup[i], B: lookup[i], A: 255}
		} else {
			pal[i] = color.NRGBA{R: lookup[3*i], G: lookup[3*i+1], B: lookup[3*i+2], A: 255}
		}
	}

	rowBytes := (width*bpc + 7) / 8
	if len(samples) < rowBytes*height {
		return nil, fmt.Errorf("short image data: have %d bytes, need %d", len(samples), rowBytes*height)
	}
	img := image.NewPaletted(image.Rect(0, 0, width, height), pal)
	for y := 0; y < height; y++ {
		row := samples[y*rowBytes:]
		for x := 0; x < width; x++ {
			v, err := sampleAt(row, x, bpc)
			if err != nil {
				return nil, err
			}
			if int(v) > hival {
				v = uint32(hival)
			}
			img.SetColorIndex(x, y, uint8(v))
		}
	}
	return encodePNG(img)
}

// paletteBytes extracts the Indexed lookup table, which may be either
// a string object or a stream.
func paletteBytes(v Value) ([]byte, error) {
	switch v.Kind() {
	case String:
		return []byte(v.RawString()), nil
	case Stream:
		return v.DecodedStream()
	}
	return nil, fmt.Errorf("unsupported indexed palette value %v", v)
}

// sampleAt reads the i'th sample of a packed row at the given bit depth.
func sampleAt(row []byte, i, bpc int) (uint32, error) {
	switch bpc {
	case 8:
		if i >= len(row) {
			return 0, errors.New("short image row")
		}
		return uint32(row[i]), nil
	case 1, 2, 4:
		bit := i * bpc
		byteIdx := bit / 8
		if byteIdx >= len(row) {
			return 0, errors.New("short image row")
		}
		shift := 8 - bpc - bit%8
		mask := uint32(1<<bpc - 1)
		return uint32(row[byteIdx]) >> shift & mask, nil
	case 16:
		if 2*i+1 >= len(row) {
			return 0, errors.New("short image row")
		}
		return uint32(row[2*i])<<8 | uint32(row[2*i+1]), nil
	default:
		return 0, fmt.Errorf("unsupported bits per component %d", bpc)
	}
}

// scaleTo8 maps a sample at the given bit depth onto the 0-255 range.
func scaleTo8(v uint32, bpc int) uint8 {
	max := uint32(1<<bpc - 1)
	if max == 0 {
		return 0
	}
	return uint8(v * 255 / max)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
