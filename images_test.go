// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageImages_DCTPassthrough(t *testing.T) {
	payload := []byte("\xff\xd8\xff\xe0 pretend jpeg body \xff\xd9")
	r := openDoc(t, buildImageDoc(dctImage("Im0", payload)))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Equal(t, ".jpg", imgs[0].Ext)
	assert.Equal(t, payload, imgs[0].Data, "DCT payload must pass through byte-identical")
}

func TestPageImages_JPXPassthrough(t *testing.T) {
	payload := []byte("\x00\x00\x00\x0cjP  pretend jp2 body")
	r := openDoc(t, buildImageDoc(xobject{
		name: "Im0",
		hdr:  "/Type /XObject /Subtype /Image /Width 4 /Height 4 /Filter /JPXDecode",
		data: payload,
	}))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Equal(t, ".jp2", imgs[0].Ext)
	assert.Equal(t, payload, imgs[0].Data)
}

func TestPageImages_FlateGrayToPNG(t *testing.T) {
	samples := []byte{0, 85, 170, 255} // 2x2 grayscale
	r := openDoc(t, buildImageDoc(grayFlateImage("Im0", 2, 2, samples)))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	require.Equal(t, ".png", imgs[0].Ext)

	decoded, err := png.Decode(bytes.NewReader(imgs[0].Data))
	require.NoError(t, err, "rebuilt PNG must be decodable")
	assert.Equal(t, 2, decoded.Bounds().Dx())
	assert.Equal(t, 2, decoded.Bounds().Dy())
	g := color.GrayModel.Convert(decoded.At(1, 1)).(color.Gray)
	assert.Equal(t, uint8(255), g.Y)
	g = color.GrayModel.Convert(decoded.At(0, 0)).(color.Gray)
	assert.Equal(t, uint8(0), g.Y)
}

func TestPageImages_FlateRGBToPNG(t *testing.T) {
	// 2x1 DeviceRGB: pure red, pure blue.
	samples := []byte{255, 0, 0, 0, 0, 255}
	r := openDoc(t, buildImageDoc(xobject{
		name: "Im0",
		hdr:  "/Type /XObject /Subtype /Image /Width 2 /Height 1 /BitsPerComponent 8 /ColorSpace /DeviceRGB /Filter /FlateDecode",
		data: zlibCompress(samples),
	}))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1)

	decoded, err := png.Decode(bytes.NewReader(imgs[0].Data))
	require.NoError(t, err)
	cr, cg, cb, _ := decoded.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0}, []uint32{cr, cg, cb})
	cr, cg, cb, _ = decoded.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0, 0, 0xffff}, []uint32{cr, cg, cb})
}

func TestPageImages_IndexedToPNG(t *testing.T) {
	// 2x1, 8-bit indices into a 2-entry RGB palette: red, green.
	palette := "\xff\x00\x00\x00\xff\x00"
	r := openDoc(t, buildImageDoc(xobject{
		name: "Im0",
		hdr: fmt.Sprintf("/Type /XObject /Subtype /Image /Width 2 /Height 1 /BitsPerComponent 8 "+
			"/ColorSpace [/Indexed /DeviceRGB 1 <%x>] /Filter /FlateDecode", palette),
		data: zlibCompress([]byte{0, 1}),
	}))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1)

	decoded, err := png.Decode(bytes.NewReader(imgs[0].Data))
	require.NoError(t, err)
	cr, cg, _, _ := decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), cr)
	assert.Equal(t, uint32(0), cg)
	_, cg, _, _ = decoded.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), cg)
}

func TestPageImages_OneBitGray(t *testing.T) {
	// 8x1 at 1 bit per component packs one row into a single byte.
	r := openDoc(t, buildImageDoc(xobject{
		name: "Im0",
		hdr:  "/Type /XObject /Subtype /Image /Width 8 /Height 1 /BitsPerComponent 1 /ColorSpace /DeviceGray /Filter /FlateDecode",
		data: zlibCompress([]byte{0b10100101}),
	}))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1)

	decoded, err := png.Decode(bytes.NewReader(imgs[0].Data))
	require.NoError(t, err)
	g := color.GrayModel.Convert(decoded.At(0, 0)).(color.Gray)
	assert.Equal(t, uint8(255), g.Y)
	g = color.GrayModel.Convert(decoded.At(1, 0)).(color.Gray)
	assert.Equal(t, uint8(0), g.Y)
	g = color.GrayModel.Convert(decoded.At(7, 0)).(color.Gray)
	assert.Equal(t, uint8(255), g.Y)
}

func TestPageImages_StencilMaskDefaultDepth(t *testing.T) {
	// An image mask has no /ColorSpace and may omit /BitsPerComponent;
	// it is always 1 bit deep, one byte per 8-pixel row here.
	r := openDoc(t, buildImageDoc(xobject{
		name: "Im0",
		hdr:  "/Type /XObject /Subtype /Image /Width 8 /Height 2 /ImageMask true /Filter /FlateDecode",
		data: zlibCompress([]byte{0b11110000, 0b00001111}),
	}))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	require.Equal(t, ".png", imgs[0].Ext)

	decoded, err := png.Decode(bytes.NewReader(imgs[0].Data))
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx())
	assert.Equal(t, 2, decoded.Bounds().Dy())
	g := color.GrayModel.Convert(decoded.At(0, 0)).(color.Gray)
	assert.Equal(t, uint8(255), g.Y)
	g = color.GrayModel.Convert(decoded.At(7, 0)).(color.Gray)
	assert.Equal(t, uint8(0), g.Y)
	g = color.GrayModel.Convert(decoded.At(7, 1)).(color.Gray)
	assert.Equal(t, uint8(255), g.Y)
}

func TestPageImages_SortedNameOrder(t *testing.T) {
	first := []byte("payload A")
	second := []byte("payload B")
	// Declared out of order; resource names decide the encounter order.
	r := openDoc(t, buildImageDoc(dctImage("Im2", second), dctImage("Im1", first)))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, first, imgs[0].Data, "Im1 should come before Im2")
	assert.Equal(t, second, imgs[1].Data)
}

func TestPageImages_UnsupportedEncodingSkipped(t *testing.T) {
	good := []byte("good payload")
	r := openDoc(t, buildImageDoc(
		xobject{
			name: "Im0",
			hdr:  "/Type /XObject /Subtype /Image /Width 4 /Height 4 /Filter /CCITTFaxDecode",
			data: []byte("fax data"),
		},
		dctImage("Im1", good),
	))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1, "the unsupported image is skipped, the good one kept")
	assert.Equal(t, good, imgs[0].Data)

	_, err = r.Page(1).ImagesStrict()
	assert.Truef(t, errHas(err, "unsupported image encoding"), "strict walk should fail, got: %v", err)
}

func TestPageImages_FormXObjectRecursion(t *testing.T) {
	inner := []byte("image inside a form")
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R /Resources << /XObject << /Fm0 4 0 R >> >> >>")
	b.streamObj(4, "/Type /XObject /Subtype /Form /Resources << /XObject << /Im0 5 0 R >> >>", []byte(""))
	b.streamObj(5, "/Type /XObject /Subtype /Image /Width 8 /Height 8 /Filter /DCTDecode", inner)
	r := openDoc(t, b.build(1, ""))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Equal(t, inner, imgs[0].Data)
}

func TestPageImages_FormCycleGuard(t *testing.T) {
	// A form whose resources point back at itself must not loop.
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R /Resources << /XObject << /Fm0 4 0 R >> >> >>")
	b.streamObj(4, "/Type /XObject /Subtype /Form /Resources << /XObject << /Fm0 4 0 R /Im0 5 0 R >> >>", []byte(""))
	b.streamObj(5, "/Type /XObject /Subtype /Image /Width 8 /Height 8 /Filter /DCTDecode", []byte("cycle survivor"))
	r := openDoc(t, b.build(1, ""))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1)
}

func TestPageImages_NoImages(t *testing.T) {
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R >>")
	r := openDoc(t, b.build(1, ""))

	imgs, err := r.Page(1).Images()
	require.NoError(t, err)
	assert.Empty(t, imgs)
}
