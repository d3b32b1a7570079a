// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Helpers for assembling small synthetic PDF files in memory, so the
// tests need no binary fixtures.

package imgx

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// pdfBuilder assembles a PDF file object by object and finishes it
// with a classic xref table and trailer.
type pdfBuilder struct {
	buf  bytes.Buffer
	offs map[int]int64
	max  int
}

func newPDFBuilder() *pdfBuilder {
	b := &pdfBuilder{offs: make(map[int]int64)}
	b.buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	return b
}

// obj writes an indirect object with the given body.
func (b *pdfBuilder) obj(id int, body string) {
	b.offs[id] = int64(b.buf.Len())
	if id > b.max {
		b.max = id
	}
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

// streamObj writes an indirect stream object. hdr holds the header
// dictionary entries without the surrounding << >> and without
// /Length, which is added from the payload size.
func (b *pdfBuilder) streamObj(id int, hdr string, payload []byte) {
	b.offs[id] = int64(b.buf.Len())
	if id > b.max {
		b.max = id
	}
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", id, hdr, len(payload))
	b.buf.Write(payload)
	b.buf.WriteString("\nendstream\nendobj\n")
}

// build finishes the file: xref table, trailer with /Root pointing at
// the given object plus any extra trailer entries, startxref, %%EOF.
func (b *pdfBuilder) build(rootID int, trailerExtra string) []byte {
	xrefOff := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", b.max+1)
	b.buf.WriteString("0000000000 65535 f \n")
	for id := 1; id <= b.max; id++ {
		if off, ok := b.offs[id]; ok {
			fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
		} else {
			b.buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Root %d 0 R %s >>\nstartxref\n%d\n%%%%EOF\n",
		b.max+1, rootID, trailerExtra, xrefOff)
	return b.buf.Bytes()
}

// xobject describes one XObject resource entry for buildImageDoc.
type xobject struct {
	name string
	hdr  string // header dict entries without << >> and /Length
	data []byte
}

// buildImageDoc assembles a one-page document whose page resources
// carry the given XObjects as objects 4, 5, ...
func buildImageDoc(xobjs ...xobject) []byte {
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")

	res := "<< /XObject <<"
	for i, xo := range xobjs {
		res += fmt.Sprintf(" /%s %d 0 R", xo.name, 4+i)
	}
	res += " >> >>"
	b.obj(3, "<< /Type /Page /Parent 2 0 R /Resources "+res+" >>")

	for i, xo := range xobjs {
		b.streamObj(4+i, xo.hdr, xo.data)
	}
	return b.build(1, "")
}

// dctImage returns an XObject entry for a DCTDecode image with the
// given payload. DCT payloads pass through undecoded, so any bytes do.
func dctImage(name string, payload []byte) xobject {
	return xobject{
		name: name,
		hdr:  "/Type /XObject /Subtype /Image /Width 8 /Height 8 /BitsPerComponent 8 /ColorSpace /DeviceRGB /Filter /DCTDecode",
		data: payload,
	}
}

// grayFlateImage returns a Flate-compressed DeviceGray image built
// from 8-bit samples in row-major order.
func grayFlateImage(name string, width, height int, samples []byte) xobject {
	return xobject{
		name: name,
		hdr: fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /BitsPerComponent 8 /ColorSpace /DeviceGray /Filter /FlateDecode",
			width, height),
		data: zlibCompress(samples),
	}
}

func zlibCompress(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

// writeTempPDF persists the document bytes for code paths that take a
// file path.
func writeTempPDF(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// openDoc parses the document bytes into a Reader.
func openDoc(t *testing.T, data []byte) *Reader {
	t.Helper()
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return r
}
