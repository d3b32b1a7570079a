// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReader_Info(t *testing.T) {
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	b.obj(3, "<< /Title (Annual Report) /Author (J. Doe) /Producer (docpipe 1.0) /CreationDate (D:20260101120000Z) >>")
	r := openDoc(t, b.build(1, "/Info 3 0 R"))

	m := r.Info()
	assert.Equal(t, "Annual Report", m.Title)
	assert.Equal(t, "J. Doe", m.Author)
	assert.Equal(t, "docpipe 1.0", m.Producer)
	assert.Equal(t, "D:20260101120000Z", m.CreationDate)
	assert.Empty(t, m.Subject)
}

func TestReader_Info_Missing(t *testing.T) {
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	r := openDoc(t, b.build(1, ""))

	assert.Equal(t, Meta{}, r.Info())
}

func TestReader_Info_UTF16Title(t *testing.T) {
	// UTF-16BE with byte order mark, written as a hex string: "Résumé".
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	b.obj(3, "<< /Title <FEFF005200E900730075006D00E9> >>")
	r := openDoc(t, b.build(1, "/Info 3 0 R"))

	assert.Equal(t, "Résumé", r.Info().Title)
}

func TestText_UTF16Decoding(t *testing.T) {
	v := Value{data: "\xfe\xff\x00H\x00i"}
	assert.Equal(t, "Hi", v.Text())

	v = Value{data: "plain"}
	assert.Equal(t, "plain", v.Text())
}
