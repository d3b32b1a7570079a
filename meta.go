// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/docpipe/pdf-imgx/logger"
)

// Meta holds the document information dictionary fields this service
// reports. Empty fields were absent from the document.
type Meta struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`
}

// Info returns the document information dictionary (/Info in the
// trailer) with text strings decoded to UTF-8. A document without an
// information dictionary yields a zero Meta.
func (r *Reader) Info() Meta {
	info := r.Trailer().Key("Info")
	if info.Kind() != Dict {
		logger.Debug("metadata: no Info dictionary", true)
		return Meta{}
	}
	m := Meta{
		Title:        info.Key("Title").Text(),
		Author:       info.Key("Author").Text(),
		Subject:      info.Key("Subject").Text(),
		Keywords:     info.Key("Keywords").Text(),
		Creator:      info.Key("Creator").Text(),
		Producer:     info.Key("Producer").Text(),
		CreationDate: info.Key("CreationDate").Text(),
		ModDate:      info.Key("ModDate").Text(),
	}
	logger.Debug(fmt.Sprintf("metadata: producer=%q creator=%q", m.Producer, m.Creator), true)
	return m
}

// MetadataJSON writes the document information dictionary to w as
// indented JSON.
func (r *Reader) MetadataJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Info())
}

// isUTF16 reports whether the string begins with the UTF-16BE byte
// order mark that marks a PDF text string as two-byte encoded.
func isUTF16(s string) bool {
	return len(s) >= 2 && s[0] == 0xfe && s[1] == 0xff
}

// utf16Decode converts big-endian UTF-16 data (without the byte order
// mark) to a UTF-8 string. An odd trailing byte is dropped.
func utf16Decode(s string) string {
	var code []uint16
	for i := 0; i+1 < len(s); i += 2 {
		code = append(code, uint16(s[i])<<8|uint16(s[i+1]))
	}
	return string(utf16.Decode(code))
}
