// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package imgx extracts embedded raster images from PDF files.
//
// # Overview
//
// A PDF document is a graph of Values, each of which has one of the
// following Kinds:
//
//	Null, for the null object.
//	Integer, for an integer.
//	Real, for a floating-point number.
//	Bool, for a boolean value.
//	Name, for a name constant (as in /DeviceRGB).
//	String, for a string constant.
//	Dict, for a dictionary of name-value pairs.
//	Array, for an array of values.
//	Stream, for an opaque data stream and associated header dictionary.
//
// The accessors on Value return a view of the data as the given type,
// and a zero result when there is no appropriate view. That makes it
// possible to traverse a document without error checking at every
// step; traversal code recovers at page granularity instead.
//
// The package reads document structure only as far as image extraction
// needs: the page tree, resource dictionaries, image XObject streams
// and the document information dictionary. It does not interpret page
// content streams and it does not support encrypted files.
package imgx

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/docpipe/pdf-imgx/logger"
)

// A Reader is a single PDF file open for reading.
type Reader struct {
	f       io.ReaderAt
	end     int64
	xref    []xref
	trailer dict
}

type xref struct {
	ptr      objptr
	inStream bool
	stream   objptr
	offset   int64
}

// Open opens the named PDF file for reading.
// The returned *os.File must be closed by the caller once the Reader
// is no longer needed.
func Open(file string) (*os.File, *Reader, error) {
	logger.Debug(fmt.Sprintf("document: opening %s", file), true)
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	r, err := NewReader(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	logger.Debug(fmt.Sprintf("document: %s opened (size=%d)", file, fi.Size()), true)
	return f, r, nil
}

// NewReader opens a document for reading, using the data in f with the
// given total size.
func NewReader(f io.ReaderAt, size int64) (*Reader, error) {
	if err := checkHeader(f); err != nil {
		return nil, err
	}
	if err := checkEOFMarker(f, size); err != nil {
		return nil, err
	}

	startxref, err := findStartXref(f, size)
	if err != nil {
		return nil, err
	}

	r := &Reader{f: f, end: size}
	b := newBuffer(io.NewSectionReader(f, startxref, size-startxref), startxref)
	b.allowObjptr = true
	b.allowStream = true
	table, trailer, err := readXref(r, b)
	if err != nil {
		return nil, err
	}
	r.xref = table
	r.trailer = trailer

	if r.trailer[name("Encrypt")] != nil {
		logger.Error("encrypted PDF files are not supported")
		return nil, errors.New("encrypted PDF files are not supported")
	}
	return r, nil
}

// checkHeader validates the "%PDF-x.y" header, tolerating a few bytes
// of leading garbage, and accepts versions 1.0-1.7 and 2.0.
func checkHeader(f io.ReaderAt) error {
	buf := make([]byte, 32)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return err
	}
	if n == 0 {
		logger.Error("not a PDF file: empty")
		return errors.New("not a PDF file: empty")
	}
	buf = buf[:n]

	p := bytes.Index(buf, []byte("%PDF-"))
	if p < 0 {
		logger.Error("not a PDF file: missing %PDF- header")
		return errors.New("not a PDF file: missing %PDF- header")
	}
	line := buf[p:]
	if end := bytes.IndexAny(line, "\r\n"); end >= 0 {
		line = line[:end]
	}
	line = bytes.TrimRight(line, " \t\x00")

	var major, minor int
	if _, err := fmt.Sscanf(string(line), "%%PDF-%d.%d", &major, &minor); err != nil {
		logger.Error("not a PDF file: malformed version in header")
		return errors.New("not a PDF file: malformed version in header")
	}
	if !(major == 1 && minor >= 0 && minor <= 7) && !(major == 2 && minor == 0) {
		logger.Error(fmt.Sprintf("unsupported PDF version %d.%d", major, minor))
		return fmt.Errorf("unsupported PDF version %d.%d", major, minor)
	}
	logger.Debug(fmt.Sprintf("header: PDF-%d.%d", major, minor), true)
	return nil
}

// checkEOFMarker looks for %%EOF in the final bytes of the file,
// tolerating trailing whitespace.
func checkEOFMarker(f io.ReaderAt, size int64) error {
	const endChunk = 128
	off := size - endChunk
	if off < 0 {
		off = 0
	}
	buf := make([]byte, size-off)
	f.ReadAt(buf, off)
	buf = bytes.TrimRight(buf, "\r\n\t \x00")
	if !bytes.HasSuffix(buf, []byte("%%EOF")) {
		logger.Error("not a PDF file: missing %%EOF marker")
		return errors.New("not a PDF file: missing %%EOF marker")
	}
	return nil
}

// findStartXref locates the final "startxref" keyword and returns the
// offset of the cross-reference table or stream.
func findStartXref(f io.ReaderAt, size int64) (int64, error) {
	const endChunk = 256
	off := size - endChunk
	if off < 0 {
		off = 0
	}
	buf := make([]byte, size-off)
	if _, err := f.ReadAt(buf, off); err != nil && err != io.EOF {
		return 0, err
	}
	i := bytes.LastIndex(buf, []byte("startxref"))
	if i < 0 {
		logger.Error("malformed PDF: missing final startxref")
		return 0, errors.New("malformed PDF: missing final startxref")
	}
	b := newBuffer(bytes.NewReader(buf[i:]), 0)
	b.allowEOF = true
	if tok := b.readToken(); tok != keyword("startxref") {
		logger.Error(fmt.Sprintf("malformed PDF: expected startxref, found %v", tok))
		return 0, errors.New("malformed PDF: missing startxref")
	}
	startxref, ok := b.readToken().(int64)
	if !ok || startxref < 0 || startxref >= size {
		logger.Error("malformed PDF: invalid startxref offset")
		return 0, errors.New("malformed PDF: invalid startxref offset")
	}
	logger.Debug(fmt.Sprintf("xref: startxref=%d", startxref), true)
	return startxref, nil
}

// Trailer returns the file's trailer dictionary.
func (r *Reader) Trailer() Value {
	return Value{r, objptr{}, r.trailer}
}

func readXref(r *Reader, b *buffer) ([]xref, dict, error) {
	tok := b.readToken()
	if tok == keyword("xref") {
		logger.Debug("xref: table form", true)
		return readXrefTable(r, b)
	}
	if _, ok := tok.(int64); ok {
		b.unreadToken(tok)
		logger.Debug("xref: stream form", true)
		return readXrefStream(r, b)
	}
	logger.Error(fmt.Sprintf("malformed PDF: no cross-reference table or stream: %v", tok))
	return nil, nil, errors.New("malformed PDF: no cross-reference table or stream")
}

// readXrefTable parses a classic ASCII xref table plus trailer,
// following /Prev chains and any hybrid /XRefStm pointer.
func readXrefTable(r *Reader, b *buffer) ([]xref, dict, error) {
	table, trailer, err := readXrefTableSection(b, nil)
	if err != nil {
		return nil, nil, err
	}
	table = r.mergeXRefStm(table, trailer)

	seen := map[int64]bool{}
	for prev := trailer[name("Prev")]; prev != nil; {
		off, ok := prev.(int64)
		if !ok {
			logger.Error(fmt.Sprintf("malformed PDF: xref Prev is not an integer: %v", prev))
			return nil, nil, errors.New("malformed PDF: xref Prev is not an integer")
		}
		if seen[off] {
			logger.Error("malformed PDF: cycle in xref Prev chain")
			break
		}
		seen[off] = true

		pb := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
		pb.allowObjptr = true
		pb.allowStream = true
		if tok := pb.readToken(); tok != keyword("xref") {
			logger.Error("malformed PDF: xref Prev does not point at an xref table")
			return nil, nil, errors.New("malformed PDF: xref Prev does not point at an xref table")
		}
		var ptrailer dict
		table, ptrailer, err = readXrefTableSection(pb, table)
		if err != nil {
			return nil, nil, err
		}
		table = r.mergeXRefStm(table, ptrailer)
		prev = ptrailer[name("Prev")]
	}

	if size, ok := trailer[name("Size")].(int64); ok && size >= 0 && size < int64(len(table)) {
		table = table[:size]
	}
	return table, trailer, nil
}

func readXrefTableSection(b *buffer, table []xref) ([]xref, dict, error) {
	for {
		tok := b.readToken()
		if tok == keyword("trailer") {
			break
		}
		start, ok1 := tok.(int64)
		count, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 || start < 0 || count < 0 {
			logger.Error("malformed PDF: bad xref subsection header")
			return nil, nil, errors.New("malformed PDF: bad xref subsection header")
		}
		for i := int64(0); i < count; i++ {
			off, okOff := b.readToken().(int64)
			gen, okGen := b.readToken().(int64)
			alloc, okAlloc := b.readToken().(keyword)
			if !okOff || !okGen || !okAlloc || (alloc != keyword("n") && alloc != keyword("f")) {
				logger.Error("malformed PDF: bad xref entry")
				return nil, nil, errors.New("malformed PDF: bad xref entry")
			}
			idx := int(start + i)
			table = growXref(table, idx)
			// Earlier sections win: entries from the newest table shadow
			// the ones reached through Prev.
			if alloc == keyword("n") && table[idx].ptr == (objptr{}) {
				table[idx] = xref{ptr: objptr{uint32(idx), uint16(gen)}, offset: off}
			}
		}
	}
	trailer, ok := b.readObject().(dict)
	if !ok {
		logger.Error("malformed PDF: xref table not followed by trailer dictionary")
		return nil, nil, errors.New("malformed PDF: xref table not followed by trailer dictionary")
	}
	return table, trailer, nil
}

func growXref(table []xref, idx int) []xref {
	for len(table) <= idx {
		table = append(table, xref{})
	}
	return table
}

// mergeXRefStm merges entries from a hybrid-reference /XRefStm stream.
// The ASCII table alone is usually sufficient, so a failure here only
// logs instead of aborting the open.
func (r *Reader) mergeXRefStm(table []xref, trailer dict) []xref {
	off, ok := trailer[name("XRefStm")].(int64)
	if !ok {
		return table
	}
	logger.Debug(fmt.Sprintf("xref: hybrid XRefStm at %d", off), true)
	b := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
	b.allowObjptr = true
	b.allowStream = true
	src, _, err := readXrefStream(r, b)
	if err != nil {
		logger.Error(fmt.Sprintf("xref: ignoring unreadable XRefStm at %d: %v", off, err))
		return table
	}
	for i, e := range src {
		if e.ptr == (objptr{}) {
			continue
		}
		table = growXref(table, i)
		if table[i].ptr == (objptr{}) {
			table[i] = e
		}
	}
	return table
}

// readXrefStream parses a cross-reference stream and its /Prev chain.
func readXrefStream(r *Reader, b *buffer) ([]xref, dict, error) {
	strm, err := readXrefStreamObject(b)
	if err != nil {
		return nil, nil, err
	}

	size, ok := strm.hdr[name("Size")].(int64)
	if !ok || size < 0 {
		logger.Error("malformed PDF: xref stream missing Size")
		return nil, nil, errors.New("malformed PDF: xref stream missing Size")
	}
	table := make([]xref, size)
	if err := r.readXrefStreamData(strm, table, size); err != nil {
		return nil, nil, err
	}

	seen := map[int64]bool{}
	for prev := strm.hdr[name("Prev")]; prev != nil; {
		off, ok := prev.(int64)
		if !ok {
			logger.Error(fmt.Sprintf("malformed PDF: xref Prev is not an integer: %v", prev))
			return nil, nil, errors.New("malformed PDF: xref Prev is not an integer")
		}
		if seen[off] {
			logger.Error("malformed PDF: cycle in xref Prev chain")
			break
		}
		seen[off] = true

		pb := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
		pb.allowObjptr = true
		pb.allowStream = true
		pstrm, err := readXrefStreamObject(pb)
		if err != nil {
			return nil, nil, err
		}
		psize, _ := pstrm.hdr[name("Size")].(int64)
		if psize > size {
			logger.Error("malformed PDF: xref Prev stream larger than final stream")
			return nil, nil, errors.New("malformed PDF: xref Prev stream larger than final stream")
		}
		if err := r.readXrefStreamData(pstrm, table, psize); err != nil {
			return nil, nil, err
		}
		prev = pstrm.hdr[name("Prev")]
	}

	return table, strm.hdr, nil
}

func readXrefStreamObject(b *buffer) (stream, error) {
	od, ok := b.readObject().(objdef)
	if !ok {
		logger.Error("malformed PDF: cross-reference stream object not found")
		return stream{}, errors.New("malformed PDF: cross-reference stream object not found")
	}
	strm, ok := od.obj.(stream)
	if !ok {
		logger.Error("malformed PDF: cross-reference stream not found")
		return stream{}, errors.New("malformed PDF: cross-reference stream not found")
	}
	if strm.hdr[name("Type")] != name("XRef") {
		logger.Error("malformed PDF: cross-reference stream does not have type XRef")
		return stream{}, errors.New("malformed PDF: cross-reference stream does not have type XRef")
	}
	return strm, nil
}

func (r *Reader) readXrefStreamData(strm stream, table []xref, size int64) error {
	index, _ := strm.hdr[name("Index")].(array)
	if index == nil {
		index = array{int64(0), size}
	}
	if len(index)%2 != 0 {
		return fmt.Errorf("malformed PDF: invalid xref stream Index %v", index)
	}

	ww, ok := strm.hdr[name("W")].(array)
	if !ok {
		return errors.New("malformed PDF: xref stream missing W array")
	}
	var w []int
	for _, x := range ww {
		i, ok := x.(int64)
		if !ok || i < 0 || int64(int(i)) != i {
			return fmt.Errorf("malformed PDF: invalid xref stream W %v", ww)
		}
		w = append(w, int(i))
	}
	if len(w) < 3 {
		return fmt.Errorf("malformed PDF: invalid xref stream W %v", ww)
	}
	wtotal := 0
	for _, wid := range w {
		wtotal += wid
	}

	v := Value{r, objptr{}, strm}
	data, err := v.DecodedStream()
	if err != nil {
		return fmt.Errorf("malformed PDF: reading xref stream: %w", err)
	}
	buf := make([]byte, wtotal)
	rd := bytes.NewReader(data)
	for len(index) > 0 {
		start, ok1 := index[0].(int64)
		n, ok2 := index[1].(int64)
		if !ok1 || !ok2 {
			return errors.New("malformed PDF: invalid xref stream Index pair")
		}
		index = index[2:]
		for i := int64(0); i < n; i++ {
			if _, err := io.ReadFull(rd, buf); err != nil {
				return fmt.Errorf("malformed PDF: short xref stream: %w", err)
			}
			v1 := decodeInt(buf[0:w[0]])
			if w[0] == 0 {
				// Omitted type field defaults to 1 per the PDF spec.
				v1 = 1
			}
			v2 := decodeInt(buf[w[0] : w[0]+w[1]])
			v3 := decodeInt(buf[w[0]+w[1] : w[0]+w[1]+w[2]])
			x := int(start + i)
			if x < 0 || x >= len(table) || table[x].ptr != (objptr{}) {
				continue
			}
			switch v1 {
			case 0:
				table[x] = xref{ptr: objptr{0, 65535}}
			case 1:
				table[x] = xref{ptr: objptr{uint32(x), uint16(v3)}, offset: int64(v2)}
			case 2:
				table[x] = xref{ptr: objptr{uint32(x), 0}, inStream: true, stream: objptr{uint32(v2), 0}, offset: int64(v3)}
			}
		}
	}
	logger.Debug(fmt.Sprintf("xref: stream parsed (size=%d)", size), true)
	return nil
}

func decodeInt(b []byte) int {
	x := 0
	for _, c := range b {
		x = x<<8 | int(c)
	}
	return x
}

// A Value is a single PDF value, such as an integer, dictionary, or array.
// The zero Value is a PDF null (Kind() == Null, IsNull() == true).
type Value struct {
	r    *Reader
	ptr  objptr
	data interface{}
}

// IsNull reports whether the value is a null. It is equivalent to
// Kind() == Null.
func (v Value) IsNull() bool {
	return v.data == nil
}

// A ValueKind specifies the kind of data underlying a Value.
type ValueKind int

// The PDF value kinds.
const (
	Null ValueKind = iota
	Bool
	Integer
	Real
	String
	Name
	Dict
	Array
	Stream
)

// Kind reports the kind of value underlying v.
func (v Value) Kind() ValueKind {
	switch v.data.(type) {
	default:
		return Null
	case bool:
		return Bool
	case int64:
		return Integer
	case float64:
		return Real
	case string:
		return String
	case name:
		return Name
	case dict:
		return Dict
	case array:
		return Array
	case stream:
		return Stream
	}
}

// String returns a textual representation of the value v.
// Note that String is not the accessor for values with Kind() == String;
// see RawString and Text for those.
func (v Value) String() string {
	return objfmt(v.data)
}

func objfmt(x interface{}) string {
	switch x := x.(type) {
	default:
		return fmt.Sprint(x)
	case string:
		return strconv.Quote(x)
	case name:
		return "/" + string(x)
	case dict:
		var keys []string
		for k := range x {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteString("<<")
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString("/" + k + " " + objfmt(x[name(k)]))
		}
		buf.WriteString(">>")
		return buf.String()
	case array:
		var buf bytes.Buffer
		buf.WriteString("[")
		for i, elem := range x {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(objfmt(elem))
		}
		buf.WriteString("]")
		return buf.String()
	case stream:
		return fmt.Sprintf("%v@%d", objfmt(x.hdr), x.offset)
	case objptr:
		return fmt.Sprintf("%d %d R", x.id, x.gen)
	case objdef:
		return fmt.Sprintf("{%d %d obj}%v", x.ptr.id, x.ptr.gen, objfmt(x.obj))
	}
}

// Bool returns v's boolean value.
// If v.Kind() != Bool, Bool returns false.
func (v Value) Bool() bool {
	x, _ := v.data.(bool)
	return x
}

// Int64 returns v's int64 value.
// If v.Kind() != Integer, Int64 returns 0.
func (v Value) Int64() int64 {
	x, _ := v.data.(int64)
	return x
}

// Float64 returns v's float64 value, converting from integer if needed.
// If v.Kind() != Real and v.Kind() != Integer, Float64 returns 0.
func (v Value) Float64() float64 {
	switch x := v.data.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	}
	return 0
}

// RawString returns v's string value.
// If v.Kind() != String, RawString returns the empty string.
func (v Value) RawString() string {
	x, _ := v.data.(string)
	return x
}

// Text returns v's string value interpreted as a PDF text string:
// UTF-16BE with byte order mark converted to UTF-8, anything else
// returned as is.
func (v Value) Text() string {
	x, ok := v.data.(string)
	if !ok {
		return ""
	}
	if isUTF16(x) {
		return utf16Decode(x[2:])
	}
	return x
}

// Name returns v's name value, without the leading slash.
// If v.Kind() != Name, Name returns the empty string.
func (v Value) Name() string {
	x, _ := v.data.(name)
	return string(x)
}

// Key returns the value associated with the given name key in the
// dictionary v. The key should not include a leading slash.
// If v is a stream, Key applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Key returns a null Value.
func (v Value) Key(key string) Value {
	x, ok := v.data.(dict)
	if !ok {
		strm, ok := v.data.(stream)
		if !ok {
			return Value{}
		}
		x = strm.hdr
	}
	return v.r.resolve(v.ptr, x[name(key)])
}

// Keys returns a sorted list of the keys in the dictionary v.
// If v is a stream, Keys applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Keys returns nil.
func (v Value) Keys() []string {
	x, ok := v.data.(dict)
	if !ok {
		strm, ok := v.data.(stream)
		if !ok {
			return nil
		}
		x = strm.hdr
	}
	keys := []string{} // not nil
	for k := range x {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// Index returns the i'th element in the array v.
// If v.Kind() != Array or if i is outside the array bounds, Index
// returns a null Value.
func (v Value) Index(i int) Value {
	x, ok := v.data.(array)
	if !ok || i < 0 || i >= len(x) {
		return Value{}
	}
	return v.r.resolve(v.ptr, x[i])
}

// Len returns the length of the array v.
// If v.Kind() != Array, Len returns 0.
func (v Value) Len() int {
	x, _ := v.data.(array)
	return len(x)
}

func (r *Reader) resolve(parent objptr, x interface{}) Value {
	if ptr, ok := x.(objptr); ok {
		if ptr.id >= uint32(len(r.xref)) {
			return Value{}
		}
		entry := r.xref[ptr.id]
		if entry.ptr != ptr || !entry.inStream && entry.offset == 0 {
			return Value{}
		}
		if entry.inStream {
			strm := r.resolve(parent, entry.stream)
			x = r.findInObjStream(strm, ptr)
		} else {
			b := newBuffer(io.NewSectionReader(r.f, entry.offset, r.end-entry.offset), entry.offset)
			b.allowObjptr = true
			b.allowStream = true
			obj := b.readObject()
			def, ok := obj.(objdef)
			if !ok {
				logger.Error(fmt.Sprintf("loading object %d %d: found %T instead of object definition", ptr.id, ptr.gen, obj))
				panic(fmt.Errorf("loading object %d %d: found %T instead of object definition", ptr.id, ptr.gen, obj))
			}
			if def.ptr != ptr {
				logger.Error(fmt.Sprintf("loading object %d %d: found %d %d", ptr.id, ptr.gen, def.ptr.id, def.ptr.gen))
				panic(fmt.Errorf("loading object %d %d: found %d %d", ptr.id, ptr.gen, def.ptr.id, def.ptr.gen))
			}
			x = def.obj
		}
		parent = ptr
	}

	switch x := x.(type) {
	case nil, bool, int64, float64, name, dict, array, stream, string:
		return Value{r, parent, x}
	default:
		logger.Error(fmt.Sprintf("unexpected value type %T in resolve", x))
		panic(fmt.Errorf("unexpected value type %T in resolve", x))
	}
}

// findInObjStream locates a compressed object inside an /ObjStm
// container, following /Extends chains.
func (r *Reader) findInObjStream(strm Value, ptr objptr) object {
	visited := make(map[objptr]bool)
	for {
		if visited[strm.ptr] {
			logger.Error(fmt.Sprintf("loading object %d: object stream Extends chain loops", ptr.id))
			panic(fmt.Errorf("loading object %d: object stream Extends chain loops", ptr.id))
		}
		visited[strm.ptr] = true
		if strm.Kind() != Stream || strm.Key("Type").Name() != "ObjStm" {
			logger.Error(fmt.Sprintf("loading object %d: container is not an object stream", ptr.id))
			panic(fmt.Errorf("loading object %d: container is not an object stream", ptr.id))
		}
		n := int(strm.Key("N").Int64())
		first := strm.Key("First").Int64()
		if first == 0 {
			logger.Error("malformed PDF: object stream missing First")
			panic(errors.New("malformed PDF: object stream missing First"))
		}
		data, err := strm.DecodedStream()
		if err != nil {
			logger.Error(fmt.Sprintf("reading object stream: %v", err))
			panic(fmt.Errorf("reading object stream: %w", err))
		}
		b := newBuffer(bytes.NewReader(data), 0)
		b.allowEOF = true
		b.allowObjptr = true
		for i := 0; i < n; i++ {
			id, _ := b.readToken().(int64)
			off, _ := b.readToken().(int64)
			if uint32(id) == ptr.id {
				b.seekForward(first + off)
				return b.readObject()
			}
		}
		ext := strm.Key("Extends")
		if ext.Kind() != Stream {
			logger.Error(fmt.Sprintf("loading object %d: not found in object stream chain", ptr.id))
			panic(fmt.Errorf("loading object %d: not found in object stream chain", ptr.id))
		}
		strm = ext
	}
}

// RawStream returns the exact encoded payload bytes of the stream v,
// with no filters applied. For DCTDecode and JPXDecode image streams
// these bytes are the complete image file.
func (v Value) RawStream() ([]byte, error) {
	x, ok := v.data.(stream)
	if !ok {
		return nil, errors.New("stream not present")
	}
	n := v.Key("Length").Int64()
	if n < 0 {
		return nil, errors.New("malformed PDF: negative stream Length")
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(io.NewSectionReader(v.r.f, x.offset, n), data); err != nil {
		return nil, fmt.Errorf("reading stream payload: %w", err)
	}
	return data, nil
}

// FilterNames returns the stream's filter chain in application order.
// A stream with no /Filter entry yields nil.
func (v Value) FilterNames() []string {
	filter := v.Key("Filter")
	switch filter.Kind() {
	case Name:
		return []string{filter.Name()}
	case Array:
		var names []string
		for i := 0; i < filter.Len(); i++ {
			names = append(names, filter.Index(i).Name())
		}
		return names
	}
	return nil
}

// DecodedStream returns the stream's payload with its filter chain
// applied. FlateDecode (with PNG predictors), ASCII85Decode and
// ASCIIHexDecode are supported; any other filter yields an error
// rather than a panic, so one undecodable stream stays a local
// failure.
func (v Value) DecodedStream() ([]byte, error) {
	if v.Kind() != Stream {
		return nil, errors.New("stream not present")
	}
	raw, err := v.RawStream()
	if err != nil {
		return nil, err
	}

	filters := v.FilterNames()
	params := v.Key("DecodeParms")
	var rd io.Reader = bytes.NewReader(raw)
	for i, f := range filters {
		parm := params
		if params.Kind() == Array {
			parm = params.Index(i)
		}
		rd, err = applyFilter(rd, f, parm)
		if err != nil {
			return nil, err
		}
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("decoding stream: %w", err)
	}
	return data, nil
}

func applyFilter(rd io.Reader, filter string, parm Value) (io.Reader, error) {
	logger.Debug(fmt.Sprintf("stream: applying filter %s", filter))
	switch filter {
	case "FlateDecode", "Fl":
		zr, err := zlib.NewReader(rd)
		if err != nil {
			return nil, fmt.Errorf("FlateDecode: %w", err)
		}
		pred := parm.Key("Predictor").Int64()
		if pred <= 1 {
			return zr, nil
		}
		if pred < 10 {
			return nil, fmt.Errorf("unsupported FlateDecode predictor %d", pred)
		}
		columns := parm.Key("Columns").Int64()
		if columns <= 0 {
			columns = 1
		}
		colors := parm.Key("Colors").Int64()
		if colors <= 0 {
			colors = 1
		}
		bpc := parm.Key("BitsPerComponent").Int64()
		if bpc <= 0 {
			bpc = 8
		}
		return newPNGPredReader(zr, int(columns), int(colors), int(bpc)), nil
	case "ASCII85Decode", "A85":
		return ascii85.NewDecoder(newAlphaReader(rd)), nil
	case "ASCIIHexDecode", "AHx":
		return newHexReader(rd), nil
	default:
		return nil, fmt.Errorf("unsupported stream filter %s", filter)
	}
}

// pngPredReader undoes the PNG row filters (None/Sub/Up/Average/Paeth)
// that FlateDecode predictors 10-15 prepend to each row. Image streams
// commonly carry /Predictor 15, which mixes filter types per row, so
// all five are handled.
type pngPredReader struct {
	r     io.Reader
	bpp   int    // bytes per pixel, at least 1
	prior []byte // previous row, without the filter byte
	row   []byte // scratch: filter byte followed by row data
	pend  []byte // decoded bytes not yet delivered
	err   error
}

func newPNGPredReader(r io.Reader, columns, colors, bpc int) *pngPredReader {
	bpp := (colors*bpc + 7) / 8
	if bpp < 1 {
		bpp = 1
	}
	rowLen := (columns*colors*bpc + 7) / 8
	return &pngPredReader{
		r:     r,
		bpp:   bpp,
		prior: make([]byte, rowLen),
		row:   make([]byte, 1+rowLen),
	}
}

func (p *pngPredReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(p.pend) > 0 {
			m := copy(b, p.pend)
			n += m
			b = b[m:]
			p.pend = p.pend[m:]
			continue
		}
		if p.err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, p.err
		}
		if _, err := io.ReadFull(p.r, p.row); err != nil {
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			p.err = err
			continue
		}
		ft := p.row[0]
		cur := p.row[1:]
		switch ft {
		case 0: // None
		case 1: // Sub
			for i := p.bpp; i < len(cur); i++ {
				cur[i] += cur[i-p.bpp]
			}
		case 2: // Up
			for i := range cur {
				cur[i] += p.prior[i]
			}
		case 3: // Average
			for i := range cur {
				var left byte
				if i >= p.bpp {
					left = cur[i-p.bpp]
				}
				cur[i] += byte((int(left) + int(p.prior[i])) / 2)
			}
		case 4: // Paeth
			for i := range cur {
				var left, upLeft byte
				if i >= p.bpp {
					left = cur[i-p.bpp]
					upLeft = p.prior[i-p.bpp]
				}
				cur[i] += paethPredict(left, p.prior[i], upLeft)
			}
		default:
			p.err = fmt.Errorf("malformed predictor data: PNG filter type %d", ft)
			continue
		}
		copy(p.prior, cur)
		p.pend = cur
	}
	return n, nil
}

func paethPredict(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := intAbs(p-int(a)), intAbs(p-int(b)), intAbs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func intAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// alphaReader passes through the base-85 alphabet and the 'z' group
// shorthand, drops whitespace and anything else, and stops at the "~>"
// end-of-data marker.
type alphaReader struct {
	r    io.Reader
	done bool
}

func newAlphaReader(r io.Reader) *alphaReader {
	return &alphaReader{r: r}
}

func (a *alphaReader) Read(b []byte) (int, error) {
	for {
		if a.done {
			return 0, io.EOF
		}
		raw := make([]byte, len(b))
		n, err := a.r.Read(raw)
		out := 0
		for _, c := range raw[:n] {
			if c == '~' {
				a.done = true
				break
			}
			if c >= '!' && c <= 'u' || c == 'z' {
				b[out] = c
				out++
			}
		}
		if out > 0 || a.done {
			return out, nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// hexReader implements ASCIIHexDecode: hex digit pairs with arbitrary
// interleaved whitespace, terminated by '>', with an odd final digit
// padded by an implicit zero.
type hexReader struct {
	r    io.Reader
	done bool
	half int // pending high nibble, -1 when none
}

func newHexReader(r io.Reader) *hexReader {
	return &hexReader{r: r, half: -1}
}

func (h *hexReader) Read(b []byte) (int, error) {
	for {
		if h.done {
			return 0, io.EOF
		}
		raw := make([]byte, len(b))
		n, err := h.r.Read(raw)
		out := 0
		for _, c := range raw[:n] {
			if c == '>' {
				if h.half >= 0 {
					b[out] = byte(h.half << 4)
					out++
					h.half = -1
				}
				h.done = true
				break
			}
			if isSpace(c) {
				continue
			}
			x := unhex(c)
			if x < 0 {
				return out, fmt.Errorf("malformed ASCIIHexDecode data: byte %q", c)
			}
			if h.half < 0 {
				h.half = x
			} else {
				b[out] = byte(h.half<<4 | x)
				out++
				h.half = -1
			}
		}
		if out > 0 || h.done {
			return out, nil
		}
		if err != nil {
			if err == io.EOF && h.half >= 0 {
				// Truncated data without the '>' terminator; emit the
				// padded final byte anyway.
				b[0] = byte(h.half << 4)
				h.half = -1
				h.done = true
				return 1, nil
			}
			return 0, err
		}
	}
}
