// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package wirebin

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/indexfeed/indexfeed/document"
)

// ErrMalformed reports that the stream does not decode as tagged values.
// It wraps every structural decode error; I/O errors from the underlying
// reader bubble through unwrapped.
var ErrMalformed = errors.New("wirebin: malformed stream")

// maxSizedValue caps the declared size of a single string, byte array, or
// back-reference table, so a corrupt length prefix cannot drive a huge
// allocation.
const maxSizedValue = 1 << 30

// Decoder reads tagged values from an input stream, mirroring the string
// back-reference table built up by the encoder on the other end.
//
// The exported function fields customize decoding mid-stream; all are
// optional. They exist for protocol layers that need to intervene while a
// value is still being decoded — most importantly streaming consumers that
// must see a sequence's items one at a time instead of materialized.
type Decoder struct {
	// RawStrings, when true, decodes wire strings as RawString instead of
	// string, leaving the conversion to the reader. Back-referenced names
	// (field names, record keys) always decode as string.
	RawStrings bool

	// ReadIterator, if non-nil, is invoked whenever an iterator tag is
	// read, in place of collecting the sequence into a slice. The callback
	// must consume the sequence through ReadValue up to and including the
	// End marker, or delegate to CollectIterator.
	ReadIterator func(d *Decoder) (any, error)

	// OnNamedList, if non-nil, is invoked with each named list as its
	// decoding begins, before any entries are read. The list fills in as
	// decoding proceeds, so a callback that retains it observes entries
	// appearing in wire order.
	OnNamedList func(nl *NamedList)

	// NewDocument, if non-nil, allocates the documents produced by the
	// decoder. fieldCount is the wire-declared entry count (fields plus
	// children). When nil, plain documents are allocated.
	NewDocument func(fieldCount int) *document.Document

	r       *bufio.Reader
	strings []string
	scratch [8]byte
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the format version byte followed by one value.
func (d *Decoder) Decode() (any, error) {
	version, err := d.r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrMalformed, version)
	}
	return d.ReadValue()
}

// ReadValue reads one tagged value. Iterator sequences return End when the
// end marker itself is read.
func (d *Decoder) ReadValue() (any, error) {
	tag, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch tag & 0xE0 {
	case tagString:
		return d.readString(tag)
	case tagSmallInt:
		return d.readSmallInt(tag)
	case tagSmallLong:
		return d.readSmallLong(tag)
	case tagArray:
		return d.readArray(tag)
	case tagOrderedRecord, tagNamedList:
		return d.readNamedList(tag)
	case tagExternString:
		return d.readExternString(tag)
	}

	switch tag {
	case tagNull:
		return nil, nil
	case tagBoolTrue:
		return true, nil
	case tagBoolFalse:
		return false, nil
	case tagInt8:
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		return int8(b), nil
	case tagInt16:
		if err := d.readScratch(2); err != nil {
			return nil, err
		}
		return int16(binary.BigEndian.Uint16(d.scratch[:2])), nil
	case tagInt32:
		if err := d.readScratch(4); err != nil {
			return nil, err
		}
		return int32(binary.BigEndian.Uint32(d.scratch[:4])), nil
	case tagInt64:
		if err := d.readScratch(8); err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(d.scratch[:8])), nil
	case tagFloat32:
		if err := d.readScratch(4); err != nil {
			return nil, err
		}
		return math.Float32frombits(binary.BigEndian.Uint32(d.scratch[:4])), nil
	case tagFloat64:
		if err := d.readScratch(8); err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(d.scratch[:8])), nil
	case tagDate:
		if err := d.readScratch(8); err != nil {
			return nil, err
		}
		millis := int64(binary.BigEndian.Uint64(d.scratch[:8]))
		return time.UnixMilli(millis).UTC(), nil
	case tagBytes:
		size, err := d.readVInt()
		if err != nil {
			return nil, err
		}
		if size > maxSizedValue {
			return nil, fmt.Errorf("%w: byte array length %d exceeds maximum", ErrMalformed, size)
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return nil, err
		}
		return buf, nil
	case tagMap:
		return d.readOrderedMap()
	case tagIterator:
		if d.ReadIterator != nil {
			return d.ReadIterator(d)
		}
		return d.CollectIterator()
	case tagEnd:
		return End, nil
	case tagDocument:
		return d.readDocument()
	case tagPair:
		key, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		value, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		return MapEntry{Key: key, Value: value}, nil
	}
	return nil, fmt.Errorf("%w: unknown tag 0x%02x", ErrMalformed, tag)
}

// CollectIterator reads values up to the next End marker and returns them
// as a slice. This is the default materializing behavior for iterator
// sequences; ReadIterator callbacks delegate to it for sequences they do
// not intercept.
func (d *Decoder) CollectIterator() ([]any, error) {
	var items []any
	for {
		value, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		if value == End {
			return items, nil
		}
		items = append(items, value)
	}
}

func (d *Decoder) readScratch(n int) error {
	_, err := io.ReadFull(d.r, d.scratch[:n])
	return err
}

// readSize extracts the size folded into an upper-three-bit tag, extending
// it with a variable-length integer when the five bits saturate.
func (d *Decoder) readSize(tag byte) (int, error) {
	size := int(tag & 0x1F)
	if size == 0x1F {
		extra, err := d.readVInt()
		if err != nil {
			return 0, err
		}
		size += extra
	}
	return size, nil
}

func (d *Decoder) readVInt() (int, error) {
	var value uint64
	for shift := 0; ; shift += 7 {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		if shift > 56 {
			return 0, fmt.Errorf("%w: variable-length integer overflow", ErrMalformed)
		}
	}
	if value > math.MaxInt {
		return 0, fmt.Errorf("%w: variable-length integer overflow", ErrMalformed)
	}
	return int(value), nil
}

func (d *Decoder) readSmallInt(tag byte) (int32, error) {
	value := int32(tag & 0x0F)
	if tag&0x10 != 0 {
		rest, err := d.readVInt()
		if err != nil {
			return 0, err
		}
		value |= int32(rest) << 4
	}
	return value, nil
}

func (d *Decoder) readSmallLong(tag byte) (int64, error) {
	value := int64(tag & 0x0F)
	if tag&0x10 != 0 {
		rest, err := d.readVInt()
		if err != nil {
			return 0, err
		}
		value |= int64(rest) << 4
	}
	return value, nil
}

// readString returns a string, or a RawString when RawStrings mode is on.
func (d *Decoder) readString(tag byte) (any, error) {
	size, err := d.readSize(tag)
	if err != nil {
		return nil, err
	}
	if size > maxSizedValue {
		return nil, fmt.Errorf("%w: string length %d exceeds maximum", ErrMalformed, size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	if d.RawStrings {
		return RawString(buf), nil
	}
	return string(buf), nil
}

// readExternString resolves a back-referenced string. Index zero introduces
// a new string, written inline immediately after the tag; any other index
// is a one-based reference into the table of strings introduced so far.
// Back-referenced strings always decode as string regardless of RawStrings.
func (d *Decoder) readExternString(tag byte) (string, error) {
	index, err := d.readSize(tag)
	if err != nil {
		return "", err
	}
	if index != 0 {
		if index > len(d.strings) {
			return "", fmt.Errorf("%w: string back-reference %d out of range", ErrMalformed, index)
		}
		return d.strings[index-1], nil
	}
	inner, err := d.r.ReadByte()
	if err != nil {
		return "", err
	}
	if inner&0xE0 != tagString {
		return "", fmt.Errorf("%w: expected string after back-reference introduction, got tag 0x%02x", ErrMalformed, inner)
	}
	size, err := d.readSize(inner)
	if err != nil {
		return "", err
	}
	if size > maxSizedValue {
		return "", fmt.Errorf("%w: string length %d exceeds maximum", ErrMalformed, size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	s := string(buf)
	if len(d.strings) >= maxSizedValue {
		return "", fmt.Errorf("%w: string table overflow", ErrMalformed)
	}
	d.strings = append(d.strings, s)
	return s, nil
}

func (d *Decoder) readArray(tag byte) ([]any, error) {
	size, err := d.readSize(tag)
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, min(size, 1024))
	for i := 0; i < size; i++ {
		value, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		items = append(items, value)
	}
	return items, nil
}

func (d *Decoder) readNamedList(tag byte) (*NamedList, error) {
	size, err := d.readSize(tag)
	if err != nil {
		return nil, err
	}
	nl := new(NamedList)
	if d.OnNamedList != nil {
		d.OnNamedList(nl)
	}
	for i := 0; i < size; i++ {
		nameValue, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		name, err := keyString(nameValue)
		if err != nil {
			return nil, err
		}
		value, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		nl.Add(name, value)
	}
	return nl, nil
}

func (d *Decoder) readOrderedMap() (*OrderedMap, error) {
	size, err := d.readVInt()
	if err != nil {
		return nil, err
	}
	m := NewOrderedMap()
	for i := 0; i < size; i++ {
		keyValue, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		key, err := keyString(keyValue)
		if err != nil {
			return nil, err
		}
		value, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		m.Set(key, value)
	}
	return m, nil
}

// readDocument reads a document's entries: a field name followed by its
// value, or a nested document, which attaches as a child.
func (d *Decoder) readDocument() (*document.Document, error) {
	size, err := d.readVInt()
	if err != nil {
		return nil, err
	}
	doc := d.newDocument(size)
	for i := 0; i < size; i++ {
		entry, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		if child, ok := entry.(*document.Document); ok {
			doc.AddChild(child)
			continue
		}
		name, err := keyString(entry)
		if err != nil {
			return nil, err
		}
		value, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		doc.Add(name, value)
	}
	return doc, nil
}

func (d *Decoder) newDocument(fieldCount int) *document.Document {
	if d.NewDocument != nil {
		return d.NewDocument(fieldCount)
	}
	return document.New()
}

// keyString coerces a decoded name or key to string. Names arrive as plain
// strings, back-referenced strings, or raw strings when RawStrings is on.
func keyString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case RawString:
		return string(v), nil
	}
	return "", fmt.Errorf("%w: expected string key, got %T", ErrMalformed, value)
}
