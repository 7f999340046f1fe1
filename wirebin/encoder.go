// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package wirebin

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/indexfeed/indexfeed/document"
)

// Encoder writes tagged values to an output stream. An encoder carries a
// string back-reference table, so a name written twice costs one byte the
// second time; the table is shared across every value written through the
// same encoder and is mirrored by the decoder on the other end.
type Encoder struct {
	w       *bufio.Writer
	strings map[string]int
	scratch [8]byte
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Marshal writes the format version byte followed by value, then flushes.
func (e *Encoder) Marshal(value any) error {
	if err := e.w.WriteByte(formatVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := e.WriteValue(value); err != nil {
		return err
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// WriteValue writes one tagged value.
func (e *Encoder) WriteValue(value any) error {
	switch v := value.(type) {
	case nil:
		return e.w.WriteByte(tagNull)
	case bool:
		if v {
			return e.w.WriteByte(tagBoolTrue)
		}
		return e.w.WriteByte(tagBoolFalse)
	case string:
		return e.writeString(v)
	case RawString:
		return e.writeStringBytes([]byte(v))
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return e.writeInt32(int32(v))
		}
		return e.writeInt64(int64(v))
	case int8:
		if err := e.w.WriteByte(tagInt8); err != nil {
			return err
		}
		return e.w.WriteByte(byte(v))
	case int16:
		if err := e.w.WriteByte(tagInt16); err != nil {
			return err
		}
		binary.BigEndian.PutUint16(e.scratch[:2], uint16(v))
		return e.writeScratch(2)
	case int32:
		return e.writeInt32(v)
	case int64:
		return e.writeInt64(v)
	case float32:
		if err := e.w.WriteByte(tagFloat32); err != nil {
			return err
		}
		binary.BigEndian.PutUint32(e.scratch[:4], math.Float32bits(v))
		return e.writeScratch(4)
	case float64:
		if err := e.w.WriteByte(tagFloat64); err != nil {
			return err
		}
		binary.BigEndian.PutUint64(e.scratch[:8], math.Float64bits(v))
		return e.writeScratch(8)
	case time.Time:
		if err := e.w.WriteByte(tagDate); err != nil {
			return err
		}
		binary.BigEndian.PutUint64(e.scratch[:8], uint64(v.UnixMilli()))
		return e.writeScratch(8)
	case []byte:
		if err := e.w.WriteByte(tagBytes); err != nil {
			return err
		}
		if err := e.writeVInt(uint64(len(v))); err != nil {
			return err
		}
		_, err := e.w.Write(v)
		return err
	case []any:
		if err := e.writeSizedTag(tagArray, len(v)); err != nil {
			return err
		}
		for _, item := range v {
			if err := e.WriteValue(item); err != nil {
				return err
			}
		}
		return nil
	case []string:
		if err := e.writeSizedTag(tagArray, len(v)); err != nil {
			return err
		}
		for _, item := range v {
			if err := e.writeString(item); err != nil {
				return err
			}
		}
		return nil
	case []*document.Document:
		if err := e.writeSizedTag(tagArray, len(v)); err != nil {
			return err
		}
		for _, item := range v {
			if err := e.writeDocument(item); err != nil {
				return err
			}
		}
		return nil
	case *document.Document:
		return e.writeDocument(v)
	case *NamedList:
		return e.writeNamedList(v)
	case *OrderedMap:
		return e.writeOrderedMap(v)
	case MapEntry:
		if err := e.w.WriteByte(tagPair); err != nil {
			return err
		}
		if err := e.WriteValue(v.Key); err != nil {
			return err
		}
		return e.WriteValue(v.Value)
	case Iterator:
		if err := e.w.WriteByte(tagIterator); err != nil {
			return err
		}
		for {
			item, ok := v.Next()
			if !ok {
				break
			}
			if err := e.WriteValue(item); err != nil {
				return err
			}
		}
		return e.w.WriteByte(tagEnd)
	case map[string]any:
		return e.writePlainMap(v)
	default:
		return fmt.Errorf("wirebin: cannot encode value of type %T", value)
	}
}

func (e *Encoder) writeScratch(n int) error {
	_, err := e.w.Write(e.scratch[:n])
	return err
}

// writeSizedTag writes an upper-three-bit tag with its size folded into the
// low five bits, spilling into a variable-length integer when it saturates.
func (e *Encoder) writeSizedTag(tag byte, size int) error {
	if size < 0x1F {
		return e.w.WriteByte(tag | byte(size))
	}
	if err := e.w.WriteByte(tag | 0x1F); err != nil {
		return err
	}
	return e.writeVInt(uint64(size - 0x1F))
}

// writeVInt writes an unsigned integer seven bits at a time, low bits
// first, with the high bit of each byte marking continuation.
func (e *Encoder) writeVInt(v uint64) error {
	for v&^0x7F != 0 {
		if err := e.w.WriteByte(byte(v&0x7F) | 0x80); err != nil {
			return err
		}
		v >>= 7
	}
	return e.w.WriteByte(byte(v))
}

func (e *Encoder) writeInt32(v int32) error {
	if v > 0 {
		// Positive integers pack their low four bits into the tag byte,
		// with bit 0x10 marking that the remaining bits follow.
		tag := tagSmallInt | byte(v&0x0F)
		if v >= 0x0F {
			if err := e.w.WriteByte(tag | 0x10); err != nil {
				return err
			}
			return e.writeVInt(uint64(uint32(v) >> 4))
		}
		return e.w.WriteByte(tag)
	}
	if err := e.w.WriteByte(tagInt32); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(e.scratch[:4], uint32(v))
	return e.writeScratch(4)
}

func (e *Encoder) writeInt64(v int64) error {
	if v > 0 {
		tag := tagSmallLong | byte(v&0x0F)
		if v >= 0x0F {
			if err := e.w.WriteByte(tag | 0x10); err != nil {
				return err
			}
			return e.writeVInt(uint64(v) >> 4)
		}
		return e.w.WriteByte(tag)
	}
	if err := e.w.WriteByte(tagInt64); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(e.scratch[:8], uint64(v))
	return e.writeScratch(8)
}

func (e *Encoder) writeString(s string) error {
	if err := e.writeSizedTag(tagString, len(s)); err != nil {
		return err
	}
	_, err := e.w.WriteString(s)
	return err
}

func (e *Encoder) writeStringBytes(b []byte) error {
	if err := e.writeSizedTag(tagString, len(b)); err != nil {
		return err
	}
	_, err := e.w.Write(b)
	return err
}

// writeExternString writes s through the back-reference table: a previously
// written string becomes a one-byte (plus size) reference, a new string is
// written inline and assigned the next table index.
func (e *Encoder) writeExternString(s string) error {
	if index, ok := e.strings[s]; ok {
		return e.writeSizedTag(tagExternString, index)
	}
	if err := e.writeSizedTag(tagExternString, 0); err != nil {
		return err
	}
	if err := e.writeString(s); err != nil {
		return err
	}
	if e.strings == nil {
		e.strings = make(map[string]int)
	}
	e.strings[s] = len(e.strings) + 1
	return nil
}

func (e *Encoder) writeNamedList(nl *NamedList) error {
	if err := e.writeSizedTag(tagNamedList, nl.Len()); err != nil {
		return err
	}
	for i := 0; i < nl.Len(); i++ {
		if err := e.writeExternString(nl.Name(i)); err != nil {
			return err
		}
		if err := e.WriteValue(nl.Value(i)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeOrderedMap(m *OrderedMap) error {
	if err := e.w.WriteByte(tagMap); err != nil {
		return err
	}
	if err := e.writeVInt(uint64(m.Len())); err != nil {
		return err
	}
	for _, key := range m.Keys() {
		value, _ := m.Get(key)
		if err := e.writeExternString(key); err != nil {
			return err
		}
		if err := e.WriteValue(value); err != nil {
			return err
		}
	}
	return nil
}

// writePlainMap writes a Go map with sorted keys so the same logical map
// always produces identical bytes.
func (e *Encoder) writePlainMap(m map[string]any) error {
	if err := e.w.WriteByte(tagMap); err != nil {
		return err
	}
	if err := e.writeVInt(uint64(len(m))); err != nil {
		return err
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := e.writeExternString(key); err != nil {
			return err
		}
		if err := e.WriteValue(m[key]); err != nil {
			return err
		}
	}
	return nil
}

// writeDocument writes a document as its field entries followed by its
// child documents, all under one size count. The decoder tells children
// apart from field names by their tag.
func (e *Encoder) writeDocument(doc *document.Document) error {
	if err := e.w.WriteByte(tagDocument); err != nil {
		return err
	}
	names := doc.FieldNames()
	children := doc.Children()
	if err := e.writeVInt(uint64(len(names) + len(children))); err != nil {
		return err
	}
	for _, name := range names {
		if err := e.writeExternString(name); err != nil {
			return err
		}
		if err := e.WriteValue(doc.RawValue(name)); err != nil {
			return err
		}
	}
	for _, child := range children {
		if err := e.writeDocument(child); err != nil {
			return err
		}
	}
	return nil
}
