// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package wirebin

import "encoding/json"

// formatVersion is the wire format version written as the first byte of
// every encoded stream.
const formatVersion = 2

// Wire tags. A tag is a single byte. Tags with the upper three bits set
// carry a size in the low five bits (extended by a variable-length integer
// when the five bits saturate); bare tags encode their size, if any, as a
// separate variable-length integer following the tag byte.
const (
	tagNull      byte = 0x00
	tagBoolTrue  byte = 0x01
	tagBoolFalse byte = 0x02
	tagInt8      byte = 0x03
	tagInt16     byte = 0x04
	tagFloat64   byte = 0x05
	tagInt32     byte = 0x06
	tagInt64     byte = 0x07
	tagFloat32   byte = 0x08
	tagDate      byte = 0x09
	tagMap       byte = 0x0A
	tagBytes     byte = 0x0D
	tagIterator  byte = 0x0E
	tagEnd       byte = 0x0F
	tagDocument  byte = 0x10
	tagPair      byte = 0x13

	// Upper-three-bit tags.
	tagString        byte = 0x01 << 5
	tagSmallInt      byte = 0x02 << 5
	tagSmallLong     byte = 0x03 << 5
	tagArray         byte = 0x04 << 5
	tagOrderedRecord byte = 0x05 << 5 // legacy alias of tagNamedList
	tagNamedList     byte = 0x06 << 5
	tagExternString  byte = 0x07 << 5
)

// EndMarker is the type of the End sentinel.
type EndMarker struct{}

// End terminates iterator sequences on the wire. ReadValue returns End when
// it reads the end tag; iterating callers compare against it directly.
var End EndMarker

// RawString is a wire string left as its raw UTF-8 bytes. The decoder
// produces RawString instead of string when its RawStrings mode is on,
// deferring the string conversion to whoever reads the value.
type RawString []byte

func (s RawString) String() string { return string(s) }

// MarshalJSON renders a raw string as a JSON string rather than base64.
func (s RawString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// MapEntry is a single key/value pair decoded from (or encoded to) the wire
// as a standalone value.
type MapEntry struct {
	Key   any
	Value any
}

// NamedList is an ordered sequence of name/value entries. Duplicate names
// are allowed and insertion order is significant. The zero value is an
// empty list ready for use.
type NamedList struct {
	names  []string
	values []any
}

// Add appends an entry. Duplicate names are kept.
func (nl *NamedList) Add(name string, value any) {
	nl.names = append(nl.names, name)
	nl.values = append(nl.values, value)
}

// Len returns the number of entries.
func (nl *NamedList) Len() int { return len(nl.names) }

// Name returns the name at position i, or "" when out of range.
func (nl *NamedList) Name(i int) string {
	if i < 0 || i >= len(nl.names) {
		return ""
	}
	return nl.names[i]
}

// Value returns the value at position i, or nil when out of range.
func (nl *NamedList) Value(i int) any {
	if i < 0 || i >= len(nl.values) {
		return nil
	}
	return nl.values[i]
}

// Get returns the value of the first entry with the given name, or nil if
// no entry matches.
func (nl *NamedList) Get(name string) any {
	for i, n := range nl.names {
		if n == name {
			return nl.values[i]
		}
	}
	return nil
}

// OrderedMap is a string-keyed map that preserves insertion order. Setting
// an existing key replaces its value in place.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty ordered map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]any)}
}

// Set records value under key, replacing any previous value.
func (m *OrderedMap) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key and whether the key is present.
func (m *OrderedMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order. The returned slice is shared
// with the map and must not be modified.
func (m *OrderedMap) Keys() []string { return m.keys }

// Len returns the number of keys.
func (m *OrderedMap) Len() int { return len(m.keys) }

// Iterator yields the values of an open-ended wire sequence. The encoder
// writes each value Next produces until Next reports false, then writes the
// end marker. This is how large document batches are encoded without being
// materialized.
type Iterator interface {
	Next() (any, bool)
}
