// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package wirebin

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/indexfeed/indexfeed/document"
)

func roundTrip(t *testing.T, value any) any {
	t.Helper()
	var buffer bytes.Buffer
	if err := NewEncoder(&buffer).Marshal(value); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := NewDecoder(&buffer).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestScalarRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"null", nil, nil},
		{"true", true, true},
		{"false", false, false},
		{"empty string", "", ""},
		{"string", "hello wire", "hello wire"},
		{"int8", int8(-3), int8(-3)},
		{"int16", int16(-300), int16(-300)},
		{"small int", int32(7), int32(7)},
		{"packed int", int32(123456), int32(123456)},
		{"zero int", int32(0), int32(0)},
		{"negative int", int32(-42), int32(-42)},
		{"plain int narrows", 42, int32(42)},
		{"wide int stays long", int64(1) << 40, int64(1) << 40},
		{"negative long", int64(-9), int64(-9)},
		{"float32", float32(2.5), float32(2.5)},
		{"float64", 3.25, 3.25},
		{"date", time.UnixMilli(1700000000000).UTC(), time.UnixMilli(1700000000000).UTC()},
		{"bytes", []byte{0x01, 0x02, 0xFF}, []byte{0x01, 0x02, 0xFF}},
		{"array", []any{"a", int32(1), nil}, []any{"a", int32(1), nil}},
		{"string array", []string{"x", "y"}, []any{"x", "y"}},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := roundTrip(t, test.value)
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("got %#v, want %#v", got, test.want)
			}
		})
	}
}

func TestNamedListRoundTrip(t *testing.T) {
	t.Parallel()
	nl := new(NamedList)
	nl.Add("first", "1")
	nl.Add("dup", int32(2))
	nl.Add("dup", int32(3))
	nl.Add("last", nil)

	got, ok := roundTrip(t, nl).(*NamedList)
	if !ok {
		t.Fatal("decoded value is not a *NamedList")
	}
	if got.Len() != 4 {
		t.Fatalf("Len: got %d, want 4", got.Len())
	}
	wantNames := []string{"first", "dup", "dup", "last"}
	for i, want := range wantNames {
		if got.Name(i) != want {
			t.Errorf("name[%d]: got %q, want %q", i, got.Name(i), want)
		}
	}
	if got.Get("dup") != int32(2) {
		t.Errorf("Get(dup): got %v, want first occurrence 2", got.Get("dup"))
	}
}

func TestOrderedMapRoundTrip(t *testing.T) {
	t.Parallel()
	m := NewOrderedMap()
	m.Set("zebra", "z")
	m.Set("alpha", "a")
	m.Set("mid", int64(9))

	got, ok := roundTrip(t, m).(*OrderedMap)
	if !ok {
		t.Fatal("decoded value is not an *OrderedMap")
	}
	if !reflect.DeepEqual(got.Keys(), []string{"zebra", "alpha", "mid"}) {
		t.Errorf("key order: got %v", got.Keys())
	}
	if v, _ := got.Get("mid"); v != int64(9) {
		t.Errorf("mid: got %v, want 9", v)
	}
}

func TestMapEntryRoundTrip(t *testing.T) {
	t.Parallel()
	got, ok := roundTrip(t, MapEntry{Key: "k", Value: int32(5)}).(MapEntry)
	if !ok {
		t.Fatal("decoded value is not a MapEntry")
	}
	if got.Key != "k" || got.Value != int32(5) {
		t.Errorf("got %+v", got)
	}
}

type sliceIterator struct {
	items []any
	next  int
}

func (it *sliceIterator) Next() (any, bool) {
	if it.next >= len(it.items) {
		return nil, false
	}
	item := it.items[it.next]
	it.next++
	return item, true
}

func TestIteratorMaterializesWithoutHook(t *testing.T) {
	t.Parallel()
	got := roundTrip(t, &sliceIterator{items: []any{"a", "b", "c"}})
	if !reflect.DeepEqual(got, []any{"a", "b", "c"}) {
		t.Errorf("got %#v", got)
	}
}

func TestIteratorHookIntercepts(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	if err := NewEncoder(&buffer).Marshal(&sliceIterator{items: []any{int32(1), int32(2)}}); err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoder := NewDecoder(&buffer)
	hookCalls := 0
	decoder.ReadIterator = func(d *Decoder) (any, error) {
		hookCalls++
		var seen []any
		for {
			value, err := d.ReadValue()
			if err != nil {
				return nil, err
			}
			if value == End {
				return seen, nil
			}
			seen = append(seen, value)
		}
	}
	got, err := decoder.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if hookCalls != 1 {
		t.Errorf("hook calls: got %d, want 1", hookCalls)
	}
	if !reflect.DeepEqual(got, []any{int32(1), int32(2)}) {
		t.Errorf("got %#v", got)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	t.Parallel()
	doc := document.New()
	doc.Add("id", "42")
	doc.Add("tag", "a")
	doc.Add("tag", "b")
	child := document.New()
	child.Add("id", "42.1")
	doc.AddChild(child)

	got, ok := roundTrip(t, doc).(*document.Document)
	if !ok {
		t.Fatal("decoded value is not a *document.Document")
	}
	if !reflect.DeepEqual(got.FieldNames(), []string{"id", "tag"}) {
		t.Errorf("field order: got %v", got.FieldNames())
	}
	if got.Value("id") != "42" {
		t.Errorf("id: got %v", got.Value("id"))
	}
	if !reflect.DeepEqual(got.Value("tag"), []any{"a", "b"}) {
		t.Errorf("tag: got %v", got.Value("tag"))
	}
	children := got.Children()
	if len(children) != 1 || children[0].Value("id") != "42.1" {
		t.Errorf("children: got %v", children)
	}
}

func TestBackReferencedNamesShrinkOutput(t *testing.T) {
	t.Parallel()
	repeated := new(NamedList)
	repeated.Add("a_rather_long_field_name", int32(1))
	repeated.Add("a_rather_long_field_name", int32(2))

	var buffer bytes.Buffer
	if err := NewEncoder(&buffer).Marshal(repeated); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// The second occurrence must cost a back-reference, not a second copy
	// of the name.
	nameLength := len("a_rather_long_field_name")
	if buffer.Len() >= 2*nameLength {
		t.Errorf("encoded size %d suggests the repeated name was written twice", buffer.Len())
	}

	decoded, err := NewDecoder(&buffer).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := decoded.(*NamedList)
	if !ok {
		t.Fatal("decoded value is not a *NamedList")
	}
	if got.Name(0) != got.Name(1) || got.Name(0) != "a_rather_long_field_name" {
		t.Errorf("names: got %q, %q", got.Name(0), got.Name(1))
	}
}

func TestRawStringsMode(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	if err := NewEncoder(&buffer).Marshal("lazy"); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoder := NewDecoder(&buffer)
	decoder.RawStrings = true
	got, err := decoder.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	raw, ok := got.(RawString)
	if !ok {
		t.Fatalf("got %T, want RawString", got)
	}
	if raw.String() != "lazy" {
		t.Errorf("got %q", raw.String())
	}
}

func TestMalformedStream(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input []byte
	}{
		{"unknown tag", []byte{formatVersion, 0x1F}},
		{"bad version", []byte{9, tagNull}},
		{"dangling back-reference", []byte{formatVersion, tagExternString | 5}},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewDecoder(bytes.NewReader(test.input)).Decode()
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("got %v, want ErrMalformed", err)
			}
		})
	}
}

func TestTruncatedStreamSurfacesIOError(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	if err := NewEncoder(&buffer).Marshal("a longer string value"); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	truncated := buffer.Bytes()[:buffer.Len()/2]
	_, err := NewDecoder(bytes.NewReader(truncated)).Decode()
	if err == nil {
		t.Fatal("decoding a truncated stream succeeded")
	}
	if errors.Is(err, ErrMalformed) {
		t.Errorf("truncation misclassified as malformed: %v", err)
	}
}
