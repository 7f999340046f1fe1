// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"reflect"
	"strings"
	"testing"
)

func TestAddPreservesOrderAndMergesValues(t *testing.T) {
	t.Parallel()
	doc := New()
	doc.Add("id", "1")
	doc.Add("tag", "a")
	doc.Add("title", "hello")
	doc.Add("tag", "b")
	doc.Add("tag", "c")

	wantOrder := []string{"id", "tag", "title"}
	if got := doc.FieldNames(); !reflect.DeepEqual(got, wantOrder) {
		t.Errorf("field order: got %v, want %v", got, wantOrder)
	}
	if got := doc.Value("id"); got != "1" {
		t.Errorf("id: got %v, want 1", got)
	}
	wantTags := []any{"a", "b", "c"}
	if got := doc.Value("tag"); !reflect.DeepEqual(got, wantTags) {
		t.Errorf("tag: got %v, want %v", got, wantTags)
	}
	if doc.Len() != 3 {
		t.Errorf("Len: got %d, want 3", doc.Len())
	}
}

func TestSetReplacesValues(t *testing.T) {
	t.Parallel()
	doc := New()
	doc.Add("tag", "a")
	doc.Add("tag", "b")
	doc.Set("tag", "only")

	if got := doc.Value("tag"); got != "only" {
		t.Errorf("tag: got %v, want only", got)
	}
	if got := doc.FieldNames(); !reflect.DeepEqual(got, []string{"tag"}) {
		t.Errorf("field order: got %v", got)
	}
}

func TestValueAbsentField(t *testing.T) {
	t.Parallel()
	doc := New()
	if got := doc.Value("missing"); got != nil {
		t.Errorf("missing field: got %v, want nil", got)
	}
	if doc.Has("missing") {
		t.Error("Has(missing): got true")
	}
}

func TestChildrenPreserveOrder(t *testing.T) {
	t.Parallel()
	parent := New()
	parent.Add("id", "p")
	first := New()
	first.Add("id", "c1")
	second := New()
	second.Add("id", "c2")
	parent.AddChild(first)
	parent.AddChild(second)

	children := parent.Children()
	if len(children) != 2 {
		t.Fatalf("children: got %d, want 2", len(children))
	}
	if children[0].Value("id") != "c1" || children[1].Value("id") != "c2" {
		t.Errorf("child order: got %v, %v", children[0].Value("id"), children[1].Value("id"))
	}
}

func TestTransformAppliesOnReadOnly(t *testing.T) {
	t.Parallel()
	calls := 0
	doc := NewWithTransform(func(v any) any {
		calls++
		if s, ok := v.(string); ok {
			return strings.ToUpper(s)
		}
		return v
	})
	doc.Add("title", "hello")

	if calls != 0 {
		t.Fatalf("transform ran %d times before any read", calls)
	}
	if got := doc.RawValue("title"); got != "hello" {
		t.Errorf("RawValue: got %v, want untransformed hello", got)
	}
	if got := doc.Value("title"); got != "HELLO" {
		t.Errorf("Value: got %v, want HELLO", got)
	}
	if calls != 1 {
		t.Errorf("transform calls after one read: got %d, want 1", calls)
	}
}
