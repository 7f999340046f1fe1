// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"reflect"
	"testing"

	"github.com/indexfeed/indexfeed/document"
	"github.com/indexfeed/indexfeed/update"
	"github.com/indexfeed/indexfeed/wirebin"
)

func TestPlainDocumentFlattensChildren(t *testing.T) {
	t.Parallel()
	doc := document.New()
	doc.Add("id", "p")
	doc.Add("tag", "a")
	doc.Add("tag", "b")
	child := document.New()
	child.Add("id", "p.1")
	doc.AddChild(child)

	got := plainDocument(doc)
	want := map[string]any{
		"id":  "p",
		"tag": []any{"a", "b"},
		"_childDocuments_": []any{
			map[string]any{"id": "p.1"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestPlainValueConvertsWireTypes(t *testing.T) {
	t.Parallel()
	nl := new(wirebin.NamedList)
	nl.Add("k", wirebin.RawString("raw"))
	m := wirebin.NewOrderedMap()
	m.Set("inner", nl)

	got := plainValue(m)
	want := map[string]any{
		"inner": map[string]any{"k": "raw"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestPlainParamsSingleAndMulti(t *testing.T) {
	t.Parallel()
	params := update.NewParams()
	params.Set("q", "*:*")
	params.Add("fl", "id")
	params.Add("fl", "title")

	got := plainParams(params)
	want := map[string]any{
		"q":  "*:*",
		"fl": []string{"id", "title"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
	if got := plainParams(nil); len(got) != 0 {
		t.Errorf("nil params: got %v", got)
	}
}

func TestPlainDeletesOmitsAbsentMeta(t *testing.T) {
	t.Parallel()
	version := int64(7)
	got := plainDeletes([]update.IDDelete{
		{ID: "a"},
		{ID: "b", Route: "shard1", Version: &version},
	})
	want := []map[string]any{
		{"id": "a"},
		{"id": "b", "route": "shard1", "version": int64(7)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}
