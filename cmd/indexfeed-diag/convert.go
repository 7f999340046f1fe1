// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/indexfeed/indexfeed/document"
	"github.com/indexfeed/indexfeed/update"
	"github.com/indexfeed/indexfeed/wirebin"
)

// plainDocument converts a document to plain Go values suitable for JSON
// or CBOR re-encoding. Field order is lost in the map representation;
// this is a display tool, not a round-trip path.
func plainDocument(doc *document.Document) map[string]any {
	out := make(map[string]any, doc.Len())
	for _, name := range doc.FieldNames() {
		out[name] = plainValue(doc.Value(name))
	}
	if children := doc.Children(); len(children) > 0 {
		converted := make([]any, len(children))
		for i, child := range children {
			converted[i] = plainDocument(child)
		}
		out["_childDocuments_"] = converted
	}
	return out
}

func plainValue(value any) any {
	switch v := value.(type) {
	case *document.Document:
		return plainDocument(v)
	case wirebin.RawString:
		return string(v)
	case *wirebin.NamedList:
		out := make(map[string]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[v.Name(i)] = plainValue(v.Value(i))
		}
		return out
	case *wirebin.OrderedMap:
		out := make(map[string]any, v.Len())
		for _, key := range v.Keys() {
			item, _ := v.Get(key)
			out[key] = plainValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plainValue(item)
		}
		return out
	}
	return value
}

func plainParams(params *update.Params) map[string]any {
	out := make(map[string]any)
	if params == nil {
		return out
	}
	for _, name := range params.Names() {
		values := params.Values(name)
		if len(values) == 1 {
			out[name] = values[0]
			continue
		}
		out[name] = values
	}
	return out
}

func plainDeletes(deletes []update.IDDelete) []map[string]any {
	out := make([]map[string]any, 0, len(deletes))
	for _, del := range deletes {
		entry := map[string]any{"id": del.ID}
		if del.Route != "" {
			entry["route"] = del.Route
		}
		if del.Version != nil {
			entry["version"] = *del.Version
		}
		out = append(out, entry)
	}
	return out
}
