// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/indexfeed/indexfeed/document"
	"github.com/indexfeed/indexfeed/wirebin"
)

// Handler receives every unit a streaming decode produces, in wire order,
// on the decoding goroutine. doc is nil for units that carry no document
// (embedded params-only commands and unrecognized shapes). req is the
// decode's shared request — already holding the batch parameters, and with
// its last-doc flag set before the final invocation — except for
// params-only commands, which substitute a throwaway sub-request for that
// one call. commitWithin and overwrite are per-document overrides; nil
// means none. Returning an error aborts the decode; documents already
// handled are not rolled back.
type Handler func(doc *document.Document, req *Request, commitWithin *time.Duration, overwrite *bool) error

// Codec maps update requests onto the tagged binary wire format. The zero
// value is ready to use; a Codec is safe for concurrent use, with each
// Marshal or Unmarshal call operating on its own stream.
type Codec struct {
	// RawStrings, when true, leaves document string values byte-backed
	// during streaming decode, converting to string lazily when a field is
	// read. Off the streaming path it has no effect.
	RawStrings bool

	// Logger receives legacy boost warnings. If nil, slog.Default() is
	// used.
	Logger *slog.Logger

	// warner, when non-nil, replaces the process-wide boost warning gate.
	// Tests inject one to isolate gate state.
	warner *boostWarner
}

// Marshal writes req to w in the canonical record layout the decoder
// depends on: params first, then the id-delete map (only when id-deletes
// exist), then the delete queries, then exactly one of the two document
// sequences.
func (c *Codec) Marshal(req *Request, w io.Writer) error {
	params := new(wirebin.NamedList)
	if req.params != nil {
		params = req.params.toNamedList()
	}
	if commitWithin, ok := req.CommitWithin(); ok {
		params.Add(paramCommitWithin, int32(commitWithin/time.Millisecond))
	}

	top := new(wirebin.NamedList)
	top.Add(keyParams, params)
	if len(req.idDeletes) > 0 {
		top.Add(keyDelByIDMap, idDeleteMap(req.idDeletes))
	}
	if len(req.deleteQueries) > 0 {
		top.Add(keyDelByQuery, req.deleteQueries)
	} else {
		top.Add(keyDelByQuery, nil)
	}
	if len(req.docsWithOverrides) > 0 {
		top.Add(keyDocsMap, &overridesIterator{entries: req.docsWithOverrides})
	} else if req.docIterator != nil {
		top.Add(keyDocs, &docFuncIterator{next: req.docIterator})
	} else if req.documents != nil {
		top.Add(keyDocs, &docSliceIterator{docs: req.documents})
	} else {
		top.Add(keyDocs, nil)
	}

	if err := wirebin.NewEncoder(w).Marshal(top); err != nil {
		return fmt.Errorf("marshal update request: %w", err)
	}
	return nil
}

// Unmarshal fully decodes one update request from r. Reserved keys that
// are absent decode as empty; delete operations are resolved onto the
// returned request. Documents are not redelivered on the request — batch
// callers are expected to have consumed them from the decoded tree, and
// streaming callers receive them through their handler.
func (c *Codec) Unmarshal(r io.Reader) (*Request, error) {
	return c.decode(r, nil)
}

// UnmarshalStreaming decodes one update request from r, delivering each
// document to handler as it is decoded rather than materializing the
// batch. Memory use is bounded by the largest single document. The handler
// runs synchronously on the calling goroutine, so the decode cannot outrun
// it; a handler error aborts the decode immediately.
func (c *Codec) UnmarshalStreaming(r io.Reader, handler Handler) (*Request, error) {
	return c.decode(r, handler)
}

func idDeleteMap(deletes []IDDelete) *wirebin.OrderedMap {
	m := wirebin.NewOrderedMap()
	for _, del := range deletes {
		if del.Route == "" && del.Version == nil {
			m.Set(del.ID, nil)
			continue
		}
		meta := wirebin.NewOrderedMap()
		if del.Version != nil {
			meta.Set(deleteVersionKey, *del.Version)
		}
		if del.Route != "" {
			meta.Set(deleteRouteKey, del.Route)
		}
		m.Set(del.ID, meta)
	}
	return m
}

// docSliceIterator encodes a materialized document batch as an open-ended
// wire sequence.
type docSliceIterator struct {
	docs []*document.Document
	next int
}

func (it *docSliceIterator) Next() (any, bool) {
	if it.next >= len(it.docs) {
		return nil, false
	}
	doc := it.docs[it.next]
	it.next++
	return doc, true
}

// docFuncIterator adapts a caller-supplied DocIterator to the wire
// sequence encoder.
type docFuncIterator struct {
	next DocIterator
}

func (it *docFuncIterator) Next() (any, bool) {
	doc, ok := it.next()
	if !ok {
		return nil, false
	}
	return doc, true
}

// overridesIterator encodes documents with per-document overrides as a
// sequence of (document, override record) pairs.
type overridesIterator struct {
	entries []docWithOverrides
	next    int
}

func (it *overridesIterator) Next() (any, bool) {
	if it.next >= len(it.entries) {
		return nil, false
	}
	entry := it.entries[it.next]
	it.next++
	meta := wirebin.NewOrderedMap()
	if entry.overrides.CommitWithin != nil {
		meta.Set(paramCommitWithin, int32(*entry.overrides.CommitWithin/time.Millisecond))
	}
	if entry.overrides.Overwrite != nil {
		meta.Set(paramOverwrite, *entry.overrides.Overwrite)
	}
	return wirebin.MapEntry{Key: entry.doc, Value: meta}, true
}
