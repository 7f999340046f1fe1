// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"io"
	"time"

	"github.com/indexfeed/indexfeed/document"
	"github.com/indexfeed/indexfeed/wirebin"
)

// session is the state of a single decode call. A session is created,
// consumed, and discarded inside one decode; the document-sequence
// interception below trips exactly once per session, so reusing one across
// streams would silently materialize the second stream's documents.
type session struct {
	codec   *Codec
	req     *Request
	handler Handler

	// top is the first named list decoded from the stream — the request's
	// outer record. Captured write-once as decoding begins, it fills in
	// with entries in wire order, so by the time the document sequence is
	// reached it already holds the params that precede it.
	top *wirebin.NamedList

	// seenDocSequence trips when the first top-level iterator is
	// intercepted. Iterators decoded after that (sequences nested inside
	// documents) fall through to ordinary materializing decode.
	seenDocSequence bool
}

func (c *Codec) decode(r io.Reader, handler Handler) (*Request, error) {
	s := &session{codec: c, req: NewRequest(), handler: handler}

	dec := wirebin.NewDecoder(r)
	dec.OnNamedList = func(nl *wirebin.NamedList) {
		if s.top == nil {
			s.top = nl
		}
	}
	dec.ReadIterator = s.readDocSequence
	dec.NewDocument = s.newDocument

	if _, err := dec.Decode(); err != nil {
		return nil, err
	}
	s.resolve()
	return s.req, nil
}

// resolve projects the reserved keys out of the fully decoded outer record:
// params (when streaming did not already install them) and the delete
// operations. Any absent key is treated as empty.
func (s *session) resolve() {
	if s.top == nil {
		return
	}
	if s.req.params == nil || s.req.params.Len() == 0 {
		if params, ok := s.top.Get(keyParams).(*wirebin.NamedList); ok {
			s.req.SetParams(paramsFromNamedList(params))
		}
	}
	if ids, ok := s.top.Get(keyDelByID).([]any); ok {
		for _, v := range ids {
			if id, ok := stringValue(v); ok {
				s.req.DeleteByID(id)
			}
		}
	}
	if byID, ok := s.top.Get(keyDelByIDMap).(*wirebin.OrderedMap); ok {
		for _, id := range byID.Keys() {
			metaValue, _ := byID.Get(id)
			meta, ok := metaValue.(*wirebin.OrderedMap)
			if !ok || meta == nil {
				s.req.DeleteByID(id)
				continue
			}
			var version *int64
			if v, ok := meta.Get(deleteVersionKey); ok {
				if n, ok := int64Value(v); ok {
					version = &n
				}
			}
			route := ""
			if v, ok := meta.Get(deleteRouteKey); ok {
				route, _ = stringValue(v)
			}
			s.req.DeleteByIDMeta(id, route, version)
		}
	}
	if queries, ok := s.top.Get(keyDelByQuery).([]any); ok {
		for _, v := range queries {
			if query, ok := stringValue(v); ok {
				s.req.DeleteByQuery(query)
			}
		}
	}
}

// readDocSequence is the decoder's iterator hook. The first top-level
// iterator in the stream is the document sequence; it is decoded
// incrementally here. Every later iterator belongs to a value nested
// inside a document and is materialized normally.
func (s *session) readDocSequence(dec *wirebin.Decoder) (any, error) {
	if s.seenDocSequence {
		return dec.CollectIterator()
	}
	s.seenDocSequence = true

	// Params precede documents in the encoding order, so they are fully
	// decoded by now; install them before the first handler call can
	// observe the request. A stream with no params installs an empty set.
	var params *wirebin.NamedList
	if s.top != nil {
		params, _ = s.top.Get(keyParams).(*wirebin.NamedList)
	}
	s.req.SetParams(paramsFromNamedList(params))

	if s.handler == nil {
		return dec.CollectIterator()
	}

	dec.RawStrings = s.codec.RawStrings
	defer func() { dec.RawStrings = false }()
	return s.streamDocuments(dec)
}

// streamDocuments runs the per-document loop with one value of lookahead:
// classify the current value, read the next one, and if the next is the
// end marker set the last-doc flag on the request before the handler sees
// the current document. Documents are delivered only through the handler;
// the sequence's own decoded value is an empty slice.
func (s *session) streamDocuments(dec *wirebin.Decoder) (any, error) {
	var commitWithin *time.Duration
	var overwrite *bool

	current, err := dec.ReadValue()
	if err != nil {
		return nil, err
	}
	for current != wirebin.End {
		var doc *document.Document
		callReq := s.req
		switch v := current.(type) {
		case []any:
			// Legacy row-list form: row 0 carries a document-level boost,
			// later rows are (name, value, boost) triples.
			doc = s.rowListDocument(v)
		case *wirebin.NamedList:
			// Embedded params-only command: one call with a throwaway
			// sub-request and no document. The outer request and the
			// stored overrides are left untouched.
			sub := NewRequest()
			sub.SetParams(paramsFromNamedList(v))
			callReq = sub
		case wirebin.MapEntry:
			doc, _ = v.Key.(*document.Document)
			if meta, ok := v.Value.(*wirebin.OrderedMap); ok && meta != nil {
				commitWithin = commitWithinOverride(meta)
				overwrite = overwriteOverride(meta)
			}
		case *document.Document:
			doc = v
		case *wirebin.OrderedMap:
			doc = s.mapDocument(v)
		default:
			// Unrecognized shape: dispatched with no document, same as a
			// params-only command. Permissive on purpose — see DESIGN.md.
		}

		next, err := dec.ReadValue()
		if err != nil {
			return nil, err
		}
		if next == wirebin.End {
			s.req.setLastDocInBatch()
		}

		callCommitWithin, callOverwrite := commitWithin, overwrite
		if callReq != s.req {
			callCommitWithin, callOverwrite = nil, nil
		}
		if err := s.handler(doc, callReq, callCommitWithin, callOverwrite); err != nil {
			return nil, err
		}
		current = next
	}
	return []any{}, nil
}

// rowListDocument converts a row-list value into a document. Boost values
// other than 1.0 are routed through the warning gate and otherwise
// ignored; indexing no longer honors them.
func (s *session) rowListDocument(rows []any) *document.Document {
	doc := document.New()
	for i, row := range rows {
		nl, ok := row.(*wirebin.NamedList)
		if !ok {
			continue
		}
		if i == 0 {
			s.observeBoost("document", nl.Value(0))
			continue
		}
		s.observeBoost("field", nl.Value(2))
		name, ok := stringValue(nl.Value(0))
		if !ok {
			continue
		}
		doc.Add(name, nl.Value(1))
	}
	return doc
}

// mapDocument converts a record-form value into a document. The reserved
// child-document key holds either one nested record or a sequence of them;
// non-record entries in such a sequence are skipped. All other keys become
// fields.
func (s *session) mapDocument(m *wirebin.OrderedMap) *document.Document {
	doc := s.newDocument(m.Len())
	for _, key := range m.Keys() {
		value, _ := m.Get(key)
		if key != childDocumentsKey {
			doc.Add(key, value)
			continue
		}
		switch children := value.(type) {
		case []any:
			for _, item := range children {
				if child, ok := item.(*wirebin.OrderedMap); ok {
					doc.AddChild(s.mapDocument(child))
				}
			}
		case *wirebin.OrderedMap:
			doc.AddChild(s.mapDocument(children))
		}
	}
	return doc
}

// newDocument allocates the documents this decode produces. Every document
// carries the raw-string read transform; it is a no-op unless the decode
// ran with RawStrings on.
func (s *session) newDocument(_ int) *document.Document {
	return document.NewWithTransform(resolveRawStrings)
}

func (s *session) observeBoost(kind string, value any) {
	boost, ok := floatValue(value)
	if !ok || boost == 1 {
		return
	}
	s.codec.boostWarner().observe(s.codec.logger(), kind, boost)
}

// resolveRawStrings converts byte-backed raw strings (and any raw elements
// of a multi-value field) to string at field-read time.
func resolveRawStrings(value any) any {
	switch v := value.(type) {
	case wirebin.RawString:
		return string(v)
	case []any:
		for i, item := range v {
			if raw, ok := item.(wirebin.RawString); ok {
				v[i] = string(raw)
			}
		}
		return v
	}
	return value
}

func commitWithinOverride(meta *wirebin.OrderedMap) *time.Duration {
	v, ok := meta.Get(paramCommitWithin)
	if !ok {
		return nil
	}
	millis, ok := int64Value(v)
	if !ok {
		return nil
	}
	d := time.Duration(millis) * time.Millisecond
	return &d
}

func overwriteOverride(meta *wirebin.OrderedMap) *bool {
	v, ok := meta.Get(paramOverwrite)
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

func stringValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case wirebin.RawString:
		return string(v), true
	}
	return "", false
}

func int64Value(value any) (int64, bool) {
	switch v := value.(type) {
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

func floatValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
