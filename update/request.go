// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"time"

	"github.com/indexfeed/indexfeed/document"
)

// Reserved wire names. These are fixed for compatibility with existing
// clients and must never change.
const (
	keyParams     = "params"
	keyDelByID    = "delById" // legacy plain id list, decode only
	keyDelByIDMap = "delByIdMap"
	keyDelByQuery = "delByQ"
	keyDocsMap    = "docsMap"
	keyDocs       = "docs"

	paramCommitWithin = "commitWithin"
	paramOverwrite    = "overwrite"

	deleteVersionKey  = "ver"
	deleteRouteKey    = "_route_"
	childDocumentsKey = "_childDocuments_"
)

// noCommitWithin is the sentinel for an unset commit window.
const noCommitWithin = time.Duration(-1)

// IDDelete is one delete-by-id operation. A zero Route and nil Version mean
// an unconditional delete of the id.
type IDDelete struct {
	ID string
	// Route is the shard routing key for the delete; "" means none.
	Route string
	// Version is the optimistic-concurrency token the delete must match;
	// nil means unconditional. Never mutated after decode.
	Version *int64
}

// DocumentOverrides carries per-document overrides attached to one document
// in a batch. Nil fields mean no override.
type DocumentOverrides struct {
	CommitWithin *time.Duration
	Overwrite    *bool
}

type docWithOverrides struct {
	doc       *document.Document
	overrides DocumentOverrides
}

// DocIterator feeds documents to the encoder one at a time. It returns the
// next document and true, or false when exhausted. Use it to encode a batch
// too large to hold in memory.
type DocIterator func() (*document.Document, bool)

// Request is one index mutation batch: documents to add (plain, iterator
// fed, or with per-document overrides), deletes by id and by query, request
// parameters, and an optional commit window. A request is built by the
// sending side and serialized once; the decode side constructs a fresh
// request per decode call.
type Request struct {
	params            *Params
	commitWithin      time.Duration
	documents         []*document.Document
	docIterator       DocIterator
	docsWithOverrides []docWithOverrides
	idDeletes         []IDDelete
	deleteQueries     []string
	lastDocInBatch    bool
}

// NewRequest returns an empty request with no commit window set.
func NewRequest() *Request {
	return &Request{commitWithin: noCommitWithin}
}

// SetParams replaces the request parameters.
func (r *Request) SetParams(p *Params) {
	r.params = p
}

// Params returns the request parameters, which may be nil on a request
// that never had them set.
func (r *Request) Params() *Params {
	return r.params
}

// SetCommitWithin sets the window within which the receiving node must make
// this batch visible to searches.
func (r *Request) SetCommitWithin(d time.Duration) {
	r.commitWithin = d
}

// CommitWithin returns the commit window and whether one is set.
func (r *Request) CommitWithin() (time.Duration, bool) {
	if r.commitWithin < 0 {
		return 0, false
	}
	return r.commitWithin, true
}

// Add appends documents to the plain batch.
func (r *Request) Add(docs ...*document.Document) {
	r.documents = append(r.documents, docs...)
}

// AddWithOverrides appends a document carrying per-document overrides.
// A request carries either plain documents or documents with overrides;
// once any document has overrides, the whole batch encodes in the
// override-carrying form.
func (r *Request) AddWithOverrides(doc *document.Document, overrides DocumentOverrides) {
	r.docsWithOverrides = append(r.docsWithOverrides, docWithOverrides{doc: doc, overrides: overrides})
}

// SetDocIterator supplies the documents lazily instead of via Add. The
// iterator is consumed exactly once, during encoding.
func (r *Request) SetDocIterator(it DocIterator) {
	r.docIterator = it
}

// Documents returns the plain document batch.
func (r *Request) Documents() []*document.Document {
	return r.documents
}

// DeleteByID records an unconditional delete of the document with the
// given id.
func (r *Request) DeleteByID(id string) {
	r.idDeletes = append(r.idDeletes, IDDelete{ID: id})
}

// DeleteByIDMeta records a delete-by-id carrying a shard route ("" for
// none) and an optional version token (nil for unconditional).
func (r *Request) DeleteByIDMeta(id string, route string, version *int64) {
	r.idDeletes = append(r.idDeletes, IDDelete{ID: id, Route: route, Version: version})
}

// DeleteByQuery records a delete of every document matching the query.
func (r *Request) DeleteByQuery(query string) {
	r.deleteQueries = append(r.deleteQueries, query)
}

// IDDeletes returns the recorded delete-by-id operations in order.
func (r *Request) IDDeletes() []IDDelete {
	return r.idDeletes
}

// DeleteQueries returns the recorded delete-by-query clauses in order.
func (r *Request) DeleteQueries() []string {
	return r.deleteQueries
}

// IsLastDocInBatch reports whether the streaming decoder has determined
// that the document currently being handled is the final one in the batch.
// Receivers use it to trigger end-of-batch optimizations without waiting
// for the stream to close.
func (r *Request) IsLastDocInBatch() bool {
	return r.lastDocInBatch
}

func (r *Request) setLastDocInBatch() {
	r.lastDocInBatch = true
}
