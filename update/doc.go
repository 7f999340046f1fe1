// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

// Package update maps index mutation requests — document additions
// (including nested child documents), deletes by id or query, request
// parameters, and commit hints — onto the tagged binary wire format
// implemented by the wirebin package.
//
// The encode path serializes a [Request] into a fixed record layout the
// decoder depends on: params first, then delete operations, then the
// document sequence. The decode path comes in two forms. [Codec.Unmarshal]
// materializes the whole request tree and resolves the delete operations.
// [Codec.UnmarshalStreaming] instead intercepts the document sequence while
// it is still being decoded and hands each document to a caller-supplied
// [Handler] as it arrives, so a receiving node indexes a batch of any size
// at constant memory. The handler runs synchronously on the decoding
// goroutine: the decoder never reads the next wire value before the handler
// finishes the current one, which makes backpressure implicit.
//
// Error model: a stream the wirebin layer cannot decode surfaces as an
// error wrapping [wirebin.ErrMalformed]; an I/O failure from the underlying
// reader or writer surfaces as-is; a handler error aborts the decode and
// propagates verbatim. This layer never retries and never rolls back
// documents already delivered.
package update
