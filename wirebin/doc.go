// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

// Package wirebin implements the compact tagged binary format that carries
// index mutation requests between client and indexing node.
//
// Every value on the wire is a single tag byte followed by its payload.
// The format covers scalars (null, bool, sized integers, floats, dates,
// byte arrays, strings), arrays, named lists (ordered name/value records
// in which duplicate names are allowed and order is significant),
// insertion-ordered maps, standalone key/value pairs, documents, and
// open-ended iterator sequences terminated by an end marker. Positive
// integers and small sizes pack into the tag byte itself, and names
// written more than once per stream are replaced by one-byte
// back-references into a string table both ends build in lockstep.
//
// For buffer- and stream-oriented use:
//
//	encoder := wirebin.NewEncoder(w)
//	err := encoder.Marshal(value)
//
//	decoder := wirebin.NewDecoder(r)
//	value, err := decoder.Decode()
//
// The Decoder's hook fields (ReadIterator, OnNamedList, NewDocument) let a
// protocol layer intervene while a value is still being decoded. The update
// package uses them to stream a request's document sequence through a
// handler one document at a time instead of materializing the batch.
package wirebin
