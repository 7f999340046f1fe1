// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

// Package document defines the document entity carried by index mutation
// requests: an ordered map of field name to value, optionally holding nested
// child documents. Field order, multi-value order, and child order are all
// significant and survive encoding round trips.
package document

// Transform rewrites a field value at read time. A transform attached at
// construction lets a decoder store cheap raw representations (byte-backed
// strings) and defer conversion until a field is actually read.
type Transform func(value any) any

// field holds the values recorded under one field name. A field starts as a
// single value and is promoted to a multi-value list when the same name is
// added again.
type field struct {
	name   string
	value  any
	values []any
	multi  bool
}

// Document is an ordered collection of named field values plus zero or more
// nested child documents. The zero value is not usable; construct with New
// or NewWithTransform.
type Document struct {
	order     []string
	fields    map[string]*field
	children  []*Document
	transform Transform
}

// New returns an empty document.
func New() *Document {
	return &Document{fields: make(map[string]*field)}
}

// NewWithTransform returns an empty document whose field reads pass through
// transform. The transform applies only on the read path; values are stored
// exactly as added.
func NewWithTransform(transform Transform) *Document {
	doc := New()
	doc.transform = transform
	return doc
}

// Add records value under name. Adding to an existing name promotes the
// field to a multi-value list, preserving insertion order.
func (d *Document) Add(name string, value any) {
	existing, ok := d.fields[name]
	if !ok {
		d.order = append(d.order, name)
		d.fields[name] = &field{name: name, value: value}
		return
	}
	if !existing.multi {
		existing.values = []any{existing.value, value}
		existing.value = nil
		existing.multi = true
		return
	}
	existing.values = append(existing.values, value)
}

// Set records value under name, replacing any previously added values.
func (d *Document) Set(name string, value any) {
	if existing, ok := d.fields[name]; ok {
		existing.value = value
		existing.values = nil
		existing.multi = false
		return
	}
	d.Add(name, value)
}

// Value returns the value stored under name with the document's read
// transform applied, or nil if the field is absent. Multi-value fields
// return a []any.
func (d *Document) Value(name string) any {
	return d.applyTransform(d.RawValue(name))
}

// RawValue returns the value stored under name without applying the read
// transform, or nil if the field is absent.
func (d *Document) RawValue(name string) any {
	f, ok := d.fields[name]
	if !ok {
		return nil
	}
	if f.multi {
		return f.values
	}
	return f.value
}

// Has reports whether the document has a field with the given name.
func (d *Document) Has(name string) bool {
	_, ok := d.fields[name]
	return ok
}

// FieldNames returns the field names in insertion order. The returned slice
// is shared with the document and must not be modified.
func (d *Document) FieldNames() []string {
	return d.order
}

// Len returns the number of distinct field names.
func (d *Document) Len() int {
	return len(d.order)
}

// AddChild attaches a nested child document. Child order is preserved.
func (d *Document) AddChild(child *Document) {
	d.children = append(d.children, child)
}

// Children returns the nested child documents in attachment order. The
// returned slice is shared with the document and must not be modified.
func (d *Document) Children() []*Document {
	return d.children
}

func (d *Document) applyTransform(value any) any {
	if d.transform == nil || value == nil {
		return value
	}
	return d.transform(value)
}
