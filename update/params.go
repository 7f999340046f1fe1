// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"fmt"

	"github.com/indexfeed/indexfeed/wirebin"
)

// Params is an ordered collection of request parameters: string names
// mapped to one or more string values. Name order is preserved across
// encoding, so the receiving node observes parameters in the order the
// client set them.
type Params struct {
	names  []string
	values map[string][]string
}

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return &Params{values: make(map[string][]string)}
}

// Set replaces the values recorded under name.
func (p *Params) Set(name string, values ...string) {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = values
}

// Add appends one value under name, keeping any existing values.
func (p *Params) Add(name string, value string) {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = append(p.values[name], value)
}

// Get returns the first value recorded under name, or "" when absent.
func (p *Params) Get(name string) string {
	values := p.values[name]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Values returns all values recorded under name in insertion order.
func (p *Params) Values(name string) []string {
	return p.values[name]
}

// Names returns the parameter names in insertion order. The returned slice
// is shared and must not be modified.
func (p *Params) Names() []string {
	return p.names
}

// Len returns the number of distinct parameter names.
func (p *Params) Len() int {
	return len(p.names)
}

// toNamedList projects the parameters onto the wire record shape: a single
// value encodes as a string, multiple values as a string array.
func (p *Params) toNamedList() *wirebin.NamedList {
	nl := new(wirebin.NamedList)
	for _, name := range p.names {
		values := p.values[name]
		if len(values) == 1 {
			nl.Add(name, values[0])
			continue
		}
		nl.Add(name, values)
	}
	return nl
}

// paramsFromNamedList rebuilds parameters from the wire record. Values that
// arrive as something other than a string (the folded-in commitWithin
// integer, for one) are stringified, matching how a parameter map treats
// every value as text.
func paramsFromNamedList(nl *wirebin.NamedList) *Params {
	p := NewParams()
	if nl == nil {
		return p
	}
	for i := 0; i < nl.Len(); i++ {
		name := nl.Name(i)
		switch value := nl.Value(i).(type) {
		case nil:
			// A parameter with a null value carries no text.
		case string:
			p.Add(name, value)
		case wirebin.RawString:
			p.Add(name, string(value))
		case []string:
			for _, v := range value {
				p.Add(name, v)
			}
		case []any:
			for _, v := range value {
				p.Add(name, paramString(v))
			}
		default:
			p.Add(name, paramString(value))
		}
	}
	return p
}

func paramString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case wirebin.RawString:
		return string(v)
	}
	return fmt.Sprint(value)
}
