//
// Copyright 2024 The Private-PGM Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package domain describes the discrete attribute space of a tabular
// dataset: an ordered collection of categorical attributes, each with a
// finite cardinality, together with the Clique type used to address subsets
// of attributes.
package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// Domain is an ordered collection of categorical attributes with finite
// cardinalities. The attribute order fixes the memory layout of every dense
// factor defined over the domain, so sub-domains produced by Project always
// preserve the parent's order. Domain values are immutable.
type Domain struct {
	attrs []string
	shape []int
	index map[string]int
}

// New returns a Domain over the given attributes and cardinalities.
func New(attrs []string, shape []int) (*Domain, error) {
	if len(attrs) != len(shape) {
		return nil, fmt.Errorf("domain: %d attributes but %d cardinalities", len(attrs), len(shape))
	}
	d := &Domain{
		attrs: slices.Clone(attrs),
		shape: slices.Clone(shape),
		index: make(map[string]int, len(attrs)),
	}
	for i, a := range attrs {
		if _, ok := d.index[a]; ok {
			return nil, fmt.Errorf("domain: duplicate attribute %q", a)
		}
		if shape[i] < 1 {
			return nil, fmt.Errorf("domain: attribute %q has cardinality %d, must be at least 1", a, shape[i])
		}
		d.index[a] = i
	}
	return d, nil
}

// Load reads a domain from a JSON file of the form {"attr": cardinality, ...}.
// The attribute order of the file is preserved.
func Load(path string) (*Domain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("domain: opening %s: %w", path, err)
	}
	defer f.Close()

	// A plain map would lose the attribute order of the file, so walk the
	// token stream instead.
	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("domain: reading %s: %w", path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("domain: %s: expected a JSON object", path)
	}
	var attrs []string
	var shape []int
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("domain: reading %s: %w", path, err)
		}
		attr := keyTok.(string)
		var card int
		if err := dec.Decode(&card); err != nil {
			return nil, fmt.Errorf("domain: %s: attribute %q: %w", path, attr, err)
		}
		attrs = append(attrs, attr)
		shape = append(shape, card)
	}
	return New(attrs, shape)
}

// Attrs returns a copy of the domain's attribute names in order.
func (d *Domain) Attrs() []string {
	return slices.Clone(d.attrs)
}

// AttrClique returns the clique covering every attribute of the domain.
func (d *Domain) AttrClique() Clique {
	return NewClique(d.attrs...)
}

// Len returns the number of attributes.
func (d *Domain) Len() int {
	return len(d.attrs)
}

// Has reports whether the domain contains the given attribute.
func (d *Domain) Has(attr string) bool {
	_, ok := d.index[attr]
	return ok
}

// Card returns the cardinality of the given attribute.
func (d *Domain) Card(attr string) (int, error) {
	i, ok := d.index[attr]
	if !ok {
		return 0, fmt.Errorf("domain: unknown attribute %q", attr)
	}
	return d.shape[i], nil
}

// Shape returns a copy of the cardinalities in attribute order.
func (d *Domain) Shape() []int {
	return slices.Clone(d.shape)
}

// Size returns the number of cells in the joint table over the given clique,
// the product of the clique attributes' cardinalities.
func (d *Domain) Size(cl Clique) (int64, error) {
	size := int64(1)
	for _, a := range cl {
		card, err := d.Card(a)
		if err != nil {
			return 0, err
		}
		size *= int64(card)
	}
	return size, nil
}

// Project returns the sub-domain over the clique's attributes, preserving
// d's attribute order.
func (d *Domain) Project(cl Clique) (*Domain, error) {
	attrs := make([]string, 0, len(cl))
	shape := make([]int, 0, len(cl))
	for i, a := range d.attrs {
		if cl.Contains(a) {
			attrs = append(attrs, a)
			shape = append(shape, d.shape[i])
		}
	}
	if len(attrs) != len(cl) {
		for _, a := range cl {
			if !d.Has(a) {
				return nil, fmt.Errorf("domain: unknown attribute %q", a)
			}
		}
	}
	return New(attrs, shape)
}

// Merge combines two domains into one covering the union of their
// attributes. Attributes of a come first, followed by attributes only in b.
// It is an error for the domains to disagree on a shared attribute's
// cardinality.
func Merge(a, b *Domain) (*Domain, error) {
	attrs := slices.Clone(a.attrs)
	shape := slices.Clone(a.shape)
	for i, attr := range b.attrs {
		if j, ok := a.index[attr]; ok {
			if a.shape[j] != b.shape[i] {
				return nil, fmt.Errorf("domain: attribute %q has conflicting cardinalities %d and %d", attr, a.shape[j], b.shape[i])
			}
			continue
		}
		attrs = append(attrs, attr)
		shape = append(shape, b.shape[i])
	}
	return New(attrs, shape)
}

// Equal reports whether two domains have identical attributes, order and
// cardinalities.
func (d *Domain) Equal(other *Domain) bool {
	return slices.Equal(d.attrs, other.attrs) && slices.Equal(d.shape, other.shape)
}

// String implements fmt.Stringer.
func (d *Domain) String() string {
	return fmt.Sprintf("Domain%v%v", d.attrs, d.shape)
}
