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

// Package dataset holds integer-coded tabular data over an attribute
// domain and computes empirical marginals from it.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/factor"
)

// Dataset is a columnar table of integer-coded categorical values. Each
// column corresponds to one attribute of the domain, and every value lies
// in [0, cardinality) for its attribute.
type Dataset struct {
	dom  *domain.Domain
	cols map[string][]int
	n    int
}

// New wraps the given columns as a dataset over dom. Every domain attribute
// must be present with the same number of records, and all codes must be in
// range.
func New(dom *domain.Domain, cols map[string][]int) (*Dataset, error) {
	n := -1
	for _, a := range dom.Attrs() {
		col, ok := cols[a]
		if !ok {
			return nil, fmt.Errorf("dataset: missing column %q", a)
		}
		if n == -1 {
			n = len(col)
		} else if len(col) != n {
			return nil, fmt.Errorf("dataset: column %q has %d records, want %d", a, len(col), n)
		}
		card, _ := dom.Card(a)
		for i, v := range col {
			if v < 0 || v >= card {
				return nil, fmt.Errorf("dataset: column %q record %d has value %d, outside [0, %d)", a, i, v, card)
			}
		}
	}
	if n == -1 {
		n = 0
	}
	return &Dataset{dom: dom, cols: cols, n: n}, nil
}

// Load reads an integer-coded CSV dataset and its JSON domain file. The CSV
// must have a header row naming the attributes; columns not present in the
// domain are ignored.
func Load(csvPath, domainPath string) (*Dataset, error) {
	dom, err := domain.Load(domainPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening %s: %w", csvPath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: reading header of %s: %w", csvPath, err)
	}
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[name] = i
	}
	for _, a := range dom.Attrs() {
		if _, ok := colIdx[a]; !ok {
			return nil, fmt.Errorf("dataset: %s has no column for attribute %q", csvPath, a)
		}
	}

	cols := make(map[string][]int, dom.Len())
	for _, a := range dom.Attrs() {
		cols[a] = []int{}
	}
	row := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: reading %s row %d: %w", csvPath, row, err)
		}
		for _, a := range dom.Attrs() {
			v, convErr := strconv.Atoi(record[colIdx[a]])
			if convErr != nil {
				return nil, fmt.Errorf("dataset: %s row %d column %q: %w", csvPath, row, a, convErr)
			}
			cols[a] = append(cols[a], v)
		}
		row++
	}
	return New(dom, cols)
}

// Domain returns the dataset's attribute domain.
func (d *Dataset) Domain() *domain.Domain {
	return d.dom
}

// Records returns the number of rows.
func (d *Dataset) Records() int {
	return d.n
}

// Column returns the backing column for an attribute.
func (d *Dataset) Column(attr string) ([]int, error) {
	col, ok := d.cols[attr]
	if !ok {
		return nil, fmt.Errorf("dataset: unknown attribute %q", attr)
	}
	return col, nil
}

// Project computes the empirical contingency table over the clique: a
// factor whose cells count the records with each joint assignment.
func (d *Dataset) Project(cl domain.Clique) (*factor.Factor, error) {
	sub, err := d.dom.Project(cl)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, mustSize(sub))
	attrs := sub.Attrs()
	shape := sub.Shape()
	cols := make([][]int, len(attrs))
	for i, a := range attrs {
		cols[i] = d.cols[a]
	}
	for r := 0; r < d.n; r++ {
		idx := 0
		for i := range attrs {
			idx = idx*shape[i] + cols[i][r]
		}
		vals[idx]++
	}
	return factor.New(sub, vals)
}

// Save writes the dataset as CSV with a header row, columns in domain
// order.
func (d *Dataset) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	attrs := d.dom.Attrs()
	if err := w.Write(attrs); err != nil {
		return err
	}
	record := make([]string, len(attrs))
	for r := 0; r < d.n; r++ {
		for i, a := range attrs {
			record[i] = strconv.Itoa(d.cols[a][r])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func mustSize(dom *domain.Domain) int64 {
	size, _ := dom.Size(dom.AttrClique())
	return size
}
