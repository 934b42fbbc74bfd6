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

// Package junction builds junction trees over clique structures. The tree
// serves two roles: as the message-passing topology for exact marginal
// inference, and as a memory-cost oracle for deciding whether a clique
// structure is affordable to model at all.
package junction

import (
	"fmt"
	"sort"

	"github.com/jnear/private-pgm/domain"
)

// Tree is a junction tree (in general a forest) over the maximal cliques of
// a triangulated attribute graph. Node and neighbor order is deterministic
// for a given domain and clique set.
type Tree struct {
	dom     *domain.Domain
	cliques []domain.Clique
	adj     [][]int
	elim    []string
}

// Build triangulates the attribute graph induced by the given cliques using
// a greedy min-fill elimination order and connects the resulting maximal
// cliques into a maximum spanning forest weighted by separator size.
// Every domain attribute participates, so attributes mentioned by no clique
// become singleton nodes.
func Build(dom *domain.Domain, cliques []domain.Clique) (*Tree, error) {
	for _, cl := range cliques {
		for _, a := range cl {
			if !dom.Has(a) {
				return nil, fmt.Errorf("junction: unknown attribute %q in clique %v", a, cl)
			}
		}
	}

	elim, elimCliques := minFill(dom.Attrs(), cliques)
	maximal := maximalCliques(elimCliques)
	domain.SortCliques(maximal)

	t := &Tree{
		dom:     dom,
		cliques: maximal,
		adj:     make([][]int, len(maximal)),
		elim:    elim,
	}
	t.connect()
	return t, nil
}

// minFill computes a greedy minimum-fill elimination order and the clique
// formed at each elimination step. Ties are broken lexicographically so the
// order is deterministic.
func minFill(attrs []string, cliques []domain.Clique) ([]string, []domain.Clique) {
	adj := make(map[string]map[string]bool, len(attrs))
	for _, a := range attrs {
		adj[a] = make(map[string]bool)
	}
	for _, cl := range cliques {
		for _, a := range cl {
			for _, b := range cl {
				if a != b {
					adj[a][b] = true
				}
			}
		}
	}

	remaining := make([]string, len(attrs))
	copy(remaining, attrs)
	sort.Strings(remaining)

	order := make([]string, 0, len(attrs))
	elimCliques := make([]domain.Clique, 0, len(attrs))
	for len(remaining) > 0 {
		best := -1
		bestFill := -1
		for i, v := range remaining {
			fill := fillCount(adj, v)
			if best == -1 || fill < bestFill {
				best, bestFill = i, fill
			}
		}
		v := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)

		nbrs := neighborList(adj, v)
		elimCliques = append(elimCliques, domain.NewClique(append(nbrs, v)...))
		// Fill in: eliminating v marries its neighbors.
		for _, a := range nbrs {
			for _, b := range nbrs {
				if a != b {
					adj[a][b] = true
				}
			}
			delete(adj[a], v)
		}
		delete(adj, v)
		order = append(order, v)
	}
	return order, elimCliques
}

func fillCount(adj map[string]map[string]bool, v string) int {
	nbrs := neighborList(adj, v)
	fill := 0
	for i := 0; i < len(nbrs); i++ {
		for j := i + 1; j < len(nbrs); j++ {
			if !adj[nbrs[i]][nbrs[j]] {
				fill++
			}
		}
	}
	return fill
}

func neighborList(adj map[string]map[string]bool, v string) []string {
	nbrs := make([]string, 0, len(adj[v]))
	for n := range adj[v] {
		nbrs = append(nbrs, n)
	}
	sort.Strings(nbrs)
	return nbrs
}

// maximalCliques filters the elimination cliques down to the maximal ones.
func maximalCliques(cliques []domain.Clique) []domain.Clique {
	sorted := make([]domain.Clique, len(cliques))
	copy(sorted, cliques)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})
	var out []domain.Clique
	for _, cl := range sorted {
		subsumed := false
		for _, kept := range out {
			if cl.IsSubsetOf(kept) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, cl)
		}
	}
	return out
}

// connect links the maximal cliques into a maximum spanning forest over
// separator sizes using Kruskal's algorithm with union by rank and path
// compression. Edges are sorted by decreasing separator size with index
// tie-breaks, so the forest is deterministic.
func (t *Tree) connect() {
	type edge struct {
		i, j, w int
	}
	var edges []edge
	for i := 0; i < len(t.cliques); i++ {
		for j := i + 1; j < len(t.cliques); j++ {
			w := len(t.cliques[i].Intersect(t.cliques[j]))
			if w > 0 {
				edges = append(edges, edge{i, j, w})
			}
		}
	}
	sort.SliceStable(edges, func(a, b int) bool {
		return edges[a].w > edges[b].w
	})

	parent := make([]int, len(t.cliques))
	rank := make([]int, len(t.cliques))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) bool {
		ra, rb := find(a), find(b)
		if ra == rb {
			return false
		}
		if rank[ra] < rank[rb] {
			ra, rb = rb, ra
		}
		parent[rb] = ra
		if rank[ra] == rank[rb] {
			rank[ra]++
		}
		return true
	}

	for _, e := range edges {
		if union(e.i, e.j) {
			t.adj[e.i] = append(t.adj[e.i], e.j)
			t.adj[e.j] = append(t.adj[e.j], e.i)
		}
	}
	for i := range t.adj {
		sort.Ints(t.adj[i])
	}
}

// Domain returns the tree's attribute domain.
func (t *Tree) Domain() *domain.Domain {
	return t.dom
}

// Cliques returns the maximal cliques in node order.
func (t *Tree) Cliques() []domain.Clique {
	out := make([]domain.Clique, len(t.cliques))
	copy(out, t.cliques)
	return out
}

// Len returns the number of tree nodes.
func (t *Tree) Len() int {
	return len(t.cliques)
}

// Neighbors returns the neighbor node indices of node i in increasing
// order.
func (t *Tree) Neighbors(i int) []int {
	out := make([]int, len(t.adj[i]))
	copy(out, t.adj[i])
	return out
}

// Separator returns the shared attributes of two adjacent nodes.
func (t *Tree) Separator(i, j int) domain.Clique {
	return t.cliques[i].Intersect(t.cliques[j])
}

// EliminationOrder returns the attribute elimination order used for
// triangulation.
func (t *Tree) EliminationOrder() []string {
	out := make([]string, len(t.elim))
	copy(out, t.elim)
	return out
}

// Size returns the number of cells across all maximal cliques.
func (t *Tree) Size() (int64, error) {
	var cells int64
	for _, cl := range t.cliques {
		s, err := t.dom.Size(cl)
		if err != nil {
			return 0, err
		}
		cells += s
	}
	return cells, nil
}

// ModelSizeMB estimates the memory footprint in megabytes of modeling the
// given clique structure: the junction tree's total cell count at 8 bytes a
// cell.
func ModelSizeMB(dom *domain.Domain, cliques []domain.Clique) (float64, error) {
	t, err := Build(dom, cliques)
	if err != nil {
		return 0, err
	}
	cells, err := t.Size()
	if err != nil {
		return 0, err
	}
	return float64(cells) * 8 / (1 << 20), nil
}
