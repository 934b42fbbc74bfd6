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

// Package inference maps log-linear potentials to clique marginals by
// exact message passing on a junction tree. The oracle is differentiable:
// MarginalsVJP returns a pullback that carries marginal-space gradients
// back to potential space by reversing the message schedule, which is what
// lets gradient-based solvers optimize potentials directly.
package inference

import (
	"fmt"

	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/factor"
	"github.com/jnear/private-pgm/junction"
	"github.com/jnear/private-pgm/marginal"
)

// Engine performs Shafer-Shenoy message passing over the junction tree of a
// fixed clique structure. Building an Engine fixes the tree, the message
// schedule and the assignment of model cliques to tree nodes; Marginals may
// then be called repeatedly with different potentials.
type Engine struct {
	dom      *domain.Domain
	tree     *junction.Tree
	cliques  []domain.Clique
	attach   []int
	nodeDoms []*domain.Domain
	schedule []edgeStep
	incoming [][]int // per node: schedule indices of edges into it
}

// edgeStep is one directed message in the two-pass schedule.
type edgeStep struct {
	from, to int
	sep      domain.Clique
}

// NewEngine builds the message-passing engine for the given model cliques.
func NewEngine(dom *domain.Domain, cliques []domain.Clique) (*Engine, error) {
	tree, err := junction.Build(dom, cliques)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		dom:     dom,
		tree:    tree,
		cliques: make([]domain.Clique, len(cliques)),
	}
	copy(e.cliques, cliques)
	domain.SortCliques(e.cliques)

	nodes := tree.Cliques()
	e.nodeDoms = make([]*domain.Domain, len(nodes))
	for i, cl := range nodes {
		sub, err := dom.Project(cl)
		if err != nil {
			return nil, err
		}
		e.nodeDoms[i] = sub
	}

	// Tree nodes are ordered by increasing size, so the first node
	// containing a clique is the cheapest one.
	e.attach = make([]int, len(e.cliques))
	for i, cl := range e.cliques {
		e.attach[i] = -1
		for j, node := range nodes {
			if cl.IsSubsetOf(node) {
				e.attach[i] = j
				break
			}
		}
		if e.attach[i] < 0 {
			return nil, fmt.Errorf("inference: no tree node covers clique %v", cl)
		}
	}

	e.buildSchedule()
	return e, nil
}

// buildSchedule produces the directed message order: for each tree
// component, a collect pass from the leaves to the component root followed
// by a distribute pass back out. Every message's inputs appear earlier in
// the schedule.
func (e *Engine) buildSchedule() {
	n := e.tree.Len()
	visited := make([]bool, n)
	for root := 0; root < n; root++ {
		if visited[root] {
			continue
		}
		// Iterative DFS to get a parent structure and a pre-order.
		parent := map[int]int{root: -1}
		order := []int{}
		stack := []int{root}
		visited[root] = true
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			order = append(order, v)
			for _, w := range e.tree.Neighbors(v) {
				if !visited[w] {
					visited[w] = true
					parent[w] = v
					stack = append(stack, w)
				}
			}
		}
		// Collect: child to parent, deepest first.
		for i := len(order) - 1; i > 0; i-- {
			v := order[i]
			e.addEdge(v, parent[v])
		}
		// Distribute: parent to child in pre-order.
		for _, v := range order[1:] {
			e.addEdge(parent[v], v)
		}
	}

	e.incoming = make([][]int, n)
	for idx, step := range e.schedule {
		e.incoming[step.to] = append(e.incoming[step.to], idx)
	}
}

func (e *Engine) addEdge(from, to int) {
	e.schedule = append(e.schedule, edgeStep{
		from: from,
		to:   to,
		sep:  e.tree.Separator(from, to),
	})
}

// Tree exposes the underlying junction tree.
func (e *Engine) Tree() *junction.Tree {
	return e.tree
}

// Cliques returns the model cliques in canonical order.
func (e *Engine) Cliques() []domain.Clique {
	out := make([]domain.Clique, len(e.cliques))
	copy(out, e.cliques)
	return out
}

// trace holds the intermediates of one forward pass, kept for the reverse
// pass.
type trace struct {
	total float64
	psi   []*factor.Factor // per node: summed log potentials
	sums  []*factor.Factor // per edge: pre-marginalization input
	msgs  []*factor.Factor // per edge: message over the separator
	probs []*factor.Factor // per node: normalized belief probabilities
}

// forward runs message passing and returns all intermediates.
func (e *Engine) forward(theta *marginal.CliqueVector, total float64) (*trace, error) {
	n := e.tree.Len()
	tr := &trace{
		total: total,
		psi:   make([]*factor.Factor, n),
		sums:  make([]*factor.Factor, len(e.schedule)),
		msgs:  make([]*factor.Factor, len(e.schedule)),
		probs: make([]*factor.Factor, n),
	}
	for i := 0; i < n; i++ {
		tr.psi[i] = factor.Zeros(e.nodeDoms[i])
	}
	for i, cl := range e.cliques {
		f, ok := theta.Factor(cl)
		if !ok {
			return nil, fmt.Errorf("inference: potentials missing clique %v", cl)
		}
		expanded, err := f.Expand(e.nodeDoms[e.attach[i]])
		if err != nil {
			return nil, err
		}
		if err := tr.psi[e.attach[i]].AddAssign(expanded); err != nil {
			return nil, err
		}
	}

	for idx, step := range e.schedule {
		sum, err := e.inputSum(tr, step.from, step.to)
		if err != nil {
			return nil, err
		}
		msg, err := sum.LogSumExpProject(step.sep)
		if err != nil {
			return nil, err
		}
		tr.sums[idx] = sum
		tr.msgs[idx] = msg
	}

	for i := 0; i < n; i++ {
		belief := tr.psi[i].Clone()
		for _, idx := range e.incoming[i] {
			expanded, err := tr.msgs[idx].Expand(e.nodeDoms[i])
			if err != nil {
				return nil, err
			}
			if err := belief.AddAssign(expanded); err != nil {
				return nil, err
			}
		}
		tr.probs[i] = belief.AddScalar(-belief.LogSumExp()).Exp()
	}
	return tr, nil
}

// inputSum computes psi[from] plus all messages into from except the one
// coming back from exclude.
func (e *Engine) inputSum(tr *trace, from, exclude int) (*factor.Factor, error) {
	sum := tr.psi[from].Clone()
	for _, idx := range e.incoming[from] {
		if e.schedule[idx].from == exclude {
			continue
		}
		if tr.msgs[idx] == nil {
			// Scheduled later; the two-pass order guarantees the
			// distribute-pass reply is the only unavailable message, and it
			// is always excluded.
			continue
		}
		expanded, err := tr.msgs[idx].Expand(sum.Domain())
		if err != nil {
			return nil, err
		}
		if err := sum.AddAssign(expanded); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// marginals projects the node beliefs onto the model cliques.
func (e *Engine) marginals(tr *trace) (*marginal.CliqueVector, error) {
	return marginal.FromData(&nodeProjector{engine: e, tr: tr}, e.cliques)
}

// nodeProjector adapts a trace to the per-clique projection interface used
// by marginal.FromData.
type nodeProjector struct {
	engine *Engine
	tr     *trace
}

func (p *nodeProjector) Project(cl domain.Clique) (*factor.Factor, error) {
	for j, node := range p.engine.tree.Cliques() {
		if cl.IsSubsetOf(node) {
			return p.tr.probs[j].Scale(p.tr.total).Project(cl)
		}
	}
	return nil, fmt.Errorf("inference: no tree node covers clique %v", cl)
}

// Marginals computes the marginals mu = oracle(theta, total) for the
// engine's model cliques. The potentials must be keyed exactly by the
// model cliques.
func (e *Engine) Marginals(theta *marginal.CliqueVector, total float64) (*marginal.CliqueVector, error) {
	tr, err := e.forward(theta, total)
	if err != nil {
		return nil, err
	}
	return e.marginals(tr)
}

// NodeMarginals computes the joint marginal of every maximal clique of the
// junction tree, in tree node order. Used by the synthetic-row sampler.
func (e *Engine) NodeMarginals(theta *marginal.CliqueVector, total float64) ([]*factor.Factor, error) {
	tr, err := e.forward(theta, total)
	if err != nil {
		return nil, err
	}
	out := make([]*factor.Factor, len(tr.probs))
	for i, p := range tr.probs {
		out[i] = p.Scale(total)
	}
	return out, nil
}

// MarginalsVJP computes the marginals along with a pullback that maps a
// gradient with respect to the marginals to the gradient with respect to
// the potentials, by reversing the message schedule.
func (e *Engine) MarginalsVJP(theta *marginal.CliqueVector, total float64) (*marginal.CliqueVector, func(*marginal.CliqueVector) (*marginal.CliqueVector, error), error) {
	tr, err := e.forward(theta, total)
	if err != nil {
		return nil, nil, err
	}
	mu, err := e.marginals(tr)
	if err != nil {
		return nil, nil, err
	}
	pullback := func(mubar *marginal.CliqueVector) (*marginal.CliqueVector, error) {
		return e.backward(tr, mubar)
	}
	return mu, pullback, nil
}

// backward reverses the forward pass. Given adjoints of the model-clique
// marginals it accumulates adjoints of the beliefs, then of every message
// in reverse schedule order, and finally of the potentials.
func (e *Engine) backward(tr *trace, mubar *marginal.CliqueVector) (*marginal.CliqueVector, error) {
	n := e.tree.Len()

	// Adjoint of each node's unnormalized marginal mu_i = total * probs_i:
	// broadcast the clique adjoints back onto their attachment nodes.
	nodeBar := make([]*factor.Factor, n)
	for i := 0; i < n; i++ {
		nodeBar[i] = factor.Zeros(e.nodeDoms[i])
	}
	for i, cl := range e.cliques {
		f, ok := mubar.Factor(cl)
		if !ok {
			return nil, fmt.Errorf("inference: gradient missing clique %v", cl)
		}
		expanded, err := f.Expand(e.nodeDoms[e.attach[i]])
		if err != nil {
			return nil, err
		}
		if err := nodeBar[e.attach[i]].AddAssign(expanded); err != nil {
			return nil, err
		}
	}

	// Adjoint of each belief through the softmax: with p = probs_i and
	// S = nodeBar_i, bbar = total * (p .* S - p * <p, S>).
	psiBar := make([]*factor.Factor, n)
	msgBar := make([]*factor.Factor, len(e.schedule))
	for idx := range e.schedule {
		msgBar[idx] = factor.Zeros(tr.msgs[idx].Domain())
	}
	for i := 0; i < n; i++ {
		p := tr.probs[i]
		pS, err := p.Mul(nodeBar[i])
		if err != nil {
			return nil, err
		}
		inner := pS.Sum()
		bbar, err := pS.Minus(p.Scale(inner))
		if err != nil {
			return nil, err
		}
		bbar = bbar.Scale(tr.total)

		// belief_i = psi_i + sum of incoming messages.
		psiBar[i] = bbar.Clone()
		for _, idx := range e.incoming[i] {
			proj, err := bbar.Project(e.schedule[idx].sep)
			if err != nil {
				return nil, err
			}
			if err := msgBar[idx].AddAssign(proj); err != nil {
				return nil, err
			}
		}
	}

	// Reverse the schedule. Each message depends only on earlier messages,
	// so by the time an edge is processed its adjoint is complete.
	for idx := len(e.schedule) - 1; idx >= 0; idx-- {
		step := e.schedule[idx]
		sumBar, err := lsePullback(tr.sums[idx], tr.msgs[idx], msgBar[idx])
		if err != nil {
			return nil, err
		}
		if err := psiBar[step.from].AddAssign(sumBar); err != nil {
			return nil, err
		}
		for _, in := range e.incoming[step.from] {
			// The inputs of message idx are exactly the earlier-scheduled
			// messages into its source, excluding the reply edge.
			if e.schedule[in].from == step.to || in >= idx {
				continue
			}
			proj, err := sumBar.Project(e.schedule[in].sep)
			if err != nil {
				return nil, err
			}
			if err := msgBar[in].AddAssign(proj); err != nil {
				return nil, err
			}
		}
	}

	// Adjoint of the potentials: marginalize each node's psi adjoint back
	// onto its attached cliques.
	grads := make([]*factor.Factor, len(e.cliques))
	for i, cl := range e.cliques {
		g, err := psiBar[e.attach[i]].Project(cl)
		if err != nil {
			return nil, err
		}
		grads[i] = g
	}
	return marginal.FromFactors(e.cliques, grads)
}

// lsePullback is the adjoint of msg = LogSumExpProject(sum, sep):
// sumBar = exp(sum - msg) .* msgBar, both broadcast onto sum's domain.
func lsePullback(sum, msg, msgBar *factor.Factor) (*factor.Factor, error) {
	msgUp, err := msg.Expand(sum.Domain())
	if err != nil {
		return nil, err
	}
	barUp, err := msgBar.Expand(sum.Domain())
	if err != nil {
		return nil, err
	}
	diff, err := sum.Minus(msgUp)
	if err != nil {
		return nil, err
	}
	return diff.Exp().Mul(barUp)
}
