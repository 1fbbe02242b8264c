//  Copyright (c) 2023 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graph implements the generic directed-graph traversals the structuring
// engine treats as a black box: pre/post-order, strongly-connected components, and
// predecessor maps, plus the mutable DirectedGraph container reductions rewrite.
//
// None of this is specific to basic blocks or structure blocks; both cfg.CFG and the
// structure-block graph built by the cfs package satisfy Graph[T] and share this
// package's traversals.
package graph

import "github.com/unbinary/cfs/util/orderedset"

// Graph is the minimal read-only shape a traversal needs: a possibly-absent root and,
// for each node, its ordered children.
type Graph[T comparable] interface {
	Root() (T, bool)
	Children(n T) []T
}

// Postorder returns the nodes of g reachable from its root in postorder (a node is
// emitted only after every node reachable through it has been emitted).
func Postorder[T comparable](g Graph[T]) []T {
	root, ok := g.Root()
	if !ok {
		return nil
	}
	var order []T
	visited := make(map[T]bool)
	var visit func(T)
	visit = func(n T) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, c := range g.Children(n) {
			visit(c)
		}
		order = append(order, n)
	}
	visit(root)
	return order
}

// Preorder returns the nodes of g reachable from its root in preorder (a node is
// emitted before any node reachable through it).
func Preorder[T comparable](g Graph[T]) []T {
	root, ok := g.Root()
	if !ok {
		return nil
	}
	var order []T
	visited := make(map[T]bool)
	var visit func(T)
	visit = func(n T) {
		if visited[n] {
			return
		}
		visited[n] = true
		order = append(order, n)
		for _, c := range g.Children(n) {
			visit(c)
		}
	}
	visit(root)
	return order
}

// Predecessors returns, for every node reachable from g's root, the set of its
// direct predecessors, in the order those predecessor edges were first discovered
// by a preorder walk, so iterating a node's predecessors is deterministic for a fixed
// graph.
func Predecessors[T comparable](g Graph[T]) map[T]*orderedset.Set[T] {
	preds := make(map[T]*orderedset.Set[T])
	for _, n := range Preorder(g) {
		if _, ok := preds[n]; !ok {
			preds[n] = orderedset.New[T]()
		}
		for _, c := range g.Children(n) {
			if _, ok := preds[c]; !ok {
				preds[c] = orderedset.New[T]()
			}
			preds[c].Add(n)
		}
	}
	return preds
}

// SCCs computes the strongly-connected components of g using Tarjan's algorithm and
// returns, for every reachable node, the id of the SCC it belongs to. SCC ids are
// assigned in the order their component is completed; no ordering guarantee beyond
// "stable for a fixed traversal of a fixed graph" is made or needed by callers.
func SCCs[T comparable](g Graph[T]) map[T]int {
	_, ok := g.Root()
	result := make(map[T]int)
	if !ok {
		return result
	}

	type nodeState struct {
		index   int
		lowlink int
		onStack bool
	}
	state := make(map[T]*nodeState)
	var stack []T
	index := 0
	sccID := 0

	var strongconnect func(v T)
	strongconnect = func(v T) {
		state[v] = &nodeState{index: index, lowlink: index, onStack: true}
		index++
		stack = append(stack, v)

		for _, w := range g.Children(v) {
			if state[w] == nil {
				strongconnect(w)
				if state[w].lowlink < state[v].lowlink {
					state[v].lowlink = state[w].lowlink
				}
			} else if state[w].onStack {
				if state[w].index < state[v].lowlink {
					state[v].lowlink = state[w].index
				}
			}
		}

		if state[v].lowlink == state[v].index {
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				state[w].onStack = false
				result[w] = sccID
				if w == v {
					break
				}
			}
			sccID++
		}
	}

	// Visit in preorder so SCC ids are assigned deterministically for a fixed graph,
	// rather than depending on Go's randomized map iteration order.
	for _, n := range Preorder(g) {
		if state[n] == nil {
			strongconnect(n)
		}
	}
	return result
}
