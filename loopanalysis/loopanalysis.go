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

// Package loopanalysis computes the loop-related predicates the denaturator and the
// loop reducer both need: which nodes sit in a (non-trivial) SCC, a spanning-tree depth
// per node, and the exit/target edges of a particular loop.
package loopanalysis

import (
	"github.com/unbinary/cfs/graph"
	"github.com/unbinary/cfs/util/orderedset"
)

// IsLoop derives, from an SCC labelling, which nodes sit in a loop: a node is "in a
// loop" iff its SCC has more than one member. A size-1 SCC with a self-edge is
// deliberately *not* reported here — self-loops are matched by the dedicated
// self-loop reducer instead.
func IsLoop[T comparable](sccs map[T]int) map[T]bool {
	counts := make(map[int]int)
	for _, id := range sccs {
		counts[id]++
	}
	result := make(map[T]bool, len(sccs))
	for n, id := range sccs {
		result[n] = counts[id] > 1
	}
	return result
}

// CalculateDepth computes the spanning-tree depth of every node reachable from g's
// root: a postorder walk in which each node's depth is 1+max(depth of its already-
// visited children), or 0 if it has none. Ties in this depth are broken by the
// denaturator (by BasicBlock id), not by this function.
func CalculateDepth[T comparable](g graph.Graph[T]) map[T]int {
	depth := make(map[T]int)
	for _, n := range graph.Postorder[T](g) {
		d := 0
		for _, c := range g.Children(n) {
			if cd, ok := depth[c]; ok && cd+1 > d {
				d = cd + 1
			}
		}
		depth[n] = d
	}
	return depth
}

// ExitsAndTargets walks the SCC containing header, following only intra-SCC edges,
// and records every edge that crosses into a different SCC: its source is an exit, its
// destination a target. Both are returned in discovery order (via orderedset.Set) so
// that denaturation's tie-breaking over them is deterministic.
func ExitsAndTargets[T comparable](header T, sccs map[T]int, g graph.Graph[T]) (exits *orderedset.Set[T], targets *orderedset.Set[T]) {
	exits = orderedset.New[T]()
	targets = orderedset.New[T]()

	headerSCC := sccs[header]
	visited := orderedset.NewFrom(header)
	stack := []T{header}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range g.Children(n) {
			if sccs[child] != headerSCC {
				exits.Add(n)
				targets.Add(child)
			} else if !visited.Contains(child) {
				stack = append(stack, child)
			}
			visited.Add(child)
		}
	}
	return exits, targets
}
