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

// Package denature removes the surplus exit edges of multi-exit natural loops so that,
// by the time the reducers in package reduce run, every loop has a single target
// outside its SCC. This is a prerequisite for the while/do-while reducer to recognize
// a loop at all.
package denature

import (
	"sort"

	"github.com/unbinary/cfs/cfg"
	"github.com/unbinary/cfs/graph"
	"github.com/unbinary/cfs/loopanalysis"
	"github.com/unbinary/cfs/util/orderedset"
)

// Denaturate returns a clone of c with surplus loop-exit edges removed: for every
// natural-loop SCC with more than one exit edge, it keeps a single canonical target
// (the one with the greatest spanning-tree depth, breaking ties by the target's stable
// BasicBlock id so the resolution is deterministic across runs) and then, if more than
// one exit still lands on it, keeps only the exit with the most predecessors.
func Denaturate(c *cfg.CFG) *cfg.CFG {
	out := c.Clone()
	if out.IsEmpty() {
		return out
	}

	sccs := graph.SCCs[*cfg.BasicBlock](out.View())
	preds := graph.Predecessors[*cfg.BasicBlock](out.View())
	depth := loopanalysis.CalculateDepth[*cfg.BasicBlock](out.View())
	isLoop := loopanalysis.IsLoop(sccs)

	done := make(map[int]bool)
	for _, n := range out.Preorder() {
		id := sccs[n]
		if done[id] {
			continue
		}
		done[id] = true
		denaturateLoop(n, sccs, preds, depth, isLoop, out)
	}
	return out
}

func denaturateLoop(
	header *cfg.BasicBlock,
	sccs map[*cfg.BasicBlock]int,
	preds map[*cfg.BasicBlock]*orderedset.Set[*cfg.BasicBlock],
	depth map[*cfg.BasicBlock]int,
	isLoop map[*cfg.BasicBlock]bool,
	c *cfg.CFG,
) {
	exits, targets := loopanalysis.ExitsAndTargets[*cfg.BasicBlock](header, sccs, c.View())
	if exits.Len() <= 1 || !isLoop[header] {
		return
	}

	if targets.Len() >= 2 {
		canonical := deepestTarget(targets.Values(), depth)
		toRemove := make(map[*cfg.BasicBlock]bool)
		for _, t := range targets.Values() {
			if t != canonical {
				toRemove[t] = true
			}
		}
		removeEdges(header, toRemove, sccs, c)
	}

	exits2, targets2 := loopanalysis.ExitsAndTargets[*cfg.BasicBlock](header, sccs, c.View())
	if targets2.Len() == 1 && exits2.Len() > 1 {
		sortedExits := append([]*cfg.BasicBlock(nil), exits2.Values()...)
		sort.SliceStable(sortedExits, func(i, j int) bool {
			return preds[sortedExits[i]].Len() < preds[sortedExits[j]].Len()
		})
		// Keep the exit with the most predecessors (the last after ascending sort) and
		// collapse every other exit's edge to the target, by the same rule as removeEdges.
		target := targets2.Values()[0]
		for _, e := range sortedExits[:len(sortedExits)-1] {
			if c.Cond(e) == target {
				c.Edges[e] = cfg.Edges{c.Next(e), nil}
			} else if c.Next(e) == target {
				c.Edges[e] = cfg.Edges{c.Cond(e), nil}
			}
		}
	}
	// One exit, two targets is left unhandled here; later reducers either cope with
	// the remaining two-target shape or the CFG is reported irreducible.
}

// deepestTarget returns the target with the greatest spanning-tree depth, breaking
// ties by the smaller BasicBlock id so the choice is deterministic across runs.
func deepestTarget(targets []*cfg.BasicBlock, depth map[*cfg.BasicBlock]int) *cfg.BasicBlock {
	best := targets[0]
	for _, t := range targets[1:] {
		if depth[t] > depth[best] || (depth[t] == depth[best] && t.ID() < best.ID()) {
			best = t
		}
	}
	return best
}

// removeEdges walks header's SCC via intra-SCC edges only and removes, from any
// visited node, the single edge whose destination is in targets — collapsing that
// node's two-slot successor array down to its surviving edge in slot 0. A node's cond
// edge is checked before its next edge; the walk follows both of a node's successors
// when they lie in header's SCC.
func removeEdges(header *cfg.BasicBlock, targets map[*cfg.BasicBlock]bool, sccs map[*cfg.BasicBlock]int, c *cfg.CFG) {
	headerSCC := sccs[header]
	visited := orderedset.NewFrom(header)
	stack := []*cfg.BasicBlock{header}
	type change struct {
		node  *cfg.BasicBlock
		edges cfg.Edges
	}
	var changes []change

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cond := c.Cond(n); cond != nil {
			if targets[cond] {
				changes = append(changes, change{n, cfg.Edges{c.Next(n), nil}})
			} else {
				if !visited.Contains(cond) && sccs[cond] == headerSCC {
					stack = append(stack, cond)
				}
				visited.Add(cond)
			}
		}
		if next := c.Next(n); next != nil {
			if targets[next] {
				changes = append(changes, change{n, cfg.Edges{c.Cond(n), nil}})
			} else {
				if !visited.Contains(next) && sccs[next] == headerSCC {
					stack = append(stack, next)
				}
				visited.Add(next)
			}
		}
	}

	for _, ch := range changes {
		c.Edges[ch.node] = ch.edges
	}
}
