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

// Package reduce implements the five pattern reducers the structuring engine's driver
// (package cfs) applies, in priority order, to a node of the structure-block graph:
// self-loop, sequence, if-then, if-then-else, and natural loop (while / do-while).
// Each reducer either reports that its pattern did not match at this node, or returns
// the single Nested block that absorbs the matched nodes plus the one block (if any)
// control continues to afterward — the "remap" operation then splices
// that block into the graph in the caller's place.
package reduce

import (
	"github.com/unbinary/cfs/block"
	"github.com/unbinary/cfs/graph"
	"github.com/unbinary/cfs/util/orderedset"
)

// Preds is the predecessor-set view the reducers need: the graph's predecessor map,
// keyed by the same nodes as the graph being reduced.
type Preds = map[block.StructureBlock]*orderedset.Set[block.StructureBlock]

// Loops reports, for every node, whether it sits in a non-trivial SCC of the graph
// being reduced.
type Loops = map[block.StructureBlock]bool

// Reduction is what a matching Reducer returns: the block that replaces the matched
// nodes, and the node (if any) control falls through to afterward.
type Reduction struct {
	Block   block.StructureBlock
	Next    block.StructureBlock
	HasNext bool
}

// Reducer inspects node in the context of g (and its precomputed predecessor and loop
// membership maps) and, if its pattern matches at node, returns the Reduction to apply
// and true. A Reducer that does not match returns the zero Reduction and false.
type Reducer func(node block.StructureBlock, g *graph.DirectedGraph[block.StructureBlock], preds Preds, loops Loops) (Reduction, bool)

// All lists the five reducers in the priority order the driver tries them: the first
// to match at a node wins. Matching self-loops before sequences, and sequences before
// conditionals, keeps the if-then/if-else chain-ascension logic from having to look
// through already-flattened straight-line code.
var All = []Reducer{
	SelfLoop,
	Sequence,
	IfThen,
	IfElse,
	Loop,
}

// SelfLoop matches a single basic block with exactly two children, one of them being
// itself. It wraps the block alone in a SelfLooping nested
// block and falls through to its other child.
func SelfLoop(node block.StructureBlock, g *graph.DirectedGraph[block.StructureBlock], _ Preds, _ Loops) (Reduction, bool) {
	if node.Kind() != block.Basic {
		return Reduction{}, false
	}
	children := g.Children(node)
	if len(children) != 2 {
		return Reduction{}, false
	}
	var next block.StructureBlock
	var hasSelf bool
	for _, c := range children {
		if c == node {
			hasSelf = true
		} else {
			next = c
		}
	}
	if !hasSelf {
		return Reduction{}, false
	}
	return Reduction{
		Block:   block.NewNested(block.SelfLooping, []block.StructureBlock{node}),
		Next:    next,
		HasNext: true,
	}, true
}

// Sequence matches a node with exactly one child whose only predecessor is node itself
// and which has at most one successor of its own: straight-line code
// with no branch or extra join in between. It flattens node and its successor into a
// single Sequence block.
func Sequence(node block.StructureBlock, g *graph.DirectedGraph[block.StructureBlock], preds Preds, _ Loops) (Reduction, bool) {
	children := g.Children(node)
	if len(children) != 1 {
		return Reduction{}, false
	}
	next := children[0]
	nextChildren := g.Children(next)
	if preds[next].Len() != 1 || len(nextChildren) > 1 {
		return Reduction{}, false
	}
	red := Reduction{Block: block.FlattenSequence(node, next)}
	if len(nextChildren) == 1 {
		red.Next, red.HasNext = nextChildren[0], true
	}
	return red, true
}

// IfThen matches the innermost if-then shape: a head with two children, then and cont,
// where then has a single predecessor (head) and falls straight through to cont
//. The then/cont roles may appear in either child slot; whichever child
// has a single child equal to the other, with a single predecessor, is then.
func IfThen(node block.StructureBlock, g *graph.DirectedGraph[block.StructureBlock], preds Preds, _ Loops) (Reduction, bool) {
	children := g.Children(node)
	if len(children) != 2 {
		return Reduction{}, false
	}
	head := node
	then, cont := children[0], children[1]
	thenChildren, contChildren := g.Children(then), g.Children(cont)
	thenPreds, contPreds := preds[then], preds[cont]

	if len(contChildren) == 1 && contChildren[0] == then && contPreds.Len() == 1 {
		then, cont = cont, then
		thenChildren, contChildren = contChildren, thenChildren
		thenPreds, contPreds = contPreds, thenPreds
	}
	if !(len(thenChildren) == 1 && thenChildren[0] == cont && thenPreds.Len() == 1) {
		return Reduction{}, false
	}

	chain := ascendIfChain([]block.StructureBlock{then, head}, cont, g, preds)
	content := reverseBlocks(chain)
	return Reduction{
		Block:   block.NewNested(block.IfThen, content),
		Next:    cont,
		HasNext: true,
	}, true
}

// IfElse matches the innermost if-then-else shape: a head with two children, thenb and
// elseb, each with a single child, the same child in both cases. The
// branch whose own predecessor count is greater than one is treated as the shared join
// target and swapped into the elseb role so ascendIfChain always walks up through the
// single-predecessor branch.
func IfElse(node block.StructureBlock, g *graph.DirectedGraph[block.StructureBlock], preds Preds, _ Loops) (Reduction, bool) {
	children := g.Children(node)
	if len(children) != 2 {
		return Reduction{}, false
	}
	thenb, elseb := children[0], children[1]
	thenbPreds, elsebPreds := preds[thenb], preds[elseb]
	if thenbPreds.Len() > 1 {
		if elsebPreds.Len() != 1 {
			return Reduction{}, false
		}
		thenb, elseb = elseb, thenb
	}

	thenbChildren, elsebChildren := g.Children(thenb), g.Children(elseb)
	if !(len(thenbChildren) == 1 && len(elsebChildren) == 1 && thenbChildren[0] == elsebChildren[0]) {
		return Reduction{}, false
	}

	chain := ascendIfChain([]block.StructureBlock{elseb, thenb, node}, elseb, g, preds)
	content := reverseBlocks(chain)
	return Reduction{
		Block:   block.NewNested(block.IfThenElse, content),
		Next:    elsebChildren[0],
		HasNext: true,
	}, true
}

// ascendIfChain extends a reversed if-then(-else) chain upward through single-
// predecessor heads whose other child is cont, so that a staircase of nested
// conditionals sharing the same continuation collapses into one block instead of one
// per level.
func ascendIfChain(
	revChain []block.StructureBlock,
	cont block.StructureBlock,
	g *graph.DirectedGraph[block.StructureBlock],
	preds Preds,
) []block.StructureBlock {
	visited := make(map[block.StructureBlock]bool, len(revChain))
	for _, n := range revChain {
		visited[n] = true
	}
	curHead := revChain[len(revChain)-1]
	for preds[curHead].Len() == 1 {
		curHead = preds[curHead].Values()[0]
		if visited[curHead] {
			break
		}
		visited[curHead] = true
		headChildren := g.Children(curHead)
		if len(headChildren) == 2 && (headChildren[0] == cont || headChildren[1] == cont) {
			revChain = append(revChain, curHead)
		} else {
			break
		}
	}
	return revChain
}

func reverseBlocks(s []block.StructureBlock) []block.StructureBlock {
	out := make([]block.StructureBlock, len(s))
	for i, b := range s {
		out[len(s)-1-i] = b
	}
	return out
}

// Loop matches a natural-loop header with more than one predecessor:
// a node with two children is tried as a while loop, one with a single child as a
// do-while loop.
func Loop(node block.StructureBlock, g *graph.DirectedGraph[block.StructureBlock], preds Preds, loops Loops) (Reduction, bool) {
	if !loops[node] || preds[node].Len() <= 1 {
		return Reduction{}, false
	}
	children := g.Children(node)
	switch len(children) {
	case 2:
		return findWhile(node, children[0], children[1], g)
	case 1:
		tail := children[0]
		return findDoWhile(node, tail, g.Children(tail), g)
	default:
		return Reduction{}, false
	}
}

// findWhile matches node (the loop's conditional head) plus tail, a single-child node
// whose only successor is node itself — the classic while-loop shape, condition first.
func findWhile(node, next, tail block.StructureBlock, g *graph.DirectedGraph[block.StructureBlock]) (Reduction, bool) {
	if contains(g.Children(next), node) {
		next, tail = tail, next
	}
	tailChildren := g.Children(tail)
	if len(tailChildren) != 1 || tailChildren[0] != node {
		return Reduction{}, false
	}
	return Reduction{
		Block:   block.NewNested(block.While, []block.StructureBlock{node, tail}),
		Next:    next,
		HasNext: true,
	}, true
}

// findDoWhile matches node (an unconditional loop header) plus tail, the node whose
// branch decides whether to repeat. tail's two children are either [node, exit] (the
// body is just node and tail) or two more nodes, exactly one of which (post-tail) loops
// straight back to node — a do-while body with one extra node between tail and head.
func findDoWhile(node, tail block.StructureBlock, tailChildren []block.StructureBlock, g *graph.DirectedGraph[block.StructureBlock]) (Reduction, bool) {
	if len(tailChildren) != 2 {
		return Reduction{}, false
	}
	if !contains(tailChildren, node) {
		a, b := tailChildren[0], tailChildren[1]
		aChildren, bChildren := g.Children(a), g.Children(b)
		var postTail, next block.StructureBlock
		switch {
		case len(aChildren) == 1 && aChildren[0] == node:
			postTail, next = a, b
		case len(bChildren) == 1 && bChildren[0] == node:
			postTail, next = b, a
		default:
			return Reduction{}, false
		}
		return Reduction{
			Block:   block.NewNested(block.DoWhile, []block.StructureBlock{node, tail, postTail}),
			Next:    next,
			HasNext: true,
		}, true
	}

	next := tailChildren[0]
	if next == node {
		next = tailChildren[1]
	}
	return Reduction{
		Block:   block.NewNested(block.DoWhile, []block.StructureBlock{node, tail}),
		Next:    next,
		HasNext: true,
	}, true
}

func contains(s []block.StructureBlock, v block.StructureBlock) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
