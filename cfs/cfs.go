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

// Package cfs is the structuring engine's entry point: it denaturates a CFG's natural
// loops, lowers it into a graph of structure blocks, and drives the package reduce
// reducers to a fixed point, producing either a single StructureBlock describing the
// whole function or, for a CFG the heuristics cannot fully resolve, a residual graph of
// more than one node.
package cfs

import (
	"fmt"
	"os"

	"github.com/unbinary/cfs/block"
	"github.com/unbinary/cfs/cfg"
	"github.com/unbinary/cfs/config"
	"github.com/unbinary/cfs/denature"
	"github.com/unbinary/cfs/graph"
	"github.com/unbinary/cfs/loopanalysis"
	"github.com/unbinary/cfs/reduce"
)

// CFS holds a CFG alongside the (possibly still-reducing) structure-block graph built
// from it.
type CFS struct {
	cfg  *cfg.CFG
	tree *graph.DirectedGraph[block.StructureBlock]
}

// Build denaturates c's natural loops and runs the reducers to a fixed point,
// returning the resulting CFS. c is not modified; Build works on a private clone.
func Build(c *cfg.CFG) *CFS {
	denatured := denature.Denaturate(c)
	return &CFS{
		cfg:  c,
		tree: driveToFixedPoint(deepCopy(denatured)),
	}
}

// Tree returns the single StructureBlock the whole CFG reduced to, and true — or, if
// the graph did not fully reduce (an irreducible or unsupported control-flow shape),
// the zero value and false.
func (c *CFS) Tree() (block.StructureBlock, bool) {
	if c.tree.Len() != 1 {
		return nil, false
	}
	root, ok := c.tree.Root()
	if !ok {
		return nil, false
	}
	return root, true
}

// CFG returns the original (pre-denaturation) control-flow graph Build was called
// with.
func (c *CFS) CFG() *cfg.CFG {
	return c.cfg
}

// Residual returns the number of nodes (basic or nested) still present in the
// structure-block graph. It is 1 when Tree returns true; for a CFG the reducers could
// not fully resolve, it is the size of the remaining, partially-reduced graph.
func (c *CFS) Residual() int {
	return c.tree.Len()
}

// deepCopy lowers a CFG into a graph of Leaf structure blocks with identical shape:
// one Leaf per BasicBlock, sharing a single Leaf pointer per block so that equal
// StructureBlock values remain equal by Go's native interface equality.
func deepCopy(c *cfg.CFG) *graph.DirectedGraph[block.StructureBlock] {
	g := graph.NewDirectedGraph[block.StructureBlock]()
	if c.IsEmpty() {
		return g
	}

	leaves := make(map[*cfg.BasicBlock]*block.Leaf)
	leafOf := func(n *cfg.BasicBlock) *block.Leaf {
		if l, ok := leaves[n]; ok {
			return l
		}
		l := &block.Leaf{Node: n}
		leaves[n] = l
		return l
	}

	g.SetRoot(leafOf(c.Root))
	visited := make(map[*cfg.BasicBlock]bool)
	stack := []*cfg.BasicBlock{c.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true

		children := c.Children(n)
		blockChildren := make([]block.StructureBlock, len(children))
		for i, ch := range children {
			blockChildren[i] = leafOf(ch)
			stack = append(stack, ch)
		}
		g.Adjacency[leafOf(n)] = blockChildren
	}
	return g
}

// driveToFixedPoint repeatedly tries, in postorder, each reducer in reduce.All at
// every node, applying the first match it finds and restarting the postorder walk
// (since a single match can change the shape of the whole graph); it stops when a full
// pass makes no match at all, or panics past config.MaxReductionRounds rounds, which
// would mean the graph violates an invariant the reducers assume (see config/const.go).
func driveToFixedPoint(g *graph.DirectedGraph[block.StructureBlock]) *graph.DirectedGraph[block.StructureBlock] {
	for round := 0; ; round++ {
		if round > config.MaxReductionRounds {
			panic("cfs: exceeded max reduction rounds; the input CFG likely violates an invariant the reducers assume")
		}
		if g.IsEmpty() {
			return g
		}

		preds := graph.Predecessors[block.StructureBlock](g)
		sccs := graph.SCCs[block.StructureBlock](g)
		loops := loopanalysis.IsLoop(sccs)

		matched := false
		for _, n := range graph.Postorder[block.StructureBlock](g) {
			for _, reducer := range reduce.All {
				red, ok := reducer(n, g, preds, loops)
				if !ok {
					continue
				}
				if config.Debug {
					fmt.Fprintf(os.Stderr, "cfs: round %d: reduced %s into %s\n", round, n, red.Block)
				}
				g.Remap(red.Block, red.Block.Children(), red.Next, red.HasNext)
				matched = true
				break
			}
			if matched {
				break
			}
		}
		if !matched {
			return g
		}
	}
}
