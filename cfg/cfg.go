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

// Package cfg defines the control-flow graph the structuring engine consumes: basic
// blocks with up to two positionally-meaningful successor edges. Building this graph
// from machine code (or, in this repository, from a real Go function's CFG — see the
// ingest package) is explicitly out of scope for this package; it only models the
// shape the rest of the engine is built against.
package cfg

import (
	"fmt"

	"github.com/unbinary/cfs/graph"
)

// BasicBlock is an opaque identity token for a CFG node. Two BasicBlocks are the same
// node iff they are the same pointer: callers are expected to allocate one BasicBlock
// per logical node and share the pointer thereafter.
type BasicBlock struct {
	// id is a stable identifier for the block, e.g. its first instruction's address.
	// It is used only for display; identity is always pointer identity.
	id int
}

// NewBasicBlock returns a new BasicBlock with the given identifier.
func NewBasicBlock(id int) *BasicBlock {
	return &BasicBlock{id: id}
}

// ID returns the block's stable identifier.
func (b *BasicBlock) ID() int {
	return b.id
}

func (b *BasicBlock) String() string {
	return fmt.Sprintf("bb%d", b.id)
}

// Edges is a basic block's successor array. Edges[0] is the "next" edge (the
// fall-through/unconditional/taken-branch successor, whose exact semantics are up to
// the producer); Edges[1] is the "cond" edge. It is a precondition, checked by
// Validate, that Edges[1] is non-nil only if Edges[0] is.
type Edges [2]*BasicBlock

// Validate reports whether e respects the "cond only if next" invariant.
func (e Edges) Validate() bool {
	return e[0] != nil || e[1] == nil
}

// CFG is a rooted directed graph of basic blocks.
type CFG struct {
	Root  *BasicBlock
	Edges map[*BasicBlock]Edges
}

// New returns an empty CFG.
func New() *CFG {
	return &CFG{Edges: make(map[*BasicBlock]Edges)}
}

// IsEmpty reports whether the CFG has no root.
func (c *CFG) IsEmpty() bool {
	return c.Root == nil
}

// Len returns the number of nodes with recorded edges. It is not necessarily the
// number of reachable nodes; use len(Postorder(c)) for that.
func (c *CFG) Len() int {
	return len(c.Edges)
}

// Next returns n's "next" (slot 0) successor, or nil.
func (c *CFG) Next(n *BasicBlock) *BasicBlock {
	return c.Edges[n][0]
}

// Cond returns n's "cond" (slot 1) successor, or nil.
func (c *CFG) Cond(n *BasicBlock) *BasicBlock {
	return c.Edges[n][1]
}

// Children returns n's non-nil successors, in positional order (next before cond).
func (c *CFG) Children(n *BasicBlock) []*BasicBlock {
	e := c.Edges[n]
	var out []*BasicBlock
	if e[0] != nil {
		out = append(out, e[0])
	}
	if e[1] != nil {
		out = append(out, e[1])
	}
	return out
}

// rootNode returns c's root and whether it has one; graphView.Root delegates to it.
func (c *CFG) rootNode() (*BasicBlock, bool) {
	return c.Root, c.Root != nil
}

// Clone makes a shallow copy of the CFG: the same *BasicBlock pointers, a fresh Edges
// map. Denaturation mutates edges in place and must not disturb the caller's CFG.
func (c *CFG) Clone() *CFG {
	clone := &CFG{Root: c.Root, Edges: make(map[*BasicBlock]Edges, len(c.Edges))}
	for n, e := range c.Edges {
		clone.Edges[n] = e
	}
	return clone
}

// graphView adapts *CFG to graph.Graph[*BasicBlock] without exposing rootNode, Next,
// and Cond (which have CFG-specific signatures) as part of a generic interface.
type graphView struct{ cfg *CFG }

func (v graphView) Root() (*BasicBlock, bool)    { return v.cfg.rootNode() }
func (v graphView) Children(n *BasicBlock) []*BasicBlock { return v.cfg.Children(n) }

// View returns a graph.Graph[*BasicBlock] over c, for use with the graph package's
// generic traversals.
func (c *CFG) View() graph.Graph[*BasicBlock] {
	return graphView{cfg: c}
}

// Postorder returns c's nodes in postorder.
func (c *CFG) Postorder() []*BasicBlock {
	return graph.Postorder[*BasicBlock](c.View())
}

// Preorder returns c's nodes in preorder.
func (c *CFG) Preorder() []*BasicBlock {
	return graph.Preorder[*BasicBlock](c.View())
}
