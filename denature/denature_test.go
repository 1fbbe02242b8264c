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

package denature

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unbinary/cfs/cfg"
)

func TestDenaturate_Empty(t *testing.T) {
	c := cfg.New()
	out := Denaturate(c)
	require.True(t, out.IsEmpty())
}

func TestDenaturate_AcyclicNoOp(t *testing.T) {
	a, b, d := cfg.NewBasicBlock(0), cfg.NewBasicBlock(1), cfg.NewBasicBlock(2)
	c := cfg.New()
	c.Root = a
	c.Edges[a] = cfg.Edges{b, nil}
	c.Edges[b] = cfg.Edges{d, nil}
	c.Edges[d] = cfg.Edges{nil, nil}

	out := Denaturate(c)
	require.Equal(t, c.Edges[a], out.Edges[a])
	require.Equal(t, c.Edges[b], out.Edges[b])
	require.Equal(t, c.Edges[d], out.Edges[d])
}

func TestDenaturate_SelfLoopIsNotALoop(t *testing.T) {
	// A size-1 SCC with a self-edge is left to the self-loop reducer, not denaturation.
	h, exit := cfg.NewBasicBlock(0), cfg.NewBasicBlock(1)
	c := cfg.New()
	c.Root = h
	c.Edges[h] = cfg.Edges{h, exit}
	c.Edges[exit] = cfg.Edges{nil, nil}

	out := Denaturate(c)
	require.Equal(t, c.Edges[h], out.Edges[h])
}

func TestDenaturate_SingleExitNoOp(t *testing.T) {
	// H <-> M is a natural loop with exactly one exit (M's "next"); nothing to remove.
	h, m, exit := cfg.NewBasicBlock(0), cfg.NewBasicBlock(1), cfg.NewBasicBlock(2)
	c := cfg.New()
	c.Root = h
	c.Edges[h] = cfg.Edges{m, nil}
	c.Edges[m] = cfg.Edges{exit, h}
	c.Edges[exit] = cfg.Edges{nil, nil}

	out := Denaturate(c)
	require.Equal(t, c.Edges[h], out.Edges[h])
	require.Equal(t, c.Edges[m], out.Edges[m])
}

func TestDenaturate_CanonicalTargetThenExitPruning(t *testing.T) {
	// A loop with three exit nodes (a, b, d) and two distinct external targets: a and b
	// both exit to t2, d exits to t1. Denaturate must first canonicalize to the single
	// deepest target (t2, tie-broken by the smaller id against t1, both leaves at depth
	// 0), then prune the redundant a/b pair of exits converging on it down to the one
	// with the most predecessors (a and b have one each; the stable sort keeps b, the
	// later-discovered exit).
	head := cfg.NewBasicBlock(1)
	a := cfg.NewBasicBlock(2)
	b := cfg.NewBasicBlock(3)
	d := cfg.NewBasicBlock(4)
	t2 := cfg.NewBasicBlock(9)
	t1 := cfg.NewBasicBlock(10)

	c := cfg.New()
	c.Root = head
	c.Edges[head] = cfg.Edges{a, nil}
	c.Edges[a] = cfg.Edges{t2, b}
	c.Edges[b] = cfg.Edges{t2, d}
	c.Edges[d] = cfg.Edges{head, t1}
	c.Edges[t1] = cfg.Edges{nil, nil}
	c.Edges[t2] = cfg.Edges{nil, nil}

	out := Denaturate(c)

	// Canonical-target selection: d's exit to the non-canonical t1 is removed.
	require.Equal(t, cfg.Edges{head, nil}, out.Edges[d])
	// Exit pruning: of the two exits left pointing at the canonical t2 (a and b, tied
	// on predecessor count), a's exit edge is pruned and b's is kept.
	require.Equal(t, cfg.Edges{b, nil}, out.Edges[a])
	require.Equal(t, cfg.Edges{t2, d}, out.Edges[b])
	require.Equal(t, cfg.Edges{a, nil}, out.Edges[head])
}

func TestDeepestTarget_PicksGreaterDepth(t *testing.T) {
	a, b := cfg.NewBasicBlock(0), cfg.NewBasicBlock(1)
	depth := map[*cfg.BasicBlock]int{a: 1, b: 3}

	require.Equal(t, b, deepestTarget([]*cfg.BasicBlock{a, b}, depth))
	require.Equal(t, b, deepestTarget([]*cfg.BasicBlock{b, a}, depth))
}

func TestDeepestTarget_TiesBreakBySmallerID(t *testing.T) {
	a, b := cfg.NewBasicBlock(5), cfg.NewBasicBlock(2)
	depth := map[*cfg.BasicBlock]int{a: 1, b: 1}

	require.Equal(t, b, deepestTarget([]*cfg.BasicBlock{a, b}, depth))
	require.Equal(t, b, deepestTarget([]*cfg.BasicBlock{b, a}, depth))
}

func TestRemoveEdges_CondSlotMatch(t *testing.T) {
	// n's cond edge is the removal target; its next edge survives into slot 0.
	n, target, keep := cfg.NewBasicBlock(0), cfg.NewBasicBlock(1), cfg.NewBasicBlock(2)
	c := cfg.New()
	c.Root = n
	c.Edges[n] = cfg.Edges{keep, target}
	c.Edges[target] = cfg.Edges{nil, nil}
	c.Edges[keep] = cfg.Edges{nil, nil}
	sccs := map[*cfg.BasicBlock]int{n: 0, keep: 0, target: 1}

	removeEdges(n, map[*cfg.BasicBlock]bool{target: true}, sccs, c)

	require.Equal(t, cfg.Edges{keep, nil}, c.Edges[n])
}

func TestRemoveEdges_NextSlotMatch(t *testing.T) {
	n, target := cfg.NewBasicBlock(0), cfg.NewBasicBlock(1)
	c := cfg.New()
	c.Root = n
	c.Edges[n] = cfg.Edges{target, nil}
	c.Edges[target] = cfg.Edges{nil, nil}
	sccs := map[*cfg.BasicBlock]int{n: 0, target: 1}

	removeEdges(n, map[*cfg.BasicBlock]bool{target: true}, sccs, c)

	require.Equal(t, cfg.Edges{nil, nil}, c.Edges[n])
}

func TestRemoveEdges_NoMatchLeavesEdgesUntouched(t *testing.T) {
	n, a, b := cfg.NewBasicBlock(0), cfg.NewBasicBlock(1), cfg.NewBasicBlock(2)
	c := cfg.New()
	c.Root = n
	c.Edges[n] = cfg.Edges{a, b}
	c.Edges[a] = cfg.Edges{nil, nil}
	c.Edges[b] = cfg.Edges{nil, nil}
	sccs := map[*cfg.BasicBlock]int{n: 0, a: 1, b: 1}

	other := cfg.NewBasicBlock(99)
	removeEdges(n, map[*cfg.BasicBlock]bool{other: true}, sccs, c)

	require.Equal(t, cfg.Edges{a, b}, c.Edges[n])
}
