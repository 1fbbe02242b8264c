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

package cfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unbinary/cfs/block"
	"github.com/unbinary/cfs/cfg"
)

// mkCFG builds a CFG from a root id and an edge map of id -> [next, cond], using -1 for
// no edge. Each id used anywhere gets its own *cfg.BasicBlock.
func mkCFG(root int, edges map[int][2]int) *cfg.CFG {
	nodes := make(map[int]*cfg.BasicBlock)
	get := func(id int) *cfg.BasicBlock {
		if id < 0 {
			return nil
		}
		if n, ok := nodes[id]; ok {
			return n
		}
		n := cfg.NewBasicBlock(id)
		nodes[id] = n
		return n
	}
	c := cfg.New()
	c.Root = get(root)
	for id, e := range edges {
		c.Edges[get(id)] = cfg.Edges{get(e[0]), get(e[1])}
	}
	return c
}

func leafNode(sb block.StructureBlock) *cfg.BasicBlock {
	return sb.(*block.Leaf).Node
}

func TestBuild_Sequence(t *testing.T) {
	c := mkCFG(0, map[int][2]int{
		0: {1, -1},
		1: {2, -1},
		2: {-1, -1},
	})

	tree, ok := Build(c).Tree()
	require.True(t, ok)
	require.Equal(t, block.Sequence, tree.Kind())
	require.Len(t, tree.Children(), 3)
	for i, child := range tree.Children() {
		require.Equal(t, i, leafNode(child).ID())
	}
}

func TestBuild_SelfLoopThenExit(t *testing.T) {
	c := mkCFG(0, map[int][2]int{
		0: {0, 1},
		1: {-1, -1},
	})

	tree, ok := Build(c).Tree()
	require.True(t, ok)
	require.Equal(t, block.Sequence, tree.Kind())
	require.Len(t, tree.Children(), 2)

	selfLoop := tree.Children()[0]
	require.Equal(t, block.SelfLooping, selfLoop.Kind())
	require.Equal(t, 0, leafNode(selfLoop.Children()[0]).ID())
	require.Equal(t, 1, leafNode(tree.Children()[1]).ID())
}

func TestBuild_IfThen(t *testing.T) {
	c := mkCFG(0, map[int][2]int{
		0: {1, 2},
		1: {2, -1},
		2: {-1, -1},
	})

	tree, ok := Build(c).Tree()
	require.True(t, ok)
	require.Equal(t, block.Sequence, tree.Kind())
	require.Len(t, tree.Children(), 2)

	ifThen := tree.Children()[0]
	require.Equal(t, block.IfThen, ifThen.Kind())
	require.Equal(t, []int{0, 1}, []int{leafNode(ifThen.Children()[0]).ID(), leafNode(ifThen.Children()[1]).ID()})
	require.Equal(t, 2, leafNode(tree.Children()[1]).ID())
}

func TestBuild_IfThen_AscendsMultipleShortCircuitHeads(t *testing.T) {
	// A two-level short-circuit staircase sharing one continuation: 0 -> {1, 3},
	// 1 -> {2, 3}, 2 -> {3}, 3 -> {}. Both levels must collapse into a single IfThen.
	c := mkCFG(0, map[int][2]int{
		0: {1, 3},
		1: {2, 3},
		2: {3, -1},
		3: {-1, -1},
	})

	tree, ok := Build(c).Tree()
	require.True(t, ok)
	require.Equal(t, block.Sequence, tree.Kind())
	require.Len(t, tree.Children(), 2)

	ifThen := tree.Children()[0]
	require.Equal(t, block.IfThen, ifThen.Kind())
	require.Len(t, ifThen.Children(), 3)
	require.Equal(t, []int{0, 1, 2}, []int{
		leafNode(ifThen.Children()[0]).ID(),
		leafNode(ifThen.Children()[1]).ID(),
		leafNode(ifThen.Children()[2]).ID(),
	})
	require.Equal(t, 3, leafNode(tree.Children()[1]).ID())
}

func TestBuild_IfElse(t *testing.T) {
	c := mkCFG(0, map[int][2]int{
		0: {1, 2},
		1: {3, -1},
		2: {3, -1},
		3: {-1, -1},
	})

	tree, ok := Build(c).Tree()
	require.True(t, ok)
	require.Equal(t, block.Sequence, tree.Kind())
	require.Len(t, tree.Children(), 2)

	ifElse := tree.Children()[0]
	require.Equal(t, block.IfThenElse, ifElse.Kind())
	require.Len(t, ifElse.Children(), 3)
	require.Equal(t, 3, leafNode(tree.Children()[1]).ID())
}

func TestBuild_While(t *testing.T) {
	// 0 (entry) -> 1 (head); 1 -> {2 (tail), 3 (exit)}; 2 -> 1
	c := mkCFG(0, map[int][2]int{
		0: {1, -1},
		1: {2, 3},
		2: {1, -1},
		3: {-1, -1},
	})

	tree, ok := Build(c).Tree()
	require.True(t, ok)
	require.Equal(t, block.Sequence, tree.Kind())
	require.Len(t, tree.Children(), 3)
	require.Equal(t, 0, leafNode(tree.Children()[0]).ID())

	while := tree.Children()[1]
	require.Equal(t, block.While, while.Kind())
	require.Equal(t, []int{1, 2}, []int{leafNode(while.Children()[0]).ID(), leafNode(while.Children()[1]).ID()})
	require.Equal(t, 3, leafNode(tree.Children()[2]).ID())
}

func TestBuild_DoWhile(t *testing.T) {
	// 0 (entry) -> 1 (head) -> 2 (tail) -> {1, 3 (exit)}
	c := mkCFG(0, map[int][2]int{
		0: {1, -1},
		1: {2, -1},
		2: {1, 3},
		3: {-1, -1},
	})

	tree, ok := Build(c).Tree()
	require.True(t, ok)
	require.Equal(t, block.Sequence, tree.Kind())
	require.Len(t, tree.Children(), 3)
	require.Equal(t, 0, leafNode(tree.Children()[0]).ID())

	doWhile := tree.Children()[1]
	require.Equal(t, block.DoWhile, doWhile.Kind())
	require.Equal(t, []int{1, 2}, []int{leafNode(doWhile.Children()[0]).ID(), leafNode(doWhile.Children()[1]).ID()})
	require.Equal(t, 3, leafNode(tree.Children()[2]).ID())
}

func TestBuild_IrreducibleLeavesResidual(t *testing.T) {
	// Two branches with no shared join: no reducer can collapse this.
	c := mkCFG(0, map[int][2]int{
		0: {1, 2},
		1: {-1, -1},
		2: {-1, -1},
	})

	built := Build(c)
	_, ok := built.Tree()
	require.False(t, ok)
	require.Equal(t, c, built.CFG())
}

func TestBuild_EmptyCFG(t *testing.T) {
	_, ok := Build(cfg.New()).Tree()
	require.False(t, ok)
}
