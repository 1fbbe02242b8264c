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

// Package ingest lowers a real Go function's control-flow graph, as built by
// golang.org/x/tools/go/cfg, into this module's cfg.CFG. Building a CFG from machine
// code or any other source is out of scope; this
// package is what bridges that boundary for Go source in this repository.
package ingest

import (
	"errors"
	"fmt"

	toolscfg "golang.org/x/tools/go/cfg"

	"github.com/unbinary/cfs/cfg"
)

// ErrUnsupportedBranching is returned by FromGoCFG when a block has more than two
// successors — e.g. a bare select statement, which go/cfg does not reduce to a binary
// decision the way it does switch statements (see markSwitchStatements in the sibling
// assertion/function/preprocess package this module's teacher ships, which this engine
// does not need since it structures control flow rather than analyzing expressions).
var ErrUnsupportedBranching = errors.New("ingest: block has more than two successors")

// FromGoCFG lowers g into a cfg.CFG: one cfg.BasicBlock per live go/cfg.Block, in the
// same Succs order: the first live successor becomes the "next" edge and the second
// the "cond" edge. Unreachable blocks (block.Live == false) are skipped entirely, along
// with any edge that would point to one.
func FromGoCFG(g *toolscfg.CFG) (*cfg.CFG, error) {
	out := cfg.New()
	if len(g.Blocks) == 0 {
		return out, nil
	}

	nodes := make(map[*toolscfg.Block]*cfg.BasicBlock, len(g.Blocks))
	for _, b := range g.Blocks {
		if !b.Live {
			continue
		}
		nodes[b] = cfg.NewBasicBlock(int(b.Index))
	}

	entry := g.Blocks[0]
	root, ok := nodes[entry]
	if !ok {
		return out, nil
	}
	out.Root = root

	for _, b := range g.Blocks {
		n, ok := nodes[b]
		if !ok {
			continue
		}
		succs := liveSuccessors(b, nodes)
		if len(succs) > 2 {
			return nil, fmt.Errorf("%w: block %d has %d successors", ErrUnsupportedBranching, b.Index, len(succs))
		}
		var edges cfg.Edges
		copy(edges[:], succs)
		out.Edges[n] = edges
	}
	return out, nil
}

func liveSuccessors(b *toolscfg.Block, nodes map[*toolscfg.Block]*cfg.BasicBlock) []*cfg.BasicBlock {
	out := make([]*cfg.BasicBlock, 0, len(b.Succs))
	for _, s := range b.Succs {
		if n, ok := nodes[s]; ok {
			out = append(out, n)
		}
	}
	return out
}
