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

// Package report turns a structuring result into the analysis.Diagnostic(s)
// cmd/cfsdump reports.
package report

import (
	"fmt"
	"go/token"
	"sort"

	"golang.org/x/tools/go/analysis"

	"github.com/unbinary/cfs/block"
	"github.com/unbinary/cfs/cfs"
)

// Irreducible builds the diagnostic reported when funcName's CFG did not fully reduce
// to a single block: residual is the number of blocks (basic or nested) still present
// in the unreduced graph.
func Irreducible(pos token.Pos, funcName string, residual int) analysis.Diagnostic {
	return analysis.Diagnostic{
		Pos: pos,
		Message: fmt.Sprintf(
			"could not fully structure %s: %d block(s) remain unstructured after reduction",
			funcName, residual,
		),
	}
}

// Stats builds the informational diagnostic -verbose reports for a function that
// structured successfully: its leaf count, nesting depth, and a count of each Kind of
// nested block it produced, sorted by Kind for a stable message.
func Stats(pos token.Pos, funcName string, tree block.StructureBlock) analysis.Diagnostic {
	counts := make(map[block.Kind]int)
	countKinds(tree, counts)

	kinds := make([]block.Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	msg := fmt.Sprintf("%s structured: %d leaf block(s), depth %d", funcName, tree.Size(), tree.Depth())
	for _, k := range kinds {
		if k == block.Basic {
			continue
		}
		msg += fmt.Sprintf(", %d %s", counts[k], k)
	}
	return analysis.Diagnostic{Pos: pos, Message: msg}
}

// Build reports the appropriate diagnostic for result: Irreducible if its tree is
// absent, Stats (only if verbose) otherwise. It returns false as its second value when
// nothing should be reported (a successfully structured function with verbose off).
func Build(pos token.Pos, funcName string, result *cfs.CFS, verbose bool) (analysis.Diagnostic, bool) {
	tree, ok := result.Tree()
	if !ok {
		return Irreducible(pos, funcName, result.Residual()), true
	}
	if !verbose {
		return analysis.Diagnostic{}, false
	}
	return Stats(pos, funcName, tree), true
}

func countKinds(b block.StructureBlock, counts map[block.Kind]int) {
	counts[b.Kind()]++
	for _, c := range b.Children() {
		countKinds(c, counts)
	}
}
