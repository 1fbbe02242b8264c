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

// Package cfsdump implements the top-level analyzer that structures every function
// body in the analyzed package and reports on the result.
package cfsdump

import (
	"flag"
	"fmt"
	"go/ast"
	"runtime/debug"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	toolscfg "golang.org/x/tools/go/cfg"

	"github.com/unbinary/cfs/cache"
	"github.com/unbinary/cfs/cfs"
	"github.com/unbinary/cfs/config"
	"github.com/unbinary/cfs/ingest"
	"github.com/unbinary/cfs/report"
)

const _doc = "Run the control-flow structuring engine on every function in this package and " +
	"report any it could not fully reduce to a single structured block"

// Analyzer is the top-level instance that coordinates structuring every function body in the
// analyzed package. cmd/cfsdump wraps it with singlechecker to make it a standalone binary.
var Analyzer = &analysis.Analyzer{
	Name:      "cfsdump",
	Doc:       _doc,
	Run:       run,
	Flags:     flags(),
	FactTypes: []analysis.Fact{new(cache.Summary)},
	Requires:  []*analysis.Analyzer{inspect.Analyzer},
}

var (
	_verbose   bool
	_maxRounds int
)

func flags() flag.FlagSet {
	var fs flag.FlagSet
	fs.BoolVar(&_verbose, "verbose", false, "report per-function size/depth/kind-count stats for successfully structured functions")
	fs.IntVar(&_maxRounds, "max-rounds", config.MaxReductionRounds, "override the maximum number of reduction rounds before the engine gives up on a function")
	return fs
}

func run(pass *analysis.Pass) (result any, err error) {
	// As a last resort, we recover from a panic when structuring a function, convert it to an
	// error, and stop analyzing this package, so an internal invariant violation in one
	// package never crashes the whole driver.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cfsdump: INTERNAL PANIC: %v\n%s", r, string(debug.Stack()))
		}
	}()

	if _maxRounds > 0 {
		config.MaxReductionRounds = _maxRounds
	}

	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	nodeFilter := []ast.Node{(*ast.FuncDecl)(nil)}

	insp.Preorder(nodeFilter, func(n ast.Node) {
		funcDecl := n.(*ast.FuncDecl)
		if funcDecl.Body == nil {
			return
		}

		goCFG := toolscfg.New(funcDecl.Body, nil /* mayReturn */)
		in, ingestErr := ingest.FromGoCFG(goCFG)
		if ingestErr != nil {
			pass.Reportf(funcDecl.Pos(), "cfsdump: %s: %v", funcDecl.Name.Name, ingestErr)
			return
		}

		built := cfs.Build(in)
		tree, ok := built.Tree()
		residual := 0
		if !ok {
			residual = built.Residual()
		}
		summary := cache.Summarize(funcDecl.Name.Name, tree, ok, residual)
		if obj := pass.TypesInfo.ObjectOf(funcDecl.Name); obj != nil {
			pass.ExportObjectFact(obj, summary)
		}

		if diag, shouldReport := report.Build(funcDecl.Pos(), funcDecl.Name.Name, built, _verbose); shouldReport {
			pass.Report(diag)
		}
	})

	return nil, nil
}
