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

// Package cache holds the per-function structuring summary cmd/cfsdump exports as an
// analysis.Fact, so that a package analyzed once does not need to be re-structured by
// every downstream package that imports it.
package cache

import (
	"bytes"
	"encoding/gob"
	"errors"

	"github.com/klauspost/compress/s2"

	"github.com/unbinary/cfs/block"
)

// Summary is a compact description of one function's structuring result: whether it
// fully reduced to a single block, its leaf and nesting-depth counts, and how many
// blocks of each Kind it produced. It is gob-encoded and compressed with s2 so it is
// cheap to propagate through go/analysis's fact mechanism.
type Summary struct {
	FuncName   string
	Reducible  bool
	Leaves     int
	MaxDepth   int
	KindCounts map[block.Kind]int
}

// AFact marks Summary as usable with pass.ExportObjectFact / pass.ImportObjectFact.
func (*Summary) AFact() {}

// Summarize builds a Summary for funcName from tree (the result of a successful
// cfs.Build reduction). If ok is false, tree is ignored and Leaves is set to
// residualLeaves, which callers pass as cfs.CFS.Residual(): the number of nodes, basic
// or nested, left in the unreduced graph.
func Summarize(funcName string, tree block.StructureBlock, ok bool, residualLeaves int) *Summary {
	s := &Summary{FuncName: funcName, Reducible: ok, KindCounts: make(map[block.Kind]int)}
	if !ok {
		s.Leaves = residualLeaves
		return s
	}
	s.Leaves = tree.Size()
	s.MaxDepth = tree.Depth()
	countKinds(tree, s.KindCounts)
	return s
}

func countKinds(b block.StructureBlock, counts map[block.Kind]int) {
	counts[b.Kind()]++
	for _, c := range b.Children() {
		countKinds(c, counts)
	}
}

// gobSummary is the wire shape GobEncode/GobDecode (de)serialize: block.Kind keys in a
// map don't round-trip through gob directly inside an exported struct field the way a
// string-keyed map does, so KindCounts is flattened to parallel slices for encoding.
type gobSummary struct {
	FuncName   string
	Reducible  bool
	Leaves     int
	MaxDepth   int
	KindKeys   []block.Kind
	KindValues []int
}

// GobEncode encodes the summary via gob encoding, s2-compressed.
func (s *Summary) GobEncode() (b []byte, err error) {
	var buf bytes.Buffer
	writer := s2.NewWriter(&buf)
	defer func() {
		if cerr := writer.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	g := gobSummary{FuncName: s.FuncName, Reducible: s.Reducible, Leaves: s.Leaves, MaxDepth: s.MaxDepth}
	for k, v := range s.KindCounts {
		g.KindKeys = append(g.KindKeys, k)
		g.KindValues = append(g.KindValues, v)
	}
	if err := gob.NewEncoder(writer).Encode(g); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode decodes a Summary from buffer.
func (s *Summary) GobDecode(input []byte) error {
	var g gobSummary
	buf := bytes.NewBuffer(input)
	if err := gob.NewDecoder(s2.NewReader(buf)).Decode(&g); err != nil {
		return err
	}
	s.FuncName, s.Reducible, s.Leaves, s.MaxDepth = g.FuncName, g.Reducible, g.Leaves, g.MaxDepth
	s.KindCounts = make(map[block.Kind]int, len(g.KindKeys))
	for i, k := range g.KindKeys {
		s.KindCounts[k] = g.KindValues[i]
	}
	return nil
}
