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

package report

import (
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unbinary/cfs/cfg"
	"github.com/unbinary/cfs/cfs"
)

func TestBuild_IrreducibleReportsActualResidualSize(t *testing.T) {
	// 0 -> {1, 2}, two branches with no shared join: nothing reduces, leaving all three
	// leaves in the residual graph. The reported count must track that residual graph,
	// not the size of the original (pre-denaturation) CFG.
	zero, one, two := cfg.NewBasicBlock(0), cfg.NewBasicBlock(1), cfg.NewBasicBlock(2)
	c := cfg.New()
	c.Root = zero
	c.Edges[zero] = cfg.Edges{one, two}
	c.Edges[one] = cfg.Edges{nil, nil}
	c.Edges[two] = cfg.Edges{nil, nil}

	built := cfs.Build(c)
	require.Equal(t, 3, built.Residual())

	diag, shouldReport := Build(token.NoPos, "F", built, false)
	require.True(t, shouldReport)
	require.Contains(t, diag.Message, "3 block(s) remain unstructured")
}

func TestBuild_StructuredReportsStatsOnlyWhenVerbose(t *testing.T) {
	zero, one := cfg.NewBasicBlock(0), cfg.NewBasicBlock(1)
	c := cfg.New()
	c.Root = zero
	c.Edges[zero] = cfg.Edges{one, nil}
	c.Edges[one] = cfg.Edges{nil, nil}

	built := cfs.Build(c)

	_, shouldReport := Build(token.NoPos, "F", built, false)
	require.False(t, shouldReport)

	diag, shouldReport := Build(token.NoPos, "F", built, true)
	require.True(t, shouldReport)
	require.Contains(t, diag.Message, "2 leaf block(s)")
}

func TestIrreducible_Message(t *testing.T) {
	diag := Irreducible(token.NoPos, "F", 5)
	require.Contains(t, diag.Message, "F")
	require.Contains(t, diag.Message, "5 block(s) remain unstructured")
}
