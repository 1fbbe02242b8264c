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

// Package block implements the structure-block model: the tagged tree of basic and
// nested blocks the structuring engine reduces a CFG into.
package block

import (
	"fmt"
	"strings"

	"github.com/unbinary/cfs/cfg"
)

// Kind tags the variant of a StructureBlock.
type Kind int

// The seven kinds a StructureBlock can be. Basic is the only leaf kind; the rest are
// Nested kinds produced by the reducers in package reduce (the loop reducer produces
// both While and DoWhile).
const (
	Basic Kind = iota
	Sequence
	SelfLooping
	IfThen
	IfThenElse
	While
	DoWhile
)

func (k Kind) String() string {
	switch k {
	case Basic:
		return "Basic"
	case Sequence:
		return "Sequence"
	case SelfLooping:
		return "SelfLooping"
	case IfThen:
		return "IfThen"
	case IfThenElse:
		return "IfThenElse"
	case While:
		return "While"
	case DoWhile:
		return "DoWhile"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// StructureBlock is either a Leaf wrapping a single CFG basic block, or a Nested
// composite of other StructureBlocks. It is a sealed interface (the unexported
// isStructureBlock marker restricts implementations to this package).
//
// StructureBlocks are immutable once constructed and compared by Go's native interface
// equality (dynamic type + pointer): this engine never constructs two *distinct*
// Leaf/Nested values for what is logically the same block, so pointer identity already
// implements the structural value-equality the engine requires.
type StructureBlock interface {
	fmt.Stringer
	isStructureBlock()

	// Kind reports the block's variant.
	Kind() Kind
	// Depth is 0 for a Leaf, 1+max(child Depth) for a Nested.
	Depth() int
	// Children returns a Nested block's content, or nil for a Leaf.
	Children() []StructureBlock
	// Size is the number of Leaf descendants (including itself if it is a Leaf).
	Size() int
}

// Leaf wraps a single CFG basic block.
type Leaf struct {
	Node *cfg.BasicBlock
}

func (*Leaf) isStructureBlock()          {}
func (*Leaf) Kind() Kind                 { return Basic }
func (*Leaf) Depth() int                 { return 0 }
func (*Leaf) Children() []StructureBlock { return nil }
func (*Leaf) Size() int                  { return 1 }
func (l *Leaf) String() string           { return l.Node.String() }

// Nested is a composite StructureBlock: a sequence, conditional, or loop built from
// content absorbed by one of the five reducers in package reduce.
type Nested struct {
	kind    Kind
	content []StructureBlock
	depth   int
	size    int
}

// NewNested builds a Nested block of the given kind over content, computing depth and
// size from the content (1+max(child depth); sum of child sizes).
func NewNested(kind Kind, content []StructureBlock) *Nested {
	depth := 0
	size := 0
	for _, c := range content {
		if c.Depth() > depth {
			depth = c.Depth()
		}
		size += c.Size()
	}
	return &Nested{kind: kind, content: content, depth: depth + 1, size: size}
}

func (*Nested) isStructureBlock()            {}
func (n *Nested) Kind() Kind                 { return n.kind }
func (n *Nested) Depth() int                 { return n.depth }
func (n *Nested) Children() []StructureBlock { return n.content }
func (n *Nested) Size() int                  { return n.size }

func (n *Nested) String() string {
	parts := make([]string, len(n.content))
	for i, c := range n.content {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s(%s)", n.kind, strings.Join(parts, ", "))
}

// flatten returns b's content if b is itself a Sequence, or a singleton slice of b
// otherwise. It is the building block of FlattenSequence.
func flatten(b StructureBlock) []StructureBlock {
	if b.Kind() == Sequence {
		return b.Children()
	}
	return []StructureBlock{b}
}

// FlattenSequence concatenates a and b into a single Sequence, splicing in place the
// content of either side that is already a Sequence rather than nesting a Sequence
// inside a Sequence. This is the reduce-sequence reducer's core helper.
func FlattenSequence(a, b StructureBlock) *Nested {
	left, right := flatten(a), flatten(b)
	content := make([]StructureBlock, 0, len(left)+len(right))
	content = append(content, left...)
	content = append(content, right...)
	return NewNested(Sequence, content)
}
