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

// Package config hosts the structuring engine's internal tuning parameters.
package config

// MaxReductionRounds bounds the driver's fixed-point loop (cfs.Build). Each round that
// makes progress strictly shrinks the graph, so a well-formed CFG with N nodes can never
// need more than N rounds; exceeding this limit means the CFG violates one of the
// invariants the engine assumes of its producer (a dangling edge, duplicate SCC
// membership), and the engine panics rather than loop forever on it. It is a var, not a
// const, so cmd/cfsdump's -max-rounds flag can override it per run.
var MaxReductionRounds = 1 << 20

// Debug, when true, makes the driver trace each reduction it applies (the round, the
// node, and the block it collapsed into) to stderr. Off by default; no command-line
// flag of cmd/cfsdump sets it.
var Debug = false
