/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pvm

import "fmt"

// InfOp discriminates the kind of information-flow relation.
type InfOp int

const (
	// Source indicates information flowing into an actor from an entity.
	Source InfOp = iota
	// Sink indicates information flowing from an actor into an entity.
	Sink
	// Connect indicates a bidirectional-capable channel relationship.
	Connect
	// Version indicates a Store's supersession by a later version.
	Version
	// Unknown is used for relations whose op class could not be determined.
	Unknown
)

//nolint:gochecknoglobals // fixed display table
var infOpNames = [...]string{"Source", "Sink", "Connect", "Version", "Unknown"}

func (o InfOp) String() string {
	if int(o) < 0 || int(o) >= len(infOpNames) {
		return "Unknown"
	}

	return infOpNames[o]
}

// RelKind discriminates the two kinds of relation the engine emits.
type RelKind int

const (
	// RelInf is an information-flow relation.
	RelInf RelKind = iota
	// RelName is a Name-Of relation between a DataNode and a NameNode.
	RelName
)

// Inf is an information-flow relation between two node IDs.
type Inf struct {
	ID             ID
	Src            ID
	Dst            ID
	Op             InfOp
	GeneratingCall string
	ByteCount      uint64
}

// relKey identifies a relation for deduplication purposes: at most one
// relation with a given (kind, src, dst, op-class) may exist over the
// lifetime of both endpoints.
type relKey struct {
	kind RelKind
	src  ID
	dst  ID
	op   InfOp
}

func (k relKey) String() string {
	return fmt.Sprintf("%d:%d->%d:%d", k.kind, k.src, k.dst, k.op)
}
