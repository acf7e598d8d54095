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

// MutationKind discriminates the tagged union broadcast to view consumers.
type MutationKind int

const (
	// CreateNode carries a node's full initial state.
	CreateNode MutationKind = iota
	// UpdateNode carries a node's full post-update state.
	UpdateNode
	// CreateRel carries a newly created relation.
	CreateRel
	// UpdateRel carries a relation's updated byte count.
	UpdateRel
)

// NodeSnapshot is the full, self-contained state of a node at the moment of
// a CreateNode or UpdateNode mutation.
type NodeSnapshot struct {
	ID      ID
	UUID    UUID
	Type    string
	PVMType PVMDataType
	Name    *Name
	Meta    []MetaRecord
}

// RelSnapshot is the full, self-contained state of a relation at the moment
// of a CreateRel or UpdateRel mutation.
type RelSnapshot struct {
	ID             ID
	Src            ID
	Dst            ID
	Kind           RelKind
	Op             InfOp
	GeneratingCall string
	ByteCount      uint64
}

// Mutation is one record in the stream the PVM emits, in the exact order the
// engine observed the causing operation.
type Mutation struct {
	Kind MutationKind
	Node *NodeSnapshot
	Rel  *RelSnapshot
}

func snapshotNode(n *DataNode, name *Name) *NodeSnapshot {
	return &NodeSnapshot{
		ID:      n.ID,
		UUID:    n.UUID,
		Type:    n.Type.Name,
		PVMType: n.PVMType,
		Name:    name,
		Meta:    n.Meta.IterLatest(),
	}
}

func snapshotNameNode(n *NameNode) *NodeSnapshot {
	return &NodeSnapshot{
		ID:   n.ID,
		UUID: NameUUID(NamespaceNames, n.Name.key()),
		Type: "name",
		Name: &n.Name,
	}
}
