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

// DataNode is a live object in the provenance graph: a process, file,
// socket, pipe, ptty, or edit session.
type DataNode struct {
	ID      ID
	UUID    UUID
	Type    *ConcreteType
	PVMType PVMDataType
	Ctx     ID
	Meta    *MetaStore
}

// newDataNode validates pvm_type/ConcreteType compatibility before
// constructing the node, mirroring the panic-on-mismatch invariant of the
// original engine.
func newDataNode(pvmType PVMDataType, ty *ConcreteType, id ID, objUUID UUID, ctx ID, meta *MetaStore) *DataNode {
	if !pvmType.CompatibleConcrete(ty) {
		panic(fmt.Sprintf("pvm: %s cannot be a %s", ty.Name, pvmType))
	}

	if meta == nil {
		meta = NewMetaStore()
	}

	return &DataNode{ID: id, UUID: objUUID, Type: ty, PVMType: pvmType, Ctx: ctx, Meta: meta}
}

// Name is either a filesystem path or a network endpoint.
type Name struct {
	Path string
	Net  string
	Port uint16
	isNet bool
}

// PathName constructs a filesystem-path Name.
func PathName(path string) Name { return Name{Path: path} }

// NetName constructs a network-endpoint Name.
func NetName(addr string, port uint16) Name { return Name{Net: addr, Port: port, isNet: true} }

// IsNet reports whether this Name is a network endpoint rather than a path.
func (n Name) IsNet() bool { return n.isNet }

// key is the interning key: distinct names intern to distinct NameNodes,
// shared across every DataNode that refers to them.
func (n Name) key() string {
	if n.isNet {
		return fmt.Sprintf("net:%s:%d", n.Net, n.Port)
	}

	return "path:" + n.Path
}

// NameNode is an interned name, persisting for the lifetime of the engine
// once created.
type NameNode struct {
	ID   ID
	Name Name
}
