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

// Package pvm implements the Provenance Virtual Machine: an in-memory object
// cache and event-driven engine that turns audit records into a typed,
// directed multigraph of information-flow relations.
package pvm

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// ID is a process-local, monotonically assigned identifier. It labels every
// node and every relation the engine emits, and is never reused within a run.
type ID uint64

// IDSource mints fresh IDs. A single atomic counter is sufficient even if
// minting is later parallelized; relative ordering of ID assignment is not
// observable.
type IDSource struct {
	counter atomic.Uint64
}

// Next returns a fresh ID, starting at 1 (0 is reserved as the zero value /
// "no ID").
func (s *IDSource) Next() ID {
	return ID(s.counter.Add(1))
}

// UUID is the externally supplied, 128-bit opaque identity for a data
// object, formatted as lowercase 8-4-4-4-12 hyphenated hex.
type UUID struct {
	inner uuid.UUID
}

// ParseUUID parses the lowercase 8-4-4-4-12 hyphenated hex form from the wire schema.
func ParseUUID(s string) (UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, err
	}

	return UUID{inner: u}, nil
}

// NameUUID deterministically derives a UUID for an interned value that has
// no externally supplied identity of its own (e.g. a Name node), so the same
// name always resolves to the same synthetic UUID within a run.
func NameUUID(namespace UUID, data string) UUID {
	return UUID{inner: uuid.NewSHA1(namespace.inner, []byte(data))}
}

// NamespaceNames is the fixed namespace used to derive synthetic UUIDs for
// interned Name nodes.
var NamespaceNames = UUID{inner: uuid.MustParse("6e616d65-0000-0000-0000-000000000000")}

// String renders the canonical lowercase 8-4-4-4-12 form.
func (u UUID) String() string {
	return u.inner.String()
}

// PVMDataType is the closed set of base object classes.
type PVMDataType int

const (
	// Actor is an active subject (e.g. a process).
	Actor PVMDataType = iota
	// Store is a passive, mutable, versioned object (e.g. a file).
	Store
	// Conduit is a communication channel (e.g. a socket, pipe, or ptty).
	Conduit
	// EditSession is a transient writable view of a Store.
	EditSession
	// StoreCont is a container compatible with any Store-typed concrete type.
	StoreCont
)

//nolint:gochecknoglobals // fixed display table, not mutable state
var pvmDataTypeNames = [...]string{"Actor", "Store", "Conduit", "EditSession", "StoreCont"}

func (t PVMDataType) String() string {
	if int(t) < 0 || int(t) >= len(pvmDataTypeNames) {
		return "Unknown"
	}

	return pvmDataTypeNames[t]
}

// CompatibleConcrete reports whether a node of this PVMDataType may carry
// the given ConcreteType. EditSession and StoreCont are compatible with any
// ConcreteType whose own PVM type is Store.
func (t PVMDataType) CompatibleConcrete(ty *ConcreteType) bool {
	if ty.PVMType == t {
		return true
	}

	return (t == EditSession || t == StoreCont) && ty.PVMType == Store
}

// ConcreteType is a static descriptor: a unique name, the PVMDataType it
// pins to, and a map of property name to heritability. Equality and hashing
// are by name alone.
type ConcreteType struct {
	Name    string
	PVMType PVMDataType
	Props   map[string]bool
}

// ContextType describes the shape of event metadata attached to a context node.
type ContextType struct {
	Name  string
	Props []string
}

//nolint:gochecknoglobals // static descriptor table, grounded on cadets.rs
var (
	// TypeProcess is the Actor concrete type for processes.
	TypeProcess = &ConcreteType{
		Name:    "process",
		PVMType: Actor,
		Props: map[string]bool{
			"euid":       true,
			"ruid":       true,
			"suid":       true,
			"egid":       true,
			"rgid":       true,
			"sgid":       true,
			"cmdline":    true,
			"login_name": true,
			"pid":        false,
		},
	}

	// TypeFile is the Store concrete type for files.
	TypeFile = &ConcreteType{
		Name:    "file",
		PVMType: Store,
		Props: map[string]bool{
			"owner_uid": true,
			"owner_gid": true,
			"mode":      true,
		},
	}

	// TypeSocket is the Conduit concrete type for sockets.
	TypeSocket = &ConcreteType{
		Name:    "socket",
		PVMType: Conduit,
		Props:   map[string]bool{},
	}

	// TypePipe is the Conduit concrete type for pipes.
	TypePipe = &ConcreteType{
		Name:    "pipe",
		PVMType: Conduit,
		Props:   map[string]bool{},
	}

	// TypePtty is the Conduit concrete type for pseudoterminals.
	TypePtty = &ConcreteType{
		Name:    "ptty",
		PVMType: Conduit,
		Props: map[string]bool{
			"owner_uid": true,
			"owner_gid": true,
			"mode":      true,
		},
	}

	// TypeEditSession is the transient writable-view concrete type.
	TypeEditSession = &ConcreteType{
		Name:    "editsession",
		PVMType: EditSession,
		Props:   map[string]bool{},
	}
)
