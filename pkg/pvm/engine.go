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

import (
	"context"
	"fmt"

	"github.com/carverauto/pvm/pkg/logger"
	"github.com/carverauto/pvm/pkg/pvm/lending"
)

// Engine is the provenance virtual machine: it holds every live object and
// relation observed so far and turns each operation into zero or more
// Mutations on its output channel. An Engine is not safe for concurrent use;
// the ingest driver delivers events to it strictly serially.
type Engine struct {
	ids          IDSource
	nodes        *lending.Library[ID, *DataNode]
	uuidIndex    map[UUID]ID
	nameNodes    map[string]*NameNode
	rels         map[relKey]*Inf
	openSessions map[UUID]*openSession
	out          chan<- *Mutation
	log          logger.Logger
	metrics      *Metrics
}

// NewEngine returns an empty Engine that publishes every Mutation it
// produces to out. metrics may be nil.
func NewEngine(out chan<- *Mutation, log logger.Logger, metrics *Metrics) *Engine {
	return &Engine{
		nodes:        lending.New[ID, *DataNode](),
		uuidIndex:    make(map[UUID]ID),
		nameNodes:    make(map[string]*NameNode),
		rels:         make(map[relKey]*Inf),
		openSessions: make(map[UUID]*openSession),
		out:          out,
		log:          log,
		metrics:      metrics,
	}
}

func (e *Engine) emit(m *Mutation) {
	e.out <- m
}

// NextContext mints a fresh ID to serve as the versioning context for every
// engine call caused by one ingested event. Callers mint exactly one per
// event and pass it to every operation that event triggers.
func (e *Engine) NextContext() ID {
	return e.ids.Next()
}

// Metrics returns the engine's counters, for callers (the ingest driver)
// that need to record events outside the engine's own operations. May be
// nil if the engine was constructed without a meter.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

func (e *Engine) resolveID(objUUID UUID) (ID, error) {
	id, ok := e.uuidIndex[objUUID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownUUID, objUUID)
	}

	return id, nil
}

func (e *Engine) peekNode(id ID) (*DataNode, error) {
	n, ok := e.nodes.Peek(id)
	if !ok {
		return nil, fmt.Errorf("pvm: node %d missing from live set", id)
	}

	return n, nil
}

// sameType reports ConcreteType equality by name, matching the original
// type system's name-keyed identity rather than Go pointer identity.
func sameType(a, b *ConcreteType) bool {
	return a.Name == b.Name
}

// Declare introduces a node for objUUID if none is yet live, or validates
// that a live node's concrete type matches ty. It never replaces a live
// node, unlike Add.
func (e *Engine) Declare(ty *ConcreteType, pvmType PVMDataType, objUUID UUID, ctx ID, meta map[string]string) (ID, error) {
	if id, ok := e.uuidIndex[objUUID]; ok {
		n, err := e.peekNode(id)
		if err != nil {
			return 0, err
		}

		if !sameType(n.Type, ty) {
			return 0, fmt.Errorf("%w: %s is %s, declared as %s", ErrTypeMismatch, objUUID, n.Type.Name, ty.Name)
		}

		return id, nil
	}

	return e.createNode(ty, pvmType, objUUID, ctx, meta)
}

// Add introduces a node for objUUID if none is yet live, or re-declares an
// existing node of the same concrete type, merging new metadata into it. A
// type change on a live uuid is rejected with ErrTypeChanged.
func (e *Engine) Add(ty *ConcreteType, pvmType PVMDataType, objUUID UUID, ctx ID, meta map[string]string) (ID, error) {
	id, ok := e.uuidIndex[objUUID]
	if !ok {
		return e.createNode(ty, pvmType, objUUID, ctx, meta)
	}

	n, err := e.peekNode(id)
	if err != nil {
		return 0, err
	}

	if !sameType(n.Type, ty) {
		return 0, fmt.Errorf("%w: %s is %s, add requested %s", ErrTypeChanged, objUUID, n.Type.Name, ty.Name)
	}

	loan, err := e.nodes.Lend(id)
	if err != nil {
		return 0, err
	}

	node := loan.Value()
	changed := false

	for k, v := range meta {
		if node.Meta.Update(k, v, ctx, ty.Props[k]) {
			changed = true
		}
	}

	if err := loan.Return(); err != nil {
		return 0, err
	}

	if changed {
		e.emit(&Mutation{Kind: UpdateNode, Node: snapshotNode(node, e.curName(node.UUID))})
	}

	return id, nil
}

func (e *Engine) createNode(ty *ConcreteType, pvmType PVMDataType, objUUID UUID, ctx ID, meta map[string]string) (ID, error) {
	id := e.ids.Next()
	node := newDataNode(pvmType, ty, id, objUUID, ctx, FromMap(meta, ctx, ty))

	if err := e.nodes.Insert(id, node); err != nil {
		return 0, err
	}

	e.uuidIndex[objUUID] = id

	e.emit(&Mutation{Kind: CreateNode, Node: snapshotNode(node, nil)})
	e.metrics.incNodesCreated(context.Background())

	return id, nil
}

// Release drops the engine's tracking of objUUID; its already-emitted nodes
// and relations are unaffected, but the uuid may no longer be used as an
// operand of any other operation until re-declared. Releasing a uuid that
// has no live node is a no-op.
func (e *Engine) Release(objUUID UUID) error {
	id, ok := e.uuidIndex[objUUID]
	if !ok {
		return nil
	}

	if err := e.nodes.Remove(id); err != nil {
		return err
	}

	delete(e.uuidIndex, objUUID)

	return nil
}

// curName looks up the interned Name currently associated with a uuid, if
// any, for inclusion in node snapshots. Cheap linear scan: name fan-out per
// object is small in practice.
func (e *Engine) curName(objUUID UUID) *Name {
	id, ok := e.uuidIndex[objUUID]
	if !ok {
		return nil
	}

	for _, nn := range e.nameNodes {
		if rel, ok := e.rels[relKey{kind: RelName, src: id, dst: nn.ID, op: Unknown}]; ok && rel != nil {
			n := nn.Name
			return &n
		}
	}

	return nil
}

func (e *Engine) internName(name Name) *NameNode {
	key := name.key()

	if nn, ok := e.nameNodes[key]; ok {
		return nn
	}

	nn := &NameNode{ID: e.ids.Next(), Name: name}
	e.nameNodes[key] = nn
	e.emit(&Mutation{Kind: CreateNode, Node: snapshotNameNode(nn)})

	return nn
}

// Name records that objUUID is reachable under name, interning the NameNode
// on first use.
func (e *Engine) Name(objUUID UUID, name Name, _ ID, call string) error {
	id, err := e.resolveID(objUUID)
	if err != nil {
		return err
	}

	nn := e.internName(name)

	e.createRelIfAbsent(RelName, id, nn.ID, Unknown, call, 0)

	return nil
}

// Unname records that objUUID is no longer reachable under name, emitting
// the symmetric reversed-direction edge rather than retracting the forward
// one: the wire protocol has no delete record, so "no longer named" is
// represented as a NameNode-to-object edge coexisting with the original
// object-to-NameNode edge.
func (e *Engine) Unname(objUUID UUID, name Name, _ ID, call string) error {
	id, err := e.resolveID(objUUID)
	if err != nil {
		return err
	}

	nn, ok := e.nameNodes[name.key()]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownName, name)
	}

	e.createRelIfAbsent(RelName, nn.ID, id, Unknown, call, 0)

	return nil
}

// Meta records a property observation on objUUID. A no-op if value equals
// the property's current value.
func (e *Engine) Meta(objUUID UUID, key, value string, ctx ID) error {
	id, err := e.resolveID(objUUID)
	if err != nil {
		return err
	}

	loan, err := e.nodes.Lend(id)
	if err != nil {
		return err
	}

	node := loan.Value()
	changed := node.Meta.Update(key, value, ctx, node.Type.Props[key])

	if err := loan.Return(); err != nil {
		return err
	}

	if changed {
		e.emit(&Mutation{Kind: UpdateNode, Node: snapshotNode(node, e.curName(objUUID))})
	}

	return nil
}

// MetaSnapshot returns a heritable-only, point-in-time copy of objUUID's
// current metadata, for seeding a node created by forking objUUID.
func (e *Engine) MetaSnapshot(objUUID UUID, ctx ID) (*MetaStore, error) {
	id, err := e.resolveID(objUUID)
	if err != nil {
		return nil, err
	}

	node, err := e.peekNode(id)
	if err != nil {
		return nil, err
	}

	return node.Meta.Snapshot(ctx), nil
}

// MergeMeta replays snap into objUUID's live MetaStore, emitting an
// UpdateNode mutation if any value changed.
func (e *Engine) MergeMeta(objUUID UUID, snap *MetaStore) error {
	id, err := e.resolveID(objUUID)
	if err != nil {
		return err
	}

	loan, err := e.nodes.Lend(id)
	if err != nil {
		return err
	}

	node := loan.Value()
	changed := node.Meta.Merge(snap)

	if err := loan.Return(); err != nil {
		return err
	}

	if changed {
		e.emit(&Mutation{Kind: UpdateNode, Node: snapshotNode(node, e.curName(objUUID))})
	}

	return nil
}

func (e *Engine) createRelIfAbsent(kind RelKind, src, dst ID, op InfOp, call string, n uint64) *Inf {
	key := relKey{kind: kind, src: src, dst: dst, op: op}

	if rel, ok := e.rels[key]; ok {
		e.metrics.incRelsDeduplicated(context.Background())
		return rel
	}

	rel := &Inf{ID: e.ids.Next(), Src: src, Dst: dst, Op: op, GeneratingCall: call, ByteCount: n}
	e.rels[key] = rel

	e.emit(&Mutation{Kind: CreateRel, Rel: &RelSnapshot{
		ID: rel.ID, Src: src, Dst: dst, Kind: kind, Op: op, GeneratingCall: call, ByteCount: n,
	}})
	e.metrics.incRelsCreated(context.Background())

	return rel
}

// Source records that subjectUUID (an actor) reads information out of
// objectUUID.
func (e *Engine) Source(subjectUUID, objectUUID UUID, call string) error {
	subject, err := e.resolveID(subjectUUID)
	if err != nil {
		return err
	}

	object, err := e.resolveID(objectUUID)
	if err != nil {
		return err
	}

	e.createRelIfAbsent(RelInf, object, subject, Source, call, 0)

	return nil
}

// SourceNBytes is Source with an accumulating byte count: repeated calls on
// the same (subject, object) pair add to a single relation's ByteCount
// rather than creating a new relation each time.
func (e *Engine) SourceNBytes(subjectUUID, objectUUID UUID, call string, n uint64) error {
	subject, err := e.resolveID(subjectUUID)
	if err != nil {
		return err
	}

	object, err := e.resolveID(objectUUID)
	if err != nil {
		return err
	}

	e.accumulateRel(RelInf, object, subject, Source, call, n)

	return nil
}

func (e *Engine) accumulateRel(kind RelKind, src, dst ID, op InfOp, call string, n uint64) {
	key := relKey{kind: kind, src: src, dst: dst, op: op}

	rel, ok := e.rels[key]
	if !ok {
		e.createRelIfAbsent(kind, src, dst, op, call, n)
		return
	}

	rel.ByteCount += n

	e.emit(&Mutation{Kind: UpdateRel, Rel: &RelSnapshot{
		ID: rel.ID, Src: src, Dst: dst, Kind: kind, Op: op, GeneratingCall: call, ByteCount: rel.ByteCount,
	}})
}

// transition replaces a live node with a fresh node of the same uuid and
// concrete type but a new PVMDataType and version ID, carrying every
// current property forward and recording a Version edge from the prior
// version to the new one. Used for Store version bumps and for Store <->
// EditSession transitions around SinkStart/SinkEnd.
func (e *Engine) transition(prior *DataNode, newPVMType PVMDataType, ctx ID) (*DataNode, error) {
	next := newDataNode(newPVMType, prior.Type, e.ids.Next(), prior.UUID, ctx, prior.Meta.Clone(ctx))

	if err := e.nodes.Remove(prior.ID); err != nil {
		return nil, err
	}

	if err := e.nodes.Insert(next.ID, next); err != nil {
		return nil, err
	}

	e.uuidIndex[prior.UUID] = next.ID

	e.emit(&Mutation{Kind: CreateNode, Node: snapshotNode(next, e.curName(prior.UUID))})
	e.metrics.incNodesCreated(context.Background())

	e.createRelIfAbsent(RelInf, prior.ID, next.ID, Version, "", 0)

	return next, nil
}

// Sink records that subjectUUID (an actor) writes information into
// objectUUID. If objectUUID is currently a Store, writing bumps it to a new
// version before the Sink edge is recorded against that version.
func (e *Engine) Sink(subjectUUID, objectUUID UUID, ctx ID, call string) error {
	subject, err := e.resolveID(subjectUUID)
	if err != nil {
		return err
	}

	objectID, err := e.resolveID(objectUUID)
	if err != nil {
		return err
	}

	object, err := e.peekNode(objectID)
	if err != nil {
		return err
	}

	if object.PVMType == Store {
		object, err = e.transition(object, Store, ctx)
		if err != nil {
			return err
		}
	}

	e.createRelIfAbsent(RelInf, subject, object.ID, Sink, call, 0)

	return nil
}

// openSession is the EditSession open set for one object: the session's
// current node ID plus the actors that currently hold it open. The Store
// version is restored only once this set empties, so that one actor's
// SinkEnd cannot finalize a session another actor is still writing through.
type openSession struct {
	id     ID
	actors map[UUID]struct{}
}

// sinkStartCore resolves or opens the EditSession for objectUUID, recording
// subjectUUID in its open set, and returns the subject's and the session's
// IDs. A second SinkStart while one is already open reuses the session
// rather than opening a nested one. An object that is not a Store opens no
// session: its own ID is returned in place of a session ID.
func (e *Engine) sinkStartCore(subjectUUID, objectUUID UUID, ctx ID) (subject, session ID, err error) {
	subject, err = e.resolveID(subjectUUID)
	if err != nil {
		return 0, 0, err
	}

	if sess, open := e.openSessions[objectUUID]; open {
		sess.actors[subjectUUID] = struct{}{}
		return subject, sess.id, nil
	}

	objectID, err := e.resolveID(objectUUID)
	if err != nil {
		return 0, 0, err
	}

	object, err := e.peekNode(objectID)
	if err != nil {
		return 0, 0, err
	}

	if object.PVMType != Store {
		return subject, object.ID, nil
	}

	sessionNode, err := e.transition(object, EditSession, ctx)
	if err != nil {
		return 0, 0, err
	}

	e.openSessions[objectUUID] = &openSession{
		id:     sessionNode.ID,
		actors: map[UUID]struct{}{subjectUUID: {}},
	}

	return subject, sessionNode.ID, nil
}

// SinkStart opens objectUUID as a writable EditSession, superseding its
// current Store version until the matching SinkEnd. For an object that is
// not a Store it emits a plain Sink edge to the object.
func (e *Engine) SinkStart(subjectUUID, objectUUID UUID, ctx ID, call string) error {
	subject, session, err := e.sinkStartCore(subjectUUID, objectUUID, ctx)
	if err != nil {
		return err
	}

	e.createRelIfAbsent(RelInf, subject, session, Sink, call, 0)

	return nil
}

// SinkStartNBytes is SinkStart with an accumulating byte count on the
// actor-to-session Sink edge, for write syscalls that report a length.
func (e *Engine) SinkStartNBytes(subjectUUID, objectUUID UUID, ctx ID, call string, n uint64) error {
	subject, session, err := e.sinkStartCore(subjectUUID, objectUUID, ctx)
	if err != nil {
		return err
	}

	e.accumulateRel(RelInf, subject, session, Sink, call, n)

	return nil
}

// SinkEnd removes subjectUUID from the EditSession open set on objectUUID.
// The session demotes back to a new Store version only once every actor
// that opened it has called SinkEnd; until then the session stays open for
// the remaining actors.
func (e *Engine) SinkEnd(subjectUUID, objectUUID UUID, ctx ID) error {
	sess, ok := e.openSessions[objectUUID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoOpenSession, objectUUID)
	}

	delete(sess.actors, subjectUUID)

	if len(sess.actors) > 0 {
		return nil
	}

	session, err := e.peekNode(sess.id)
	if err != nil {
		return err
	}

	if _, err := e.transition(session, Store, ctx); err != nil {
		return err
	}

	delete(e.openSessions, objectUUID)

	return nil
}

// Connect records a bidirectional channel relationship between two
// conduits, e.g. the two ends of a socketpair or pipe: one Connect edge in
// each direction, each deduped independently.
func (e *Engine) Connect(aUUID, bUUID UUID, call string) error {
	a, err := e.resolveID(aUUID)
	if err != nil {
		return err
	}

	b, err := e.resolveID(bUUID)
	if err != nil {
		return err
	}

	e.createRelIfAbsent(RelInf, a, b, Connect, call, 0)
	e.createRelIfAbsent(RelInf, b, a, Connect, call, 0)

	return nil
}
