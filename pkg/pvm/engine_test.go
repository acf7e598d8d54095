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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/pvm/pkg/logger"
)

func newTestEngine(t *testing.T) (*Engine, chan *Mutation) {
	t.Helper()

	out := make(chan *Mutation, 256)
	eng := NewEngine(out, logger.NewTestLogger(), nil)

	return eng, out
}

func testUUID(t *testing.T, s string) UUID {
	t.Helper()

	u, err := ParseUUID(s)
	require.NoError(t, err)

	return u
}

func drain(out chan *Mutation) []*Mutation {
	var ms []*Mutation

	for {
		select {
		case m := <-out:
			ms = append(ms, m)
		default:
			return ms
		}
	}
}

func TestDeclareCreatesNodeAndEmitsCreateNode(t *testing.T) {
	eng, out := newTestEngine(t)
	procUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")

	id, err := eng.Declare(TypeProcess, Actor, procUUID, 1, map[string]string{"pid": "100"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	muts := drain(out)
	require.Len(t, muts, 1)
	assert.Equal(t, CreateNode, muts[0].Kind)
	assert.Equal(t, id, muts[0].Node.ID)
}

func TestDeclareExistingSameTypeReturnsSameID(t *testing.T) {
	eng, out := newTestEngine(t)
	procUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")

	first, err := eng.Declare(TypeProcess, Actor, procUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	second, err := eng.Declare(TypeProcess, Actor, procUUID, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Empty(t, drain(out))
}

func TestDeclareTypeMismatchFails(t *testing.T) {
	eng, out := newTestEngine(t)
	objUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")

	_, err := eng.Declare(TypeProcess, Actor, objUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	_, err = eng.Declare(TypeFile, Store, objUUID, 2, nil)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestAddTypeChangeFails(t *testing.T) {
	eng, out := newTestEngine(t)
	objUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")

	_, err := eng.Add(TypeFile, Store, objUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	_, err = eng.Add(TypeSocket, Conduit, objUUID, 2, nil)
	assert.ErrorIs(t, err, ErrTypeChanged)
}

func TestAddMergesMetaAndEmitsUpdateOnChange(t *testing.T) {
	eng, out := newTestEngine(t)
	fileUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")

	id, err := eng.Add(TypeFile, Store, fileUUID, 1, map[string]string{"mode": "0644"})
	require.NoError(t, err)
	drain(out)

	sameID, err := eng.Add(TypeFile, Store, fileUUID, 2, map[string]string{"mode": "0644"})
	require.NoError(t, err)
	assert.Equal(t, id, sameID)
	assert.Empty(t, drain(out), "re-adding an unchanged value must not emit an update")

	_, err = eng.Add(TypeFile, Store, fileUUID, 3, map[string]string{"mode": "0600"})
	require.NoError(t, err)
	muts := drain(out)
	require.Len(t, muts, 1)
	assert.Equal(t, UpdateNode, muts[0].Kind)
}

func TestNameAndUnnameEmitSymmetricEdges(t *testing.T) {
	eng, out := newTestEngine(t)
	fileUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")

	id, err := eng.Declare(TypeFile, Store, fileUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	name := PathName("/etc/passwd")

	require.NoError(t, eng.Name(fileUUID, name, 2, "execve"))
	muts := drain(out)
	require.Len(t, muts, 2, "expect NameNode creation plus the forward edge")
	assert.Equal(t, CreateNode, muts[0].Kind)
	assert.Equal(t, CreateRel, muts[1].Kind)
	assert.Equal(t, id, muts[1].Rel.Src)

	forwardKey := relKey{kind: RelName, src: id, dst: muts[0].Node.ID, op: Unknown}
	_, ok := eng.rels[forwardKey]
	require.True(t, ok)

	require.NoError(t, eng.Unname(fileUUID, name, 3, "unlink"))
	muts = drain(out)
	require.Len(t, muts, 1)
	assert.Equal(t, CreateRel, muts[0].Kind)
	assert.Equal(t, muts[0].Rel.Src, forwardKey.dst)
	assert.Equal(t, muts[0].Rel.Dst, id)

	require.NoError(t, eng.Name(fileUUID, name, 4, "execve"), "re-naming after unname must reuse the interned NameNode")
	assert.Empty(t, drain(out), "the forward edge already exists, so re-naming must dedup")
}

func TestUnnameOfUnknownNameFails(t *testing.T) {
	eng, out := newTestEngine(t)
	fileUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")

	_, err := eng.Declare(TypeFile, Store, fileUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	err = eng.Unname(fileUUID, PathName("/never/named"), 2, "unlink")
	assert.ErrorIs(t, err, ErrUnknownName)
}

func TestSourceDedupesRepeatedEdges(t *testing.T) {
	eng, out := newTestEngine(t)
	procUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")
	fileUUID := testUUID(t, "22222222-2222-2222-2222-222222222222")

	_, err := eng.Declare(TypeProcess, Actor, procUUID, 1, nil)
	require.NoError(t, err)
	_, err = eng.Declare(TypeFile, Store, fileUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	require.NoError(t, eng.Source(procUUID, fileUUID, "read"))
	muts := drain(out)
	require.Len(t, muts, 1)
	assert.Equal(t, CreateRel, muts[0].Kind)

	require.NoError(t, eng.Source(procUUID, fileUUID, "read"))
	assert.Empty(t, drain(out), "a second identical source must dedup, not create a second edge")
}

func TestSourceNBytesAccumulatesOnExistingEdge(t *testing.T) {
	eng, out := newTestEngine(t)
	procUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")
	fileUUID := testUUID(t, "22222222-2222-2222-2222-222222222222")

	_, err := eng.Declare(TypeProcess, Actor, procUUID, 1, nil)
	require.NoError(t, err)
	_, err = eng.Declare(TypeFile, Store, fileUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	require.NoError(t, eng.SourceNBytes(procUUID, fileUUID, "read", 128))
	muts := drain(out)
	require.Len(t, muts, 1)
	assert.Equal(t, CreateRel, muts[0].Kind)
	assert.EqualValues(t, 128, muts[0].Rel.ByteCount)

	require.NoError(t, eng.SourceNBytes(procUUID, fileUUID, "read", 64))
	muts = drain(out)
	require.Len(t, muts, 1)
	assert.Equal(t, UpdateRel, muts[0].Kind)
	assert.EqualValues(t, 192, muts[0].Rel.ByteCount)
}

func TestSinkOnStoreBumpsVersion(t *testing.T) {
	eng, out := newTestEngine(t)
	procUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")
	fileUUID := testUUID(t, "22222222-2222-2222-2222-222222222222")

	_, err := eng.Declare(TypeProcess, Actor, procUUID, 1, nil)
	require.NoError(t, err)
	fileID, err := eng.Declare(TypeFile, Store, fileUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	require.NoError(t, eng.Sink(procUUID, fileUUID, 2, "write"))
	muts := drain(out)
	require.Len(t, muts, 3, "expect new version CreateNode, Version CreateRel, Sink CreateRel")
	assert.Equal(t, CreateNode, muts[0].Kind)
	newVersionID := muts[0].Node.ID
	assert.NotEqual(t, fileID, newVersionID)
	assert.Equal(t, CreateRel, muts[1].Kind)
	assert.Equal(t, Version, muts[1].Rel.Op)
	assert.Equal(t, fileID, muts[1].Rel.Src)
	assert.Equal(t, newVersionID, muts[1].Rel.Dst)
	assert.Equal(t, CreateRel, muts[2].Kind)
	assert.Equal(t, Sink, muts[2].Rel.Op)

	newID, err := eng.resolveID(fileUUID)
	require.NoError(t, err)
	assert.Equal(t, newVersionID, newID)
}

func TestSinkStartSinkEndRoundTrip(t *testing.T) {
	eng, out := newTestEngine(t)
	procUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")
	fileUUID := testUUID(t, "22222222-2222-2222-2222-222222222222")

	_, err := eng.Declare(TypeProcess, Actor, procUUID, 1, nil)
	require.NoError(t, err)
	fileID, err := eng.Declare(TypeFile, Store, fileUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	require.NoError(t, eng.SinkStart(procUUID, fileUUID, 2, "open"))
	muts := drain(out)
	require.Len(t, muts, 3)
	sessionID := muts[0].Node.ID
	assert.Equal(t, EditSession, muts[0].Node.PVMType)

	sessionNode, err := eng.peekNode(sessionID)
	require.NoError(t, err)
	assert.Equal(t, EditSession, sessionNode.PVMType)

	require.NoError(t, eng.SinkEnd(procUUID, fileUUID, 3))
	muts = drain(out)
	require.Len(t, muts, 2, "expect closed-version CreateNode and its Version edge")
	assert.Equal(t, Store, muts[0].Node.PVMType)
	assert.NotEqual(t, fileID, muts[0].Node.ID)
	assert.NotEqual(t, sessionID, muts[0].Node.ID)

	_, open := eng.openSessions[fileUUID]
	assert.False(t, open)
}

func TestSinkEndWithoutSinkStartFails(t *testing.T) {
	eng, _ := newTestEngine(t)
	procUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")
	fileUUID := testUUID(t, "22222222-2222-2222-2222-222222222222")

	err := eng.SinkEnd(procUUID, fileUUID, 1)
	assert.ErrorIs(t, err, ErrNoOpenSession)
}

// TestSinkEndStaysOpenUntilEveryActorCloses covers the case a single-opener
// open set can't: two actors holding the same EditSession, one SinkEnd from
// each. The Store version must not reappear until the second SinkEnd.
func TestSinkEndStaysOpenUntilEveryActorCloses(t *testing.T) {
	eng, out := newTestEngine(t)
	proc1UUID := testUUID(t, "11111111-1111-1111-1111-111111111111")
	proc2UUID := testUUID(t, "33333333-3333-3333-3333-333333333333")
	fileUUID := testUUID(t, "22222222-2222-2222-2222-222222222222")

	_, err := eng.Declare(TypeProcess, Actor, proc1UUID, 1, nil)
	require.NoError(t, err)
	_, err = eng.Declare(TypeProcess, Actor, proc2UUID, 1, nil)
	require.NoError(t, err)
	_, err = eng.Declare(TypeFile, Store, fileUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	require.NoError(t, eng.SinkStart(proc1UUID, fileUUID, 2, "open"))
	muts := drain(out)
	sessionID := muts[0].Node.ID

	require.NoError(t, eng.SinkStart(proc2UUID, fileUUID, 2, "open"))
	muts = drain(out)
	require.Len(t, muts, 1, "second SinkStart on an already-open session only records a Sink edge")
	assert.Equal(t, Sink, muts[0].Rel.Op)

	require.NoError(t, eng.SinkEnd(proc1UUID, fileUUID, 3))
	assert.Empty(t, drain(out), "session stays open while proc2 still holds it")

	sessionNode, err := eng.peekNode(sessionID)
	require.NoError(t, err)
	assert.Equal(t, EditSession, sessionNode.PVMType)

	require.NoError(t, eng.SinkEnd(proc2UUID, fileUUID, 4))
	muts = drain(out)
	require.Len(t, muts, 2, "last closer demotes the session back to a Store version")
	assert.Equal(t, Store, muts[0].Node.PVMType)

	_, open := eng.openSessions[fileUUID]
	assert.False(t, open)
}

func TestConnectCreatesEdgeAndDedups(t *testing.T) {
	eng, out := newTestEngine(t)
	aUUID := testUUID(t, "33333333-3333-3333-3333-333333333333")
	bUUID := testUUID(t, "44444444-4444-4444-4444-444444444444")

	_, err := eng.Declare(TypeSocket, Conduit, aUUID, 1, nil)
	require.NoError(t, err)
	_, err = eng.Declare(TypeSocket, Conduit, bUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	require.NoError(t, eng.Connect(aUUID, bUUID, "socketpair"))
	muts := drain(out)
	require.Len(t, muts, 2, "connect is bidirectional: one edge each way")
	assert.Equal(t, Connect, muts[0].Rel.Op)
	assert.Equal(t, Connect, muts[1].Rel.Op)

	require.NoError(t, eng.Connect(aUUID, bUUID, "socketpair"))
	assert.Empty(t, drain(out), "both directions already exist, so a repeat connect must dedup")
}

func TestReleaseThenOperationFailsWithUnknownUUID(t *testing.T) {
	eng, out := newTestEngine(t)
	procUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")

	_, err := eng.Declare(TypeProcess, Actor, procUUID, 1, nil)
	require.NoError(t, err)
	drain(out)

	require.NoError(t, eng.Release(procUUID))

	err = eng.Meta(procUUID, "cmdline", "/bin/ls", 2)
	assert.ErrorIs(t, err, ErrUnknownUUID)
}

func TestMetaNoOpOnUnchangedValue(t *testing.T) {
	eng, out := newTestEngine(t)
	procUUID := testUUID(t, "11111111-1111-1111-1111-111111111111")

	_, err := eng.Declare(TypeProcess, Actor, procUUID, 1, map[string]string{"cmdline": "/bin/ls"})
	require.NoError(t, err)
	drain(out)

	require.NoError(t, eng.Meta(procUUID, "cmdline", "/bin/ls", 2))
	assert.Empty(t, drain(out))

	require.NoError(t, eng.Meta(procUUID, "cmdline", "/bin/ls -la", 3))
	muts := drain(out)
	require.Len(t, muts, 1)
	assert.Equal(t, UpdateNode, muts[0].Kind)
}
