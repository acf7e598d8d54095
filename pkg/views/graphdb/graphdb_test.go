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

package graphdb

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/pvm/pkg/pvm"
)

var (
	errFakeRowsQuery = errors.New("Query not implemented in fakeBatchResults")
	errFakeRowScan   = errors.New("Scan not implemented in fakeBatchRow")
	errExecBoom      = errors.New("boom")
	errCloseBoom     = errors.New("close failed")
)

type fakeBatchResults struct {
	execCalls int
	execErrAt int
	execErr   error

	closeCalls int
	closeErr   error
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	defer func() { f.execCalls++ }()

	if f.execErr != nil && f.execCalls == f.execErrAt {
		return pgconn.CommandTag{}, f.execErr
	}

	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errFakeRowsQuery }

type fakeBatchRow struct{}

func (fakeBatchRow) Scan(...any) error { return errFakeRowScan }

func (f *fakeBatchResults) QueryRow() pgx.Row { return fakeBatchRow{} }

func (f *fakeBatchResults) Close() error {
	f.closeCalls++
	return f.closeErr
}

// fakePool records every batch it was sent and replays a scripted
// fakeBatchResults for each SendBatch call.
type fakePool struct {
	sent     []*pgx.Batch
	results  []*fakeBatchResults
	execSQL  []string
	nextCall int
}

func (p *fakePool) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	p.sent = append(p.sent, b)

	if p.nextCall < len(p.results) {
		br := p.results[p.nextCall]
		p.nextCall++

		return br
	}

	br := &fakeBatchResults{}
	p.results = append(p.results, br)
	p.nextCall++

	return br
}

func (p *fakePool) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	p.execSQL = append(p.execSQL, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func TestConsumeQueuesNodesAndRelsInOneBatch(t *testing.T) {
	pool := &fakePool{}
	v := New("graphdb", pool)

	in := make(chan *pvm.Mutation, 3)
	in <- &pvm.Mutation{Kind: pvm.CreateNode, Node: &pvm.NodeSnapshot{ID: 1, Type: "process", PVMType: pvm.Actor}}
	in <- &pvm.Mutation{Kind: pvm.CreateNode, Node: &pvm.NodeSnapshot{ID: 2, Type: "file", PVMType: pvm.Store}}
	in <- &pvm.Mutation{Kind: pvm.CreateRel, Rel: &pvm.RelSnapshot{ID: 3, Src: 1, Dst: 2, Op: pvm.Source}}
	close(in)

	require.NoError(t, v.Consume(context.Background(), in))

	require.Len(t, pool.sent, 1, "a single trailing batch covering all three mutations")
	assert.Equal(t, 3, pool.sent[0].Len())
	require.Len(t, pool.results, 1)
	assert.Equal(t, 1, pool.results[0].closeCalls)
}

func TestConsumeFlushesAtBatchFlushSize(t *testing.T) {
	pool := &fakePool{}
	v := New("graphdb", pool)

	in := make(chan *pvm.Mutation, BatchFlushSize+1)
	for i := 0; i < BatchFlushSize+1; i++ {
		in <- &pvm.Mutation{Kind: pvm.CreateNode, Node: &pvm.NodeSnapshot{ID: pvm.ID(i + 1), Type: "file", PVMType: pvm.Store}}
	}
	close(in)

	require.NoError(t, v.Consume(context.Background(), in))

	require.Len(t, pool.sent, 2, "one full batch plus one trailing batch of size 1")
	assert.Equal(t, BatchFlushSize, pool.sent[0].Len())
	assert.Equal(t, 1, pool.sent[1].Len())
}

func TestConsumeReturnsWrappedExecError(t *testing.T) {
	br := &fakeBatchResults{execErrAt: 0, execErr: errExecBoom}
	pool := &fakePool{results: []*fakeBatchResults{br}}
	v := New("graphdb", pool)

	in := make(chan *pvm.Mutation, 1)
	in <- &pvm.Mutation{Kind: pvm.CreateNode, Node: &pvm.NodeSnapshot{ID: 1, Type: "file", PVMType: pvm.Store}}
	close(in)

	err := v.Consume(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch exec (command 0)")
	assert.Equal(t, 1, br.closeCalls)
}

func TestConsumeReturnsCloseErrorWhenExecSucceeds(t *testing.T) {
	br := &fakeBatchResults{closeErr: errCloseBoom}
	pool := &fakePool{results: []*fakeBatchResults{br}}
	v := New("graphdb", pool)

	in := make(chan *pvm.Mutation, 1)
	in <- &pvm.Mutation{Kind: pvm.CreateNode, Node: &pvm.NodeSnapshot{ID: 1, Type: "file", PVMType: pvm.Store}}
	close(in)

	err := v.Consume(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch close: close failed")
}

func TestEnsureSchemaExecutesDDL(t *testing.T) {
	pool := &fakePool{}
	v := New("graphdb", pool)

	require.NoError(t, v.EnsureSchema(context.Background()))
	require.Len(t, pool.execSQL, 1)
	assert.Contains(t, pool.execSQL[0], "CREATE TABLE IF NOT EXISTS pvm_nodes")
}
