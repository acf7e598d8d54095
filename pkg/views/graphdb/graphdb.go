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

// Package graphdb persists PVM mutations into Postgres as two tables,
// pvm_nodes and pvm_rels, batching writes with pgx.Batch.
package graphdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/pvm/pkg/pvm"
)

// BatchFlushSize bounds how many mutations accumulate in one pgx.Batch
// before it is sent, mirroring the teacher's burst-of-CreateRel-after-
// CreateNode batching idiom.
const BatchFlushSize = 500

const schema = `
CREATE TABLE IF NOT EXISTS pvm_nodes (
	id        BIGINT PRIMARY KEY,
	uuid      TEXT NOT NULL,
	type      TEXT NOT NULL,
	pvm_type  TEXT NOT NULL,
	name      TEXT
);

CREATE TABLE IF NOT EXISTS pvm_rels (
	id               BIGINT PRIMARY KEY,
	src              BIGINT NOT NULL,
	dst              BIGINT NOT NULL,
	kind             SMALLINT NOT NULL,
	op               TEXT NOT NULL,
	generating_call  TEXT NOT NULL,
	byte_count       BIGINT NOT NULL
);
`

const upsertNode = `
INSERT INTO pvm_nodes (id, uuid, type, pvm_type, name)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	type = EXCLUDED.type, pvm_type = EXCLUDED.pvm_type, name = EXCLUDED.name
`

const upsertRel = `
INSERT INTO pvm_rels (id, src, dst, kind, op, generating_call, byte_count)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	byte_count = EXCLUDED.byte_count
`

// Pool is the subset of *pgxpool.Pool this view needs, narrowed for
// testability.
type Pool interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// View writes mutations to Postgres, batching up to BatchFlushSize at a
// time and on Consume's final flush.
type View struct {
	name string
	pool Pool

	batch   *pgx.Batch
	pending int
}

// New returns a View backed by pool. EnsureSchema should be called once
// before Consume to create the tables if they do not already exist.
func New(name string, pool Pool) *View {
	return &View{name: name, pool: pool, batch: &pgx.Batch{}}
}

// EnsureSchema creates pvm_nodes/pvm_rels if they do not exist.
func (v *View) EnsureSchema(ctx context.Context) error {
	if _, err := v.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("views/graphdb: create schema: %w", err)
	}

	return nil
}

// Name implements views.Consumer.
func (v *View) Name() string { return v.name }

// Consume implements views.Consumer.
func (v *View) Consume(ctx context.Context, in <-chan *pvm.Mutation) error {
	for m := range in {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		v.queue(m)

		if v.pending >= BatchFlushSize {
			if err := v.flush(ctx); err != nil {
				return err
			}
		}
	}

	return v.flush(ctx)
}

func (v *View) queue(m *pvm.Mutation) {
	switch m.Kind {
	case pvm.CreateNode, pvm.UpdateNode:
		name := ""
		if m.Node.Name != nil {
			name = m.Node.Name.Path
		}

		v.batch.Queue(upsertNode, int64(m.Node.ID), m.Node.UUID.String(), m.Node.Type, m.Node.PVMType.String(), name)
	case pvm.CreateRel, pvm.UpdateRel:
		v.batch.Queue(upsertRel, int64(m.Rel.ID), int64(m.Rel.Src), int64(m.Rel.Dst), int(m.Rel.Kind), m.Rel.Op.String(), m.Rel.GeneratingCall, int64(m.Rel.ByteCount))
	}

	v.pending++
}

func (v *View) flush(ctx context.Context) (err error) {
	if v.pending == 0 {
		return nil
	}

	batch := v.batch
	count := v.pending

	v.batch = &pgx.Batch{}
	v.pending = 0

	br := v.pool.SendBatch(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("views/graphdb: batch close: %w", closeErr)
		}
	}()

	for i := 0; i < count; i++ {
		if _, execErr := br.Exec(); execErr != nil {
			return fmt.Errorf("views/graphdb: batch exec (command %d): %w", i, execErr)
		}
	}

	return nil
}
