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

// Package csvbundle writes PVM mutations into a pair of CSV files, one for
// nodes and one for relations, for offline analysis with spreadsheet or
// dataframe tooling.
package csvbundle

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/carverauto/pvm/pkg/pvm"
)

var nodeHeader = []string{"id", "uuid", "type", "pvm_type", "name"}
var relHeader = []string{"id", "src", "dst", "kind", "op", "generating_call", "byte_count"}

// View accumulates the latest state of every node and relation in memory,
// last-write-wins on UpdateNode/UpdateRel, and writes both CSV files when
// Consume returns.
type View struct {
	name string
	dir  string

	nodes map[pvm.ID]*pvm.NodeSnapshot
	rels  map[pvm.ID]*pvm.RelSnapshot
	order []pvm.ID
	relOrder []pvm.ID
}

// New returns a View that will write nodes.csv and rels.csv into dir when
// its consumer goroutine finishes.
func New(name, dir string) *View {
	return &View{
		name:  name,
		dir:   dir,
		nodes: make(map[pvm.ID]*pvm.NodeSnapshot),
		rels:  make(map[pvm.ID]*pvm.RelSnapshot),
	}
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

		v.apply(m)
	}

	return v.flush()
}

func (v *View) apply(m *pvm.Mutation) {
	switch m.Kind {
	case pvm.CreateNode:
		v.order = append(v.order, m.Node.ID)
		v.nodes[m.Node.ID] = m.Node
	case pvm.UpdateNode:
		v.nodes[m.Node.ID] = m.Node
	case pvm.CreateRel:
		v.relOrder = append(v.relOrder, m.Rel.ID)
		v.rels[m.Rel.ID] = m.Rel
	case pvm.UpdateRel:
		v.rels[m.Rel.ID] = m.Rel
	}
}

func (v *View) flush() error {
	if err := os.MkdirAll(v.dir, 0o755); err != nil {
		return fmt.Errorf("views/csvbundle: create dir: %w", err)
	}

	if err := v.writeNodes(); err != nil {
		return err
	}

	return v.writeRels()
}

func (v *View) writeNodes() error {
	f, err := os.Create(filepath.Join(v.dir, "nodes.csv"))
	if err != nil {
		return fmt.Errorf("views/csvbundle: create nodes.csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(nodeHeader); err != nil {
		return fmt.Errorf("views/csvbundle: write nodes header: %w", err)
	}

	for _, id := range v.order {
		n := v.nodes[id]

		name := ""
		if n.Name != nil {
			name = n.Name.Path
		}

		row := []string{
			strconv.FormatUint(uint64(n.ID), 10),
			n.UUID.String(),
			n.Type,
			n.PVMType.String(),
			name,
		}

		if err := w.Write(row); err != nil {
			return fmt.Errorf("views/csvbundle: write node row: %w", err)
		}
	}

	w.Flush()

	return w.Error()
}

func (v *View) writeRels() error {
	f, err := os.Create(filepath.Join(v.dir, "rels.csv"))
	if err != nil {
		return fmt.Errorf("views/csvbundle: create rels.csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(relHeader); err != nil {
		return fmt.Errorf("views/csvbundle: write rels header: %w", err)
	}

	for _, id := range v.relOrder {
		r := v.rels[id]

		row := []string{
			strconv.FormatUint(uint64(r.ID), 10),
			strconv.FormatUint(uint64(r.Src), 10),
			strconv.FormatUint(uint64(r.Dst), 10),
			strconv.Itoa(int(r.Kind)),
			r.Op.String(),
			r.GeneratingCall,
			strconv.FormatUint(r.ByteCount, 10),
		}

		if err := w.Write(row); err != nil {
			return fmt.Errorf("views/csvbundle: write rel row: %w", err)
		}
	}

	w.Flush()

	return w.Error()
}
