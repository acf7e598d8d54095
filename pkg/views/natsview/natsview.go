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

// Package natsview publishes PVM mutations as JSON messages on a NATS
// JetStream stream, one subject per run, for fan-out to subscribers outside
// this process.
package natsview

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/pvm/pkg/pvm"
)

// Publisher is the subset of jetstream.JetStream this view needs, narrowed
// for testability.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// message is the wire shape of one mutation. UUIDs and enums are rendered to
// their string forms so the payload needs no schema shared with consumers.
type message struct {
	Kind string   `json:"kind"`
	Node *nodeMsg `json:"node,omitempty"`
	Rel  *relMsg  `json:"rel,omitempty"`
}

type nodeMsg struct {
	ID      pvm.ID `json:"id"`
	UUID    string `json:"uuid,omitempty"`
	Type    string `json:"type"`
	PVMType string `json:"pvm_type"`
	Name    string `json:"name,omitempty"`
}

type relMsg struct {
	ID             pvm.ID `json:"id"`
	Src            pvm.ID `json:"src"`
	Dst            pvm.ID `json:"dst"`
	Op             string `json:"op"`
	GeneratingCall string `json:"generating_call,omitempty"`
	ByteCount      uint64 `json:"byte_count"`
}

func kindName(k pvm.MutationKind) string {
	switch k {
	case pvm.CreateNode:
		return "CreateNode"
	case pvm.UpdateNode:
		return "UpdateNode"
	case pvm.CreateRel:
		return "CreateRel"
	case pvm.UpdateRel:
		return "UpdateRel"
	default:
		return "Unknown"
	}
}

func toMessage(m *pvm.Mutation) message {
	out := message{Kind: kindName(m.Kind)}

	if m.Node != nil {
		n := &nodeMsg{ID: m.Node.ID, UUID: m.Node.UUID.String(), Type: m.Node.Type, PVMType: m.Node.PVMType.String()}

		if m.Node.Name != nil {
			n.Name = m.Node.Name.Path
		}

		out.Node = n
	}

	if m.Rel != nil {
		out.Rel = &relMsg{
			ID:             m.Rel.ID,
			Src:            m.Rel.Src,
			Dst:            m.Rel.Dst,
			Op:             m.Rel.Op.String(),
			GeneratingCall: m.Rel.GeneratingCall,
			ByteCount:      m.Rel.ByteCount,
		}
	}

	return out
}

// View publishes every mutation it consumes to "<stream>.<runID>" on js.
type View struct {
	name   string
	js     Publisher
	stream string
	runID  string
}

// New returns a View that publishes to the subject "<stream>.<runID>".
func New(name string, js Publisher, stream, runID string) *View {
	return &View{name: name, js: js, stream: stream, runID: runID}
}

// Name implements views.Consumer.
func (v *View) Name() string { return v.name }

func (v *View) subject() string {
	return fmt.Sprintf("%s.%s", v.stream, v.runID)
}

// Consume implements views.Consumer.
func (v *View) Consume(ctx context.Context, in <-chan *pvm.Mutation) error {
	subject := v.subject()

	for m := range in {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		payload, err := json.Marshal(toMessage(m))
		if err != nil {
			return fmt.Errorf("views/natsview: marshal mutation: %w", err)
		}

		if _, err := v.js.Publish(ctx, subject, payload); err != nil {
			return fmt.Errorf("views/natsview: publish to %s: %w", subject, err)
		}
	}

	return nil
}
