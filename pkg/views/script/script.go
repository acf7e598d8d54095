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

// Package script renders PVM mutations as a human-readable provenance
// script, one line per mutation, for operator inspection.
package script

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"text/template"

	"github.com/carverauto/pvm/pkg/pvm"
)

const defaultTemplate = `{{if eq .Kind "CreateNode"}}` +
	`new {{.Node.Type}}({{.Node.PVMType}}) #{{.Node.ID}} uuid={{.Node.UUID}}` +
	`{{if .Node.Name}} name={{.Node.Name.Path}}{{end}}` +
	`{{else if eq .Kind "UpdateNode"}}` +
	`update #{{.Node.ID}} uuid={{.Node.UUID}}` +
	`{{else if eq .Kind "CreateRel"}}` +
	`rel #{{.Rel.ID}} {{.Rel.Src}} -{{.Rel.Op}}-> {{.Rel.Dst}}{{if .Rel.ByteCount}} bytes={{.Rel.ByteCount}}{{end}}` +
	`{{else}}` +
	`update rel #{{.Rel.ID}} {{.Rel.Src}} -{{.Rel.Op}}-> {{.Rel.Dst}} bytes={{.Rel.ByteCount}}` +
	`{{end}}` + "\n"

// line is the template's view of one Mutation: the raw union is projected
// into plain fields so the template text can stay a single flat line.
type line struct {
	Kind string
	Node *pvm.NodeSnapshot
	Rel  *pvm.RelSnapshot
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

// View writes one rendered line per mutation to an underlying writer.
type View struct {
	name string
	tmpl *template.Template
	w    *bufio.Writer
}

// New returns a View that writes to w using the default one-line-per-
// mutation template. tmplText, if non-empty, overrides the built-in
// template.
func New(name string, w io.Writer, tmplText string) (*View, error) {
	if tmplText == "" {
		tmplText = defaultTemplate
	}

	tmpl, err := template.New("script").Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("views/script: parse template: %w", err)
	}

	return &View{name: name, tmpl: tmpl, w: bufio.NewWriter(w)}, nil
}

// Name implements views.Consumer.
func (v *View) Name() string { return v.name }

// Consume implements views.Consumer.
func (v *View) Consume(ctx context.Context, in <-chan *pvm.Mutation) error {
	defer v.w.Flush()

	for m := range in {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := v.tmpl.Execute(v.w, line{Kind: kindName(m.Kind), Node: m.Node, Rel: m.Rel}); err != nil {
			return fmt.Errorf("views/script: render mutation: %w", err)
		}
	}

	return v.w.Flush()
}
