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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/pvm/pkg/views"
	"github.com/carverauto/pvm/pkg/views/csvbundle"
	"github.com/carverauto/pvm/pkg/views/graphdb"
	"github.com/carverauto/pvm/pkg/views/natsview"
	"github.com/carverauto/pvm/pkg/views/script"
)

const (
	viewTypeCSVBundle = "csvbundle"
	viewTypeScript    = "script"
	viewTypeGraphDB   = "graphdb"
	viewTypeNATS      = "nats"
)

// viewTypes lists every compiled-in view kind, for "views list".
var viewTypes = []string{viewTypeCSVBundle, viewTypeScript, viewTypeGraphDB, viewTypeNATS}

// closer is implemented by views that hold a live connection that must be
// released when the pipeline shuts down.
type closer interface {
	Close()
}

// buildView constructs the Consumer named by cfg, along with any resource
// that must be closed once the pipeline stops.
func buildView(ctx context.Context, cfg ViewConfig, runID string) (views.Consumer, closer, error) {
	switch cfg.Type {
	case viewTypeCSVBundle:
		return csvbundle.New(cfg.Name, cfg.Dir), nil, nil
	case viewTypeScript:
		w := os.Stdout

		if cfg.Path != "" && cfg.Path != "-" {
			f, err := os.Create(cfg.Path)
			if err != nil {
				return nil, nil, fmt.Errorf("pvmd: open script output %s: %w", cfg.Path, err)
			}

			v, err := script.New(cfg.Name, f, cfg.Template)
			if err != nil {
				f.Close()
				return nil, nil, err
			}

			return v, fileCloser{f}, nil
		}

		v, err := script.New(cfg.Name, w, cfg.Template)

		return v, nil, err
	case viewTypeGraphDB:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("pvmd: connect graphdb %s: %w", cfg.Name, err)
		}

		v := graphdb.New(cfg.Name, pool)
		if err := v.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}

		return v, poolCloser{pool}, nil
	case viewTypeNATS:
		nc, err := nats.Connect(cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("pvmd: connect nats %s: %w", cfg.Name, err)
		}

		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("pvmd: create jetstream context %s: %w", cfg.Name, err)
		}

		return natsview.New(cfg.Name, js, cfg.Stream, runID), natsCloser{nc}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownViewType, cfg.Type)
	}
}

type fileCloser struct{ f *os.File }

func (c fileCloser) Close() { c.f.Close() }

type poolCloser struct{ pool *pgxpool.Pool }

func (c poolCloser) Close() { c.pool.Close() }

type natsCloser struct{ nc *nats.Conn }

func (c natsCloser) Close() { c.nc.Close() }
