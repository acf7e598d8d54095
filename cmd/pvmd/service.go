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
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/carverauto/pvm/pkg/ingest"
	"github.com/carverauto/pvm/pkg/logger"
	"github.com/carverauto/pvm/pkg/pvm"
	"github.com/carverauto/pvm/pkg/views"
)

// pipeline wires the ingest driver, the provenance engine, and the view
// coordinator into the single lifecycle.Service pvmd runs.
type pipeline struct {
	cfg *Config
	log logger.Logger

	coordinator *views.Coordinator
	driver      *ingest.Driver
	closers     []closer

	stopOnce sync.Once
	input    io.Closer
}

func newPipeline(ctx context.Context, cfg *Config, log logger.Logger) (*pipeline, error) {
	coordinator := views.NewCoordinator(log)

	p := &pipeline{cfg: cfg, log: log, coordinator: coordinator}

	for _, vc := range cfg.Views {
		consumer, cl, err := buildView(ctx, vc, cfg.RunID)
		if err != nil {
			p.closeAll()
			return nil, err
		}

		coordinator.Register(consumer)

		if cl != nil {
			p.closers = append(p.closers, cl)
		}
	}

	metrics, err := pvm.NewMetrics(otel.Meter("github.com/carverauto/pvm"))
	if err != nil {
		p.closeAll()
		return nil, fmt.Errorf("pvmd: build engine metrics: %w", err)
	}

	eng := pvm.NewEngine(coordinator.Input(), log, metrics)
	p.driver = ingest.New(eng, log, cfg.Workers)

	return p, nil
}

func (p *pipeline) closeAll() {
	for _, c := range p.closers {
		c.Close()
	}
}

// Start opens the configured input, runs the view coordinator and the
// ingest driver, and blocks until the input is exhausted, ctx is canceled,
// or a view fails.
func (p *pipeline) Start(parentCtx context.Context) error {
	r, err := p.openInput()
	if err != nil {
		return err
	}

	p.input = r

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	if err := p.coordinator.Start(ctx); err != nil {
		return fmt.Errorf("pvmd: start view coordinator: %w", err)
	}

	ingestDone := make(chan error, 1)

	go func() {
		ingestDone <- p.driver.Run(ctx, r)
	}()

	var runErr error

	select {
	case runErr = <-ingestDone:
	case runErr = <-p.coordinator.Fatal():
		cancel()
		<-ingestDone
	case <-parentCtx.Done():
		runErr = parentCtx.Err()
		cancel()
		<-ingestDone
	}

	read, skipped := p.driver.Stats()
	p.log.Info().Uint64("lines_read", read).Uint64("lines_skipped", skipped).
		Int("unparsed_event_tags", len(p.driver.Unparsed())).
		Msg("pvmd: ingest finished")

	p.stop(context.Background())

	return runErr
}

// Stop is idempotent; Start already drives the pipeline to completion, so
// this only covers the case where RunServer calls Stop after a signal
// interrupts Start via ctx cancellation.
func (p *pipeline) Stop(ctx context.Context) error {
	p.stop(ctx)
	return nil
}

func (p *pipeline) stop(ctx context.Context) {
	p.stopOnce.Do(func() {
		if p.input != nil {
			p.input.Close()
		}

		if err := p.coordinator.Stop(ctx); err != nil {
			p.log.Error().Err(err).Msg("pvmd: view coordinator stop failed")
		}

		p.closeAll()
	})
}

func (p *pipeline) openInput() (io.ReadCloser, error) {
	if p.cfg.Input == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	f, err := os.Open(p.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("pvmd: open input %s: %w", p.cfg.Input, err)
	}

	return f, nil
}
