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

// Package views broadcasts PVM mutations to a set of registered consumers:
// storage backends, export bundles, and human-readable logs.
package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/carverauto/pvm/pkg/logger"
	"github.com/carverauto/pvm/pkg/pvm"
)

// CoordinatorQueueSize is the default capacity of the coordinator's input
// channel, chosen to absorb burstiness between ingest and the slowest
// consumer without unbounded memory growth.
const CoordinatorQueueSize = 100000

// defaultConsumerQueueSize bounds each consumer's own channel; a slow
// consumer applies backpressure to the coordinator once its queue fills.
const defaultConsumerQueueSize = 10000

// Consumer receives every mutation the coordinator broadcasts. Consume runs
// on its own goroutine and must return when in is closed.
type Consumer interface {
	// Name identifies the consumer in logs and panics.
	Name() string
	// Consume drains in until it closes, applying each mutation to the
	// consumer's backing store. A returned error is treated as fatal.
	Consume(ctx context.Context, in <-chan *pvm.Mutation) error
}

// Coordinator reads mutations from a single bounded input channel and
// fans each one out to every registered consumer's own bounded channel.
type Coordinator struct {
	log logger.Logger
	in  chan *pvm.Mutation

	mu        sync.Mutex
	consumers []registeredConsumer

	wg      sync.WaitGroup
	fatal   chan error
	started bool
}

type registeredConsumer struct {
	consumer Consumer
	ch       chan *pvm.Mutation
}

// NewCoordinator returns a Coordinator with an input channel of
// CoordinatorQueueSize capacity.
func NewCoordinator(log logger.Logger) *Coordinator {
	return &Coordinator{
		log:   log,
		in:    make(chan *pvm.Mutation, CoordinatorQueueSize),
		fatal: make(chan error, 1),
	}
}

// Input returns the channel the ingest pipeline should publish mutations
// on.
func (c *Coordinator) Input() chan<- *pvm.Mutation {
	return c.in
}

// Register adds a consumer before Start. Registering after Start panics,
// mirroring the single-assembly-phase lifecycle of the broadcaster this is
// grounded on.
func (c *Coordinator) Register(consumer Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		panic("views: cannot register a consumer after Start")
	}

	c.consumers = append(c.consumers, registeredConsumer{
		consumer: consumer,
		ch:       make(chan *pvm.Mutation, defaultConsumerQueueSize),
	})
}

// Start launches the broadcaster goroutine and one goroutine per
// registered consumer.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	c.started = true
	consumers := make([]registeredConsumer, len(c.consumers))
	copy(consumers, c.consumers)
	c.mu.Unlock()

	for _, rc := range consumers {
		c.wg.Add(1)

		go c.runConsumer(ctx, rc)
	}

	c.wg.Add(1)

	go c.broadcast(consumers)

	return nil
}

func (c *Coordinator) runConsumer(ctx context.Context, rc registeredConsumer) {
	defer c.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			c.reportFatal(fmt.Errorf("views: consumer %q panicked: %v", rc.consumer.Name(), r))
		}
	}()

	if err := rc.consumer.Consume(ctx, rc.ch); err != nil {
		c.reportFatal(fmt.Errorf("views: consumer %q failed: %w", rc.consumer.Name(), err))
	}
}

func (c *Coordinator) broadcast(consumers []registeredConsumer) {
	defer c.wg.Done()

	for m := range c.in {
		for _, rc := range consumers {
			rc.ch <- m
		}
	}

	for _, rc := range consumers {
		close(rc.ch)
	}
}

func (c *Coordinator) reportFatal(err error) {
	c.log.Error().Err(err).Msg("views: fatal consumer error")

	select {
	case c.fatal <- err:
	default:
	}
}

// Fatal returns a channel that receives the first fatal consumer error, if
// any occurs.
func (c *Coordinator) Fatal() <-chan error {
	return c.fatal
}

// Stop closes the input channel and waits for the broadcaster and every
// consumer goroutine to drain and exit.
func (c *Coordinator) Stop(_ context.Context) error {
	close(c.in)
	c.wg.Wait()

	return nil
}
