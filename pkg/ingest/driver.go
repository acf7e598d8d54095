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

// Package ingest reads a line-delimited trace stream and drives the
// provenance engine from it. Decoding is parallel; delivery to the engine is
// strictly serial so mutation order matches input order.
package ingest

import (
	"bufio"
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/carverauto/pvm/pkg/ingest/parse"
	"github.com/carverauto/pvm/pkg/logger"
	"github.com/carverauto/pvm/pkg/pvm"
)

// BatchSize is the minimum number of lines accumulated before a batch is
// decoded and delivered. The final batch of a stream may be smaller.
const BatchSize = 65536

// maxScanLineBytes bounds a single audit line; cadets records with large
// cmdlines stay well under this.
const maxScanLineBytes = 1 << 20

// decoded pairs a line's input-order index with its parse result so the
// worker pool's out-of-order completions can be re-sorted before delivery.
type decoded struct {
	index int
	event parse.TraceEvent
	err   error
}

// Driver owns the line reader, the decode worker pool, and the engine it
// feeds. It is not safe for concurrent use; one Driver reads one stream.
type Driver struct {
	eng      *pvm.Engine
	log      logger.Logger
	workers  int
	unparsed map[string]struct{}

	linesRead    uint64
	linesSkipped uint64
}

// New returns a Driver that delivers decoded events to eng. workers <= 0
// selects runtime.GOMAXPROCS(0).
func New(eng *pvm.Engine, log logger.Logger, workers int) *Driver {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Driver{
		eng:      eng,
		log:      log,
		workers:  workers,
		unparsed: make(map[string]struct{}),
	}
}

// Unparsed returns the set of event tags seen that had no dispatch handler.
func (d *Driver) Unparsed() map[string]struct{} {
	return d.unparsed
}

// Stats returns (lines successfully delivered, lines skipped) for the
// stream processed so far.
func (d *Driver) Stats() (read, skipped uint64) {
	return d.linesRead, d.linesSkipped
}

// Run reads r line by line, batches lines up to BatchSize, decodes each
// batch across the worker pool, and delivers decoded events to the engine
// strictly in input order. ctx cancellation is observed between batches; it
// never interrupts a batch already in flight, matching the engine's
// synchronous, non-preemptible operation model.
func (d *Driver) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanLineBytes)

	batch := make([][]byte, 0, BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if err := d.processBatch(batch); err != nil {
			return err
		}

		batch = batch[:0]

		return nil
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			d.linesSkipped++
			continue
		}

		cp := make([]byte, len(line))
		copy(cp, line)
		batch = append(batch, cp)

		if len(batch) >= BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return flush()
}

// processBatch decodes every line in batch across the worker pool, then
// dispatches the successfully decoded events to the engine in original
// order.
func (d *Driver) processBatch(batch [][]byte) error {
	results := make([]decoded, len(batch))

	var wg sync.WaitGroup

	lineCh := make(chan int, d.workers*2)

	for w := 0; w < d.workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range lineCh {
				ev, err := parse.Decode(batch[i])
				results[i] = decoded{index: i, event: ev, err: err}
			}
		}()
	}

	for i := range batch {
		lineCh <- i
	}

	close(lineCh)
	wg.Wait()

	for _, res := range results {
		if res.err != nil {
			d.linesSkipped++
			d.eng.Metrics().RecordEventDropped(context.Background())
			d.log.Warn().Err(res.err).Int("line", res.index).Msg("ingest: skipping unparseable line")

			continue
		}

		if err := parse.Dispatch(d.eng, res.event, d.unparsed); err != nil {
			d.linesSkipped++
			d.eng.Metrics().RecordEventDropped(context.Background())
			d.log.Warn().Err(err).Int("line", res.index).Msg("ingest: skipping line that failed dispatch")

			continue
		}

		d.linesRead++
	}

	return nil
}
