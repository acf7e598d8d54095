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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/pvm/pkg/logger"
)

const sampleTrace = `{"event":"audit:event:aue_fork:","time":1,"pid":2,"ppid":1,"tid":2,"uid":0,"exec":"/bin/sh","retval":0,"subjprocuuid":"11111111-1111-1111-1111-111111111111","subjthruuid":"11111111-1111-1111-1111-111111111111","ret_objuuid1":"22222222-2222-2222-2222-222222222222"}
{"event":"audit:event:aue_exit:","time":2,"pid":2,"ppid":1,"tid":2,"uid":0,"exec":"/bin/sh","retval":0,"subjprocuuid":"22222222-2222-2222-2222-222222222222","subjthruuid":"22222222-2222-2222-2222-222222222222"}
`

func TestPipelineRunsInputToCompletionAndFlushesViews(t *testing.T) {
	dir := t.TempDir()

	tracePath := filepath.Join(dir, "trace.jsonl")
	require.NoError(t, os.WriteFile(tracePath, []byte(sampleTrace), 0o600))

	bundleDir := filepath.Join(dir, "bundle")

	cfg := &Config{
		ServiceName: "pvmd-test",
		Input:       tracePath,
		RunID:       "test-run",
		Views: []ViewConfig{
			{Name: "bundle", Type: viewTypeCSVBundle, Dir: bundleDir},
		},
	}
	require.NoError(t, cfg.Validate())

	ctx := context.Background()

	p, err := newPipeline(ctx, cfg, logger.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, p.Start(ctx))

	nodesCSV, err := os.ReadFile(filepath.Join(bundleDir, "nodes.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(nodesCSV), "process")

	relsCSV, err := os.ReadFile(filepath.Join(bundleDir, "rels.csv"))
	require.NoError(t, err)
	assert.NotEmpty(t, relsCSV)

	read, skipped := p.driver.Stats()
	assert.Equal(t, uint64(2), read)
	assert.Equal(t, uint64(0), skipped)
}

func TestPipelineStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace.jsonl")
	require.NoError(t, os.WriteFile(tracePath, []byte(sampleTrace), 0o600))

	cfg := &Config{ServiceName: "pvmd-test", Input: tracePath, RunID: "test-run"}
	require.NoError(t, cfg.Validate())

	ctx := context.Background()

	p, err := newPipeline(ctx, cfg, logger.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Stop(ctx))
}
