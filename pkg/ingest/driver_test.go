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

package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/pvm/pkg/logger"
	"github.com/carverauto/pvm/pkg/pvm"
)

func newDriverTestEngine(t *testing.T) (*pvm.Engine, chan *pvm.Mutation) {
	t.Helper()

	out := make(chan *pvm.Mutation, 1<<16)

	return pvm.NewEngine(out, logger.NewTestLogger(), nil), out
}

// fixedProcLine builds a self-contained audit:event:aue_chdir line that
// declares a distinct process and names a distinct file, so per-line
// ordering is observable independent of any other line.
func fixedProcLine(i int) string {
	proc := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("proc-%d", i))).String()
	file := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("file-%d", i))).String()

	return fmt.Sprintf(
		`{"event":"audit:event:aue_chdir:","time":%d,"pid":%d,"ppid":1,"tid":1,"uid":0,"exec":"/bin/x","retval":0,"subjprocuuid":"%s","subjthruuid":"%s","arg_objuuid1":"%s","upath1":"/d%d"}`,
		i, i, proc, proc, file, i,
	)
}

func TestDriverDeliversInInputOrder(t *testing.T) {
	eng, out := newDriverTestEngine(t)
	d := New(eng, logger.NewTestLogger(), 8)

	const n = 500

	lines := make([]string, n)
	for i := 0; i < n; i++ {
		lines[i] = fixedProcLine(i)
	}

	r := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, d.Run(context.Background(), r))

	close(out)

	var order []string

	for m := range out {
		if m.Kind == pvm.CreateNode && m.Node.Name != nil {
			order = append(order, m.Node.Name.Path)
		}
	}

	require.Len(t, order, n)

	for i, name := range order {
		assert.Equal(t, fmt.Sprintf("/d%d", i), name)
	}

	read, skipped := d.Stats()
	assert.EqualValues(t, n, read)
	assert.Zero(t, skipped)
}

func TestDriverSkipsBlankAndMalformedLines(t *testing.T) {
	eng, out := newDriverTestEngine(t)
	d := New(eng, logger.NewTestLogger(), 4)

	input := "\nnot json\n" + fixedProcLine(0) + "\n\n"

	require.NoError(t, d.Run(context.Background(), strings.NewReader(input)))
	close(out)

	var createNodes int

	for m := range out {
		if m.Kind == pvm.CreateNode {
			createNodes++
		}
	}

	assert.Positive(t, createNodes)

	read, skipped := d.Stats()
	assert.EqualValues(t, 1, read)
	assert.EqualValues(t, 3, skipped, "two blank lines plus one malformed line")
}

func TestDriverFlushesFinalPartialBatch(t *testing.T) {
	eng, _ := newDriverTestEngine(t)
	d := New(eng, logger.NewTestLogger(), 4)

	lines := make([]string, 10)
	for i := range lines {
		lines[i] = fixedProcLine(i)
	}

	r := strings.NewReader(strings.Join(lines, "\n"))
	require.NoError(t, d.Run(context.Background(), r))

	read, _ := d.Stats()
	assert.EqualValues(t, len(lines), read, "a stream shorter than one batch must still be delivered")
}
