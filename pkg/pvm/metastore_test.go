package pvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetaStoreUpdateIdempotent(t *testing.T) {
	m := NewMetaStore()

	changed := m.Update("cmdline", "/bin/ls", 1, true)
	require.True(t, changed)

	changed = m.Update("cmdline", "/bin/ls", 2, true)
	require.False(t, changed)

	entries := 0
	for _, rec := range m.IterAll() {
		if rec.Key == "cmdline" {
			entries++
		}
	}
	require.Equal(t, 1, entries)
}

func TestMetaStoreUpdateAppendsOnChange(t *testing.T) {
	m := NewMetaStore()
	m.Update("cmdline", "/bin/ls", 1, true)
	m.Update("cmdline", "/bin/ls -la", 2, true)

	cur, ok := m.Cur("cmdline")
	require.True(t, ok)
	require.Equal(t, "/bin/ls -la", cur)
}

func TestMetaStoreHeritabilityFixedOnFirstInsert(t *testing.T) {
	m := NewMetaStore()
	m.Update("pid", "17", 1, false)
	m.Update("pid", "18", 2, true) // heritable flag on this call is ignored

	snap := m.Snapshot(3)
	_, ok := snap.Cur("pid")
	require.False(t, ok, "non-heritable key must not survive snapshot")
}

func TestMetaStoreSnapshotIsHeritableOnly(t *testing.T) {
	m := NewMetaStore()
	m.Update("cmdline", "/bin/sh", 1, true)
	m.Update("pid", "100", 1, false)

	snap := m.Snapshot(2)

	cur, ok := snap.Cur("cmdline")
	require.True(t, ok)
	require.Equal(t, "/bin/sh", cur)

	_, ok = snap.Cur("pid")
	require.False(t, ok)
}

func TestMetaStoreSnapshotIsPointInTime(t *testing.T) {
	m := NewMetaStore()
	m.Update("cmdline", "/bin/sh", 1, true)

	snap := m.Snapshot(2)

	m.Update("cmdline", "/bin/sh -c foo", 3, true)

	cur, ok := snap.Cur("cmdline")
	require.True(t, ok)
	require.Equal(t, "/bin/sh", cur, "snapshot must not observe later parent changes")
}

func TestMetaStoreMergeReplaysInOrder(t *testing.T) {
	a := NewMetaStore()
	a.Update("mode", "0644", 1, true)

	b := NewMetaStore()
	b.Update("mode", "0644", 2, true)
	b.Update("mode", "0600", 3, true)

	a.Merge(b)

	cur, ok := a.Cur("mode")
	require.True(t, ok)
	require.Equal(t, "0600", cur)
}
