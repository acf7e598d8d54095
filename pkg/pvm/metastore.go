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

package pvm

// metaEntry is one observed value of a property, tagged with the context
// (event) in which it was observed.
type metaEntry struct {
	value string
	ctx   ID
}

type metaSlot struct {
	heritable bool
	entries   []metaEntry
}

// MetaStore is a per-object, append-only property log keyed by property
// name. Each key's heritability is fixed at first insert; a new value is
// appended to a key's entry list only when it differs from the current tail.
type MetaStore struct {
	entries map[string]*metaSlot
}

// NewMetaStore returns an empty MetaStore.
func NewMetaStore() *MetaStore {
	return &MetaStore{entries: make(map[string]*metaSlot)}
}

// FromMap seeds a MetaStore from a set of initial key/value pairs observed
// under ctx, using ty's property table to determine heritability.
func FromMap(src map[string]string, ctx ID, ty *ConcreteType) *MetaStore {
	m := NewMetaStore()

	for k, v := range src {
		m.entries[k] = &metaSlot{
			heritable: ty.Props[k],
			entries:   []metaEntry{{value: v, ctx: ctx}},
		}
	}

	return m
}

// Update appends (value, ctx) to key's entry list unless value equals the
// current tail. heritable is only honored on first insert; subsequent calls
// preserve the key's original heritability.
func (m *MetaStore) Update(key, value string, ctx ID, heritable bool) bool {
	if cur, ok := m.Cur(key); ok && cur == value {
		return false
	}

	slot, ok := m.entries[key]
	if !ok {
		slot = &metaSlot{heritable: heritable}
		m.entries[key] = slot
	}

	slot.entries = append(slot.entries, metaEntry{value: value, ctx: ctx})

	return true
}

// Cur returns the latest value for key, if any.
func (m *MetaStore) Cur(key string) (string, bool) {
	slot, ok := m.entries[key]
	if !ok || len(slot.entries) == 0 {
		return "", false
	}

	return slot.entries[len(slot.entries)-1].value, true
}

// Snapshot returns a MetaStore containing only heritable keys, each with a
// single entry holding the current value under ctx. Used when forking a
// child: the child's meta is a point-in-time copy, not a live reference.
func (m *MetaStore) Snapshot(ctx ID) *MetaStore {
	out := NewMetaStore()

	for key, slot := range m.entries {
		if !slot.heritable || len(slot.entries) == 0 {
			continue
		}

		last := slot.entries[len(slot.entries)-1]
		out.entries[key] = &metaSlot{
			heritable: true,
			entries:   []metaEntry{{value: last.value, ctx: ctx}},
		}
	}

	return out
}

// Clone returns a MetaStore with every key's current value carried forward
// under ctx, preserving each key's heritability. Used when a Store gains a
// new version: the new version is the same entity, not a fork, so every
// property (not just heritable ones) carries forward.
func (m *MetaStore) Clone(ctx ID) *MetaStore {
	out := NewMetaStore()

	for key, slot := range m.entries {
		if len(slot.entries) == 0 {
			continue
		}

		last := slot.entries[len(slot.entries)-1]
		out.entries[key] = &metaSlot{
			heritable: slot.heritable,
			entries:   []metaEntry{{value: last.value, ctx: ctx}},
		}
	}

	return out
}

// Merge replays every entry of other through Update, in iteration order,
// reporting whether any entry actually changed a value.
func (m *MetaStore) Merge(other *MetaStore) bool {
	changed := false

	for _, rec := range other.IterAll() {
		if m.Update(rec.Key, rec.Value, rec.Ctx, rec.Heritable) {
			changed = true
		}
	}

	return changed
}

// MetaRecord is one (key, value, ctx, heritable) entry, for iteration.
type MetaRecord struct {
	Key       string
	Value     string
	Ctx       ID
	Heritable bool
}

// IterAll returns every (value, ctx) pair ever recorded for every key, in
// append order within each key.
func (m *MetaStore) IterAll() []MetaRecord {
	out := make([]MetaRecord, 0, len(m.entries))

	for key, slot := range m.entries {
		for _, e := range slot.entries {
			out = append(out, MetaRecord{Key: key, Value: e.value, Ctx: e.ctx, Heritable: slot.heritable})
		}
	}

	return out
}

// IterLatest returns the current (value, ctx) pair for every key.
func (m *MetaStore) IterLatest() []MetaRecord {
	out := make([]MetaRecord, 0, len(m.entries))

	for key, slot := range m.entries {
		if len(slot.entries) == 0 {
			continue
		}

		last := slot.entries[len(slot.entries)-1]
		out = append(out, MetaRecord{Key: key, Value: last.value, Ctx: last.ctx, Heritable: slot.heritable})
	}

	return out
}
