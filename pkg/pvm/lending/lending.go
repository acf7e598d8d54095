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

// Package lending implements a checkout/check-in cache: at most one mutable
// loan outstanding per key at any time. It replaces ad-hoc reference counting
// for objects the PVM engine owns exclusively but parsers must mutate in
// place.
package lending

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrKeyExists is returned by Insert when the key is already present.
	ErrKeyExists = errors.New("lending: key already present")
	// ErrKeyNotFound is returned by Lend/Remove when the key is absent.
	ErrKeyNotFound = errors.New("lending: key not found")
	// ErrAlreadyLent is returned by Lend when the key's prior loan is outstanding.
	ErrAlreadyLent = errors.New("lending: key already lent")
	// ErrLoanOutstanding is returned by Remove when a loan on the key has not been returned.
	ErrLoanOutstanding = errors.New("lending: loan outstanding")
	// ErrForeignLoan is returned by Return when the loan did not originate from this library.
	ErrForeignLoan = errors.New("lending: loan did not originate from this library")
	// ErrAlreadyReturned is returned by Return when called a second time on the same loan.
	ErrAlreadyReturned = errors.New("lending: loan already returned")
)

// Library is a checkout/check-in container keyed by K, holding values of type V.
type Library[K comparable, V any] struct {
	mu    sync.Mutex
	store map[K]*slot[V]
}

type slot[V any] struct {
	value  V
	onLoan bool
}

// New returns an empty Library.
func New[K comparable, V any]() *Library[K, V] {
	return &Library[K, V]{store: make(map[K]*slot[V])}
}

// Insert stores value under key. It fails if key is already present.
func (l *Library[K, V]) Insert(key K, value V) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.store[key]; ok {
		return fmt.Errorf("%w: %v", ErrKeyExists, key)
	}

	l.store[key] = &slot[V]{value: value}

	return nil
}

// Contains reports whether key is present, on loan or not.
func (l *Library[K, V]) Contains(key K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.store[key]

	return ok
}

// Lend checks out the value stored at key. A second Lend of a key whose
// prior loan has not been returned fails with ErrAlreadyLent.
func (l *Library[K, V]) Lend(key K) (*Loan[K, V], error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.store[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}

	if s.onLoan {
		return nil, fmt.Errorf("%w: %v", ErrAlreadyLent, key)
	}

	s.onLoan = true

	loan := &Loan[K, V]{lib: l, key: key, value: s.value}
	armDebugFinalizer(loan)

	return loan, nil
}

// Peek returns the current value at key without checking it out. Safe to
// call while a loan is outstanding; callers must not mutate the result in
// place — use Lend for that.
func (l *Library[K, V]) Peek(key K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.store[key]
	if !ok {
		var zero V
		return zero, false
	}

	return s.value, true
}

// Remove deletes the entry at key. It fails with ErrLoanOutstanding if a
// loan on key has not been returned — the engine relies on this refuse
// variant for Release.
func (l *Library[K, V]) Remove(key K) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.store[key]
	if !ok {
		return fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}

	if s.onLoan {
		return fmt.Errorf("%w: %v", ErrLoanOutstanding, key)
	}

	delete(l.store, key)

	return nil
}

// checkin returns a returned loan's value to the library under its key.
func (l *Library[K, V]) checkin(key K, value V) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.store[key]
	if !ok {
		return fmt.Errorf("%w: %v", ErrForeignLoan, key)
	}

	s.value = value
	s.onLoan = false

	return nil
}

// Loan is a unique, scoped borrow of a value cached under key in lib. It
// must be returned via Return on every exit path; dropping one unreturned
// is a programming error caught in debug builds (see loan_debug.go).
type Loan[K comparable, V any] struct {
	lib      *Library[K, V]
	key      K
	value    V
	returned bool
}

// Value returns the mutable view held by this loan.
func (ln *Loan[K, V]) Value() V {
	return ln.value
}

// Set replaces the mutable view held by this loan, to be written back on Return.
func (ln *Loan[K, V]) Set(v V) {
	ln.value = v
}

// Return checks the loan's value back into its originating library.
func (ln *Loan[K, V]) Return() error {
	if ln.returned {
		return ErrAlreadyReturned
	}

	ln.returned = true
	disarmDebugFinalizer(ln)

	return ln.lib.checkin(ln.key, ln.value)
}
