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

import "errors"

var (
	// ErrTypeMismatch is returned by Declare when a live UUID's node has a
	// different concrete type than the one requested.
	ErrTypeMismatch = errors.New("pvm: declared type does not match live node's type")
	// ErrTypeChanged is returned by Add when a live UUID's node would be
	// replaced by a node of a different concrete type.
	ErrTypeChanged = errors.New("pvm: add would change concrete type of a live uuid")
	// ErrUnknownName is returned by Unname when the name was never interned.
	ErrUnknownName = errors.New("pvm: unname of a name that was never named")
	// ErrUnknownUUID is returned by any operation referencing a uuid the
	// engine has no live mapping for.
	ErrUnknownUUID = errors.New("pvm: uuid has no live node")
	// ErrNoOpenSession is returned by SinkEnd when objectUUID has no open
	// EditSession, i.e. no SinkStart preceded it (for example the close of a
	// file that was only read).
	ErrNoOpenSession = errors.New("pvm: sinkend on a uuid with no open edit session")
)
