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

//go:build pvmdebug

package lending

import "runtime"

// armDebugFinalizer registers a finalizer that panics if a loan is garbage
// collected without ever being returned. Built only under the pvmdebug tag
// since finalizers add GC overhead unsuitable for production ingest rates.
func armDebugFinalizer[K comparable, V any](ln *Loan[K, V]) {
	runtime.SetFinalizer(ln, func(leaked *Loan[K, V]) {
		if !leaked.returned {
			panic("lending: loan dropped without Return")
		}
	})
}

func disarmDebugFinalizer[K comparable, V any](ln *Loan[K, V]) {
	runtime.SetFinalizer(ln, nil)
}
