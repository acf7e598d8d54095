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

package parse

import "fmt"

// MissingField reports that a handler needed a field the record did not
// carry. The event is logged and skipped; the pipeline continues.
type MissingField struct {
	Event string
	Field string
}

func (e *MissingField) Error() string {
	return fmt.Sprintf("parse: event %q missing required field %q", e.Event, e.Field)
}
