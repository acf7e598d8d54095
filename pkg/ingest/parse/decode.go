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

import "encoding/json"

// probe distinguishes an AuditEvent from an FBTEvent without fully
// unmarshaling either: only an AuditEvent carries "subjprocuuid" and only
// an FBTEvent carries "so_uuid".
type probe struct {
	SubjProcUUID *string `json:"subjprocuuid"`
	SoUUID       *string `json:"so_uuid"`
}

// Decode unmarshals one line of the input stream into a TraceEvent.
func Decode(line []byte) (TraceEvent, error) {
	var p probe
	if err := json.Unmarshal(line, &p); err != nil {
		return TraceEvent{}, err
	}

	switch {
	case p.SubjProcUUID != nil:
		var ae AuditEvent
		if err := json.Unmarshal(line, &ae); err != nil {
			return TraceEvent{}, err
		}

		return TraceEvent{Audit: &ae}, nil
	case p.SoUUID != nil:
		var fe FBTEvent
		if err := json.Unmarshal(line, &fe); err != nil {
			return TraceEvent{}, err
		}

		return TraceEvent{FBT: &fe}, nil
	default:
		var ae AuditEvent
		if err := json.Unmarshal(line, &ae); err != nil {
			return TraceEvent{}, err
		}

		return TraceEvent{Audit: &ae}, nil
	}
}
