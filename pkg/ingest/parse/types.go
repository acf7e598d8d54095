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

// Package parse turns line-delimited audit records into calls against the
// provenance engine. Dispatch is a pure function of the record's event tag;
// it holds no state of its own beyond the unparsed-event set.
package parse

// AuditEvent is one POSIX-auditing record. Most fields are optional because
// their presence depends on which event tag populated the record.
type AuditEvent struct {
	Event        string   `json:"event"`
	Time         int64    `json:"time"`
	PID          int32    `json:"pid"`
	PPID         int32    `json:"ppid"`
	TID          int32    `json:"tid"`
	UID          int32    `json:"uid"`
	Exec         string   `json:"exec"`
	RetVal       int32    `json:"retval"`
	SubjProcUUID string   `json:"subjprocuuid"`
	SubjThrUUID  string   `json:"subjthruuid"`
	Host         *string  `json:"host,omitempty"`
	FD           *int32   `json:"fd,omitempty"`
	CPUID        *int32   `json:"cpu_id,omitempty"`
	Cmdline      *string  `json:"cmdline,omitempty"`
	UPath1       *string  `json:"upath1,omitempty"`
	UPath2       *string  `json:"upath2,omitempty"`
	Flags        *int32   `json:"flags,omitempty"`
	FDPath       *string  `json:"fdpath,omitempty"`
	ArgObjUUID1  *string  `json:"arg_objuuid1,omitempty"`
	ArgObjUUID2  *string  `json:"arg_objuuid2,omitempty"`
	RetObjUUID1  *string  `json:"ret_objuuid1,omitempty"`
	RetObjUUID2  *string  `json:"ret_objuuid2,omitempty"`
	RetFD1       *int32   `json:"ret_fd1,omitempty"`
	RetFD2       *int32   `json:"ret_fd2,omitempty"`
	ArgMemFlags  []string `json:"arg_mem_flags,omitempty"`
	ArgShrFlags  []string `json:"arg_sharing_flags,omitempty"`
	Address      *string  `json:"address,omitempty"`
	Port         *uint16  `json:"port,omitempty"`
	ArgUID       *int64   `json:"arg_uid,omitempty"`
	ArgEUID      *int64   `json:"arg_euid,omitempty"`
	ArgRUID      *int64   `json:"arg_ruid,omitempty"`
	ArgSUID      *int64   `json:"arg_suid,omitempty"`
	ArgGID       *int64   `json:"arg_gid,omitempty"`
	ArgEGID      *int64   `json:"arg_egid,omitempty"`
	ArgRGID      *int64   `json:"arg_rgid,omitempty"`
	ArgSGID      *int64   `json:"arg_sgid,omitempty"`
	Login        *string  `json:"login,omitempty"`
	Mode         *uint32  `json:"mode,omitempty"`
}

// FBTEvent is a kernel function-boundary-tracing socket record, carrying no
// PVM-relevant action in the current engine and accepted only so the
// dispatcher does not treat it as unparsed.
type FBTEvent struct {
	Event  string `json:"event"`
	Host   string `json:"host"`
	Time   int64  `json:"time"`
	SoUUID string `json:"so_uuid"`
	LPort  int32  `json:"lport"`
	FPort  int32  `json:"fport"`
	LAddr  string `json:"laddr"`
	FAddr  string `json:"faddr"`
}

// TraceEvent is the union of record shapes accepted on the ingest stream.
// Exactly one of Audit or FBT is non-nil after a successful Decode.
type TraceEvent struct {
	Audit *AuditEvent
	FBT   *FBTEvent
}
