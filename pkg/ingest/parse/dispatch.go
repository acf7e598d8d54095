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

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/carverauto/pvm/pkg/pvm"
)

// Dispatch applies one decoded record against eng. Unknown event tags are
// recorded in unparsed rather than treated as an error. FBT records carry no
// action in the current engine and are accepted silently.
func Dispatch(eng *pvm.Engine, tr TraceEvent, unparsed map[string]struct{}) error {
	if tr.Audit == nil {
		return nil
	}

	ae := tr.Audit

	subjUUID, err := pvm.ParseUUID(ae.SubjProcUUID)
	if err != nil {
		return fmt.Errorf("parse: bad subjprocuuid: %w", err)
	}

	ctx := eng.NextContext()

	meta := map[string]string{
		"cmdline": ae.Exec,
		"pid":     strconv.Itoa(int(ae.PID)),
	}

	if _, err := eng.Declare(pvm.TypeProcess, pvm.Actor, subjUUID, ctx, meta); err != nil {
		return err
	}

	switch ae.Event {
	case "audit:event:aue_accept:":
		return posixAccept(eng, ae, ctx)
	case "audit:event:aue_bind:":
		return posixBind(eng, ae, ctx)
	case "audit:event:aue_chdir:", "audit:event:aue_fchdir:":
		return posixChdir(eng, ae, ctx)
	case "audit:event:aue_chmod:", "audit:event:aue_fchmodat:":
		return posixChmod(eng, ae, subjUUID, ctx)
	case "audit:event:aue_chown:":
		return posixChown(eng, ae, subjUUID, ctx)
	case "audit:event:aue_close:":
		return posixClose(eng, ae, subjUUID, ctx)
	case "audit:event:aue_connect:":
		return posixConnect(eng, ae, ctx)
	case "audit:event:aue_execve:":
		return posixExec(eng, ae, subjUUID, ctx)
	case "audit:event:aue_exit:":
		return eng.Release(subjUUID)
	case "audit:event:aue_fork:", "audit:event:aue_pdfork:", "audit:event:aue_vfork:":
		return posixFork(eng, ae, subjUUID, ctx)
	case "audit:event:aue_fchmod:":
		return posixFchmod(eng, ae, subjUUID, ctx)
	case "audit:event:aue_fchown:":
		return posixFchown(eng, ae, subjUUID, ctx)
	case "audit:event:aue_link:":
		return posixLink(eng, ae, ctx)
	case "audit:event:aue_listen:":
		return posixListen(eng, ae, ctx)
	case "audit:event:aue_mmap:":
		return posixMmap(eng, ae, subjUUID, ctx)
	case "audit:event:aue_open_rwtc:", "audit:event:aue_openat_rwtc:":
		return posixOpen(eng, ae, ctx)
	case "audit:event:aue_pipe:":
		return posixPipe(eng, ae, ctx)
	case "audit:event:aue_posix_openpt:":
		return posixOpenpt(eng, ae, ctx)
	case "audit:event:aue_read:", "audit:event:aue_pread:":
		return posixRead(eng, ae, subjUUID, ctx)
	case "audit:event:aue_recvmsg:", "audit:event:aue_recvfrom:":
		return posixRecv(eng, ae, subjUUID, ctx)
	case "audit:event:aue_rename:":
		return posixRename(eng, ae, ctx)
	case "audit:event:aue_sendmsg:", "audit:event:aue_sendto:":
		return posixSend(eng, ae, subjUUID, ctx)
	case "audit:event:aue_setegid:":
		return eng.Meta(subjUUID, "egid", strconv.FormatInt(orZero(ae.ArgEGID), 10), ctx)
	case "audit:event:aue_seteuid:":
		return eng.Meta(subjUUID, "euid", strconv.FormatInt(orZero(ae.ArgEUID), 10), ctx)
	case "audit:event:aue_setlogin:":
		return posixSetlogin(eng, ae, subjUUID, ctx)
	case "audit:event:aue_setgid:":
		return posixSetgid(eng, ae, subjUUID, ctx)
	case "audit:event:aue_setregid:":
		return posixSetregid(eng, ae, subjUUID, ctx)
	case "audit:event:aue_setresgid:":
		return posixSetresgid(eng, ae, subjUUID, ctx)
	case "audit:event:aue_setresuid:":
		return posixSetresuid(eng, ae, subjUUID, ctx)
	case "audit:event:aue_setreuid:":
		return posixSetreuid(eng, ae, subjUUID, ctx)
	case "audit:event:aue_setuid:":
		return posixSetuid(eng, ae, subjUUID, ctx)
	case "audit:event:aue_socket:":
		return posixSocket(eng, ae, ctx)
	case "audit:event:aue_socketpair:":
		return posixSocketpair(eng, ae, ctx)
	case "audit:event:aue_unlink:":
		return posixUnlink(eng, ae, ctx)
	case "audit:event:aue_write:", "audit:event:aue_pwrite:", "audit:event:aue_writev:":
		return posixWrite(eng, ae, subjUUID, ctx)
	case "audit:event:aue_dup2:":
		return nil
	default:
		unparsed[ae.Event] = struct{}{}
		return nil
	}
}

func orZero(p *int64) int64 {
	if p == nil {
		return 0
	}

	return *p
}

func clampBytes(v int32) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}

func required(event, field string, p *string) (string, error) {
	if p == nil {
		return "", &MissingField{Event: event, Field: field}
	}

	return *p, nil
}

func requiredUUID(event, field string, p *string) (pvm.UUID, error) {
	s, err := required(event, field, p)
	if err != nil {
		return pvm.UUID{}, err
	}

	return pvm.ParseUUID(s)
}

func sockName(ae *AuditEvent) (pvm.Name, bool) {
	if ae.UPath1 != nil {
		return pvm.PathName(*ae.UPath1), true
	}

	if ae.Port != nil {
		addr := ""
		if ae.Address != nil {
			addr = *ae.Address
		}

		return pvm.NetName(addr, *ae.Port), true
	}

	return pvm.Name{}, false
}

func requiredSockName(ae *AuditEvent) (pvm.Name, error) {
	if n, ok := sockName(ae); ok {
		return n, nil
	}

	return pvm.Name{}, &MissingField{Event: ae.Event, Field: "upath1, port"}
}

// nameIfKnown interns fdpath as objUUID's name unless it is the sentinel
// "<unknown>" the kernel tracer emits when it could not resolve a path.
func nameIfKnown(eng *pvm.Engine, objUUID pvm.UUID, fdpath *string, ctx pvm.ID, call string) error {
	if fdpath == nil || *fdpath == "<unknown>" {
		return nil
	}

	return eng.Name(objUUID, pvm.PathName(*fdpath), ctx, call)
}

func posixExec(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	cmdline, err := required(ae.Event, "cmdline", ae.Cmdline)
	if err != nil {
		return err
	}

	binUUID, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	binName, err := required(ae.Event, "upath1", ae.UPath1)
	if err != nil {
		return err
	}

	ldUUID, err := requiredUUID(ae.Event, "arg_objuuid2", ae.ArgObjUUID2)
	if err != nil {
		return err
	}

	ldName, err := required(ae.Event, "upath2", ae.UPath2)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, binUUID, ctx, nil); err != nil {
		return err
	}

	if err := eng.Name(binUUID, pvm.PathName(binName), ctx, ae.Event); err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, ldUUID, ctx, nil); err != nil {
		return err
	}

	if err := eng.Name(ldUUID, pvm.PathName(ldName), ctx, ae.Event); err != nil {
		return err
	}

	if err := eng.Meta(subjUUID, "cmdline", cmdline, ctx); err != nil {
		return err
	}

	if err := eng.Source(subjUUID, binUUID, ae.Event); err != nil {
		return err
	}

	return eng.Source(subjUUID, ldUUID, ae.Event)
}

func posixFork(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	childUUID, err := requiredUUID(ae.Event, "ret_objuuid1", ae.RetObjUUID1)
	if err != nil {
		return err
	}

	parentMeta, err := eng.MetaSnapshot(subjUUID, ctx)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeProcess, pvm.Actor, childUUID, ctx, nil); err != nil {
		return err
	}

	if err := eng.MergeMeta(childUUID, parentMeta); err != nil {
		return err
	}

	if err := eng.Meta(childUUID, "pid", strconv.Itoa(int(ae.RetVal)), ctx); err != nil {
		return err
	}

	return eng.Source(childUUID, subjUUID, ae.Event)
}

func posixOpen(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	if ae.RetObjUUID1 == nil {
		return nil
	}

	fuuid, err := pvm.ParseUUID(*ae.RetObjUUID1)
	if err != nil {
		return err
	}

	fname, err := required(ae.Event, "upath1", ae.UPath1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, fuuid, ctx, nil); err != nil {
		return err
	}

	return eng.Name(fuuid, pvm.PathName(fname), ctx, ae.Event)
}

func posixRead(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	fuuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, fuuid, ctx, nil); err != nil {
		return err
	}

	if err := nameIfKnown(eng, fuuid, ae.FDPath, ctx, ae.Event); err != nil {
		return err
	}

	return eng.SourceNBytes(subjUUID, fuuid, ae.Event, clampBytes(ae.RetVal))
}

func posixWrite(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	fuuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, fuuid, ctx, nil); err != nil {
		return err
	}

	if err := nameIfKnown(eng, fuuid, ae.FDPath, ctx, ae.Event); err != nil {
		return err
	}

	return eng.SinkStartNBytes(subjUUID, fuuid, ctx, ae.Event, clampBytes(ae.RetVal))
}

func posixClose(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	if ae.ArgObjUUID1 == nil {
		return nil
	}

	fuuid, err := pvm.ParseUUID(*ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, fuuid, ctx, nil); err != nil {
		return err
	}

	// close follows every open, whether or not the fd was ever written; a
	// file that was only read has no open edit session to end.
	if err := eng.SinkEnd(subjUUID, fuuid, ctx); err != nil && !errors.Is(err, pvm.ErrNoOpenSession) {
		return err
	}

	return nil
}

func posixSocket(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	suuid, err := requiredUUID(ae.Event, "ret_objuuid1", ae.RetObjUUID1)
	if err != nil {
		return err
	}

	_, err = eng.Declare(pvm.TypeSocket, pvm.Conduit, suuid, ctx, nil)

	return err
}

func posixListen(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	suuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	_, err = eng.Declare(pvm.TypeSocket, pvm.Conduit, suuid, ctx, nil)

	return err
}

func posixBind(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	suuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeSocket, pvm.Conduit, suuid, ctx, nil); err != nil {
		return err
	}

	name, err := requiredSockName(ae)
	if err != nil {
		return err
	}

	return eng.Name(suuid, name, ctx, ae.Event)
}

func posixAccept(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	luuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	ruuid, err := requiredUUID(ae.Event, "ret_objuuid1", ae.RetObjUUID1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeSocket, pvm.Conduit, luuid, ctx, nil); err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeSocket, pvm.Conduit, ruuid, ctx, nil); err != nil {
		return err
	}

	name, err := requiredSockName(ae)
	if err != nil {
		return err
	}

	return eng.Name(ruuid, name, ctx, ae.Event)
}

func posixConnect(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	suuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeSocket, pvm.Conduit, suuid, ctx, nil); err != nil {
		return err
	}

	name, err := requiredSockName(ae)
	if err != nil {
		return err
	}

	return eng.Name(suuid, name, ctx, ae.Event)
}

func posixMmap(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	fuuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, fuuid, ctx, nil); err != nil {
		return err
	}

	if err := nameIfKnown(eng, fuuid, ae.FDPath, ctx, ae.Event); err != nil {
		return err
	}

	hasFlag := func(flags []string, want string) bool {
		for _, f := range flags {
			if f == want {
				return true
			}
		}

		return false
	}

	if ae.ArgMemFlags != nil {
		writable := hasFlag(ae.ArgMemFlags, "PROT_WRITE")
		private := ae.ArgShrFlags != nil && hasFlag(ae.ArgShrFlags, "MAP_PRIVATE")

		if writable && !private {
			if err := eng.SinkStart(subjUUID, fuuid, ctx, ae.Event); err != nil {
				return err
			}
		}

		if hasFlag(ae.ArgMemFlags, "PROT_READ") {
			if err := eng.Source(subjUUID, fuuid, ae.Event); err != nil {
				return err
			}
		}
	}

	return nil
}

func posixSocketpair(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	u1, err := requiredUUID(ae.Event, "ret_objuuid1", ae.RetObjUUID1)
	if err != nil {
		return err
	}

	u2, err := requiredUUID(ae.Event, "ret_objuuid2", ae.RetObjUUID2)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeSocket, pvm.Conduit, u1, ctx, nil); err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeSocket, pvm.Conduit, u2, ctx, nil); err != nil {
		return err
	}

	return eng.Connect(u1, u2, ae.Event)
}

func posixPipe(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	u1, err := requiredUUID(ae.Event, "ret_objuuid1", ae.RetObjUUID1)
	if err != nil {
		return err
	}

	u2, err := requiredUUID(ae.Event, "ret_objuuid2", ae.RetObjUUID2)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypePipe, pvm.Conduit, u1, ctx, nil); err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypePipe, pvm.Conduit, u2, ctx, nil); err != nil {
		return err
	}

	return eng.Connect(u1, u2, ae.Event)
}

func posixSend(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	suuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeSocket, pvm.Conduit, suuid, ctx, nil); err != nil {
		return err
	}

	if n, ok := sockName(ae); ok {
		if err := eng.Name(suuid, n, ctx, ae.Event); err != nil {
			return err
		}
	}

	return eng.SinkStartNBytes(subjUUID, suuid, ctx, ae.Event, clampBytes(ae.RetVal))
}

func posixRecv(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	suuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeSocket, pvm.Conduit, suuid, ctx, nil); err != nil {
		return err
	}

	if n, ok := sockName(ae); ok {
		if err := eng.Name(suuid, n, ctx, ae.Event); err != nil {
			return err
		}
	}

	return eng.SourceNBytes(subjUUID, suuid, ae.Event, clampBytes(ae.RetVal))
}

func posixChdir(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	duuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, duuid, ctx, nil); err != nil {
		return err
	}

	return nameIfKnown(eng, duuid, ae.UPath1, ctx, ae.Event)
}

func posixChmod(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	fuuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	fpath, err := required(ae.Event, "upath1", ae.UPath1)
	if err != nil {
		return err
	}

	mode, err := requiredMode(ae)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, fuuid, ctx, nil); err != nil {
		return err
	}

	if err := eng.Meta(fuuid, "mode", fmt.Sprintf("%o", mode), ctx); err != nil {
		return err
	}

	if err := eng.Name(fuuid, pvm.PathName(fpath), ctx, ae.Event); err != nil {
		return err
	}

	return eng.Sink(subjUUID, fuuid, ctx, ae.Event)
}

func posixFchmod(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	fuuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	mode, err := requiredMode(ae)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, fuuid, ctx, nil); err != nil {
		return err
	}

	if err := eng.Meta(fuuid, "mode", fmt.Sprintf("%o", mode), ctx); err != nil {
		return err
	}

	return eng.SinkStart(subjUUID, fuuid, ctx, ae.Event)
}

func requiredMode(ae *AuditEvent) (uint32, error) {
	if ae.Mode == nil {
		return 0, &MissingField{Event: ae.Event, Field: "mode"}
	}

	return *ae.Mode, nil
}

func posixChown(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	fuuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	fpath, err := required(ae.Event, "upath1", ae.UPath1)
	if err != nil {
		return err
	}

	if ae.ArgUID == nil {
		return &MissingField{Event: ae.Event, Field: "arg_uid"}
	}

	if ae.ArgGID == nil {
		return &MissingField{Event: ae.Event, Field: "arg_gid"}
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, fuuid, ctx, nil); err != nil {
		return err
	}

	if err := eng.Meta(fuuid, "owner_uid", strconv.FormatInt(*ae.ArgUID, 10), ctx); err != nil {
		return err
	}

	if err := eng.Meta(fuuid, "owner_gid", strconv.FormatInt(*ae.ArgGID, 10), ctx); err != nil {
		return err
	}

	if err := eng.Name(fuuid, pvm.PathName(fpath), ctx, ae.Event); err != nil {
		return err
	}

	return eng.Sink(subjUUID, fuuid, ctx, ae.Event)
}

func posixFchown(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	fuuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	if ae.ArgUID == nil {
		return &MissingField{Event: ae.Event, Field: "arg_uid"}
	}

	if ae.ArgGID == nil {
		return &MissingField{Event: ae.Event, Field: "arg_gid"}
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, fuuid, ctx, nil); err != nil {
		return err
	}

	if err := eng.Meta(fuuid, "owner_uid", strconv.FormatInt(*ae.ArgUID, 10), ctx); err != nil {
		return err
	}

	if err := eng.Meta(fuuid, "owner_gid", strconv.FormatInt(*ae.ArgGID, 10), ctx); err != nil {
		return err
	}

	return eng.SinkStart(subjUUID, fuuid, ctx, ae.Event)
}

func posixOpenpt(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	ttyuuid, err := requiredUUID(ae.Event, "ret_objuuid1", ae.RetObjUUID1)
	if err != nil {
		return err
	}

	_, err = eng.Declare(pvm.TypePtty, pvm.Conduit, ttyuuid, ctx, nil)

	return err
}

func posixLink(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	fuuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	upath1, err := required(ae.Event, "upath1", ae.UPath1)
	if err != nil {
		return err
	}

	upath2, err := required(ae.Event, "upath2", ae.UPath2)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, fuuid, ctx, nil); err != nil {
		return err
	}

	if err := eng.Name(fuuid, pvm.PathName(upath1), ctx, ae.Event); err != nil {
		return err
	}

	return eng.Name(fuuid, pvm.PathName(upath2), ctx, ae.Event)
}

func posixRename(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	srcUUID, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	src, err := required(ae.Event, "upath1", ae.UPath1)
	if err != nil {
		return err
	}

	dst, err := required(ae.Event, "upath2", ae.UPath2)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, srcUUID, ctx, nil); err != nil {
		return err
	}

	if err := eng.Unname(srcUUID, pvm.PathName(src), ctx, ae.Event); err != nil {
		return err
	}

	if ae.ArgObjUUID2 != nil {
		overwrittenUUID, err := pvm.ParseUUID(*ae.ArgObjUUID2)
		if err != nil {
			return err
		}

		if _, err := eng.Declare(pvm.TypeFile, pvm.Store, overwrittenUUID, ctx, nil); err != nil {
			return err
		}

		if err := eng.Unname(overwrittenUUID, pvm.PathName(dst), ctx, ae.Event); err != nil {
			return err
		}
	}

	return eng.Name(srcUUID, pvm.PathName(dst), ctx, ae.Event)
}

func posixUnlink(eng *pvm.Engine, ae *AuditEvent, ctx pvm.ID) error {
	fuuid, err := requiredUUID(ae.Event, "arg_objuuid1", ae.ArgObjUUID1)
	if err != nil {
		return err
	}

	upath1, err := required(ae.Event, "upath1", ae.UPath1)
	if err != nil {
		return err
	}

	if _, err := eng.Declare(pvm.TypeFile, pvm.Store, fuuid, ctx, nil); err != nil {
		return err
	}

	return eng.Unname(fuuid, pvm.PathName(upath1), ctx, ae.Event)
}

func posixSetuid(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	uid, err := required(ae.Event, "arg_uid", strPtr(ae.ArgUID))
	if err != nil {
		return err
	}

	if err := eng.Meta(subjUUID, "euid", uid, ctx); err != nil {
		return err
	}

	if err := eng.Meta(subjUUID, "ruid", uid, ctx); err != nil {
		return err
	}

	return eng.Meta(subjUUID, "suid", uid, ctx)
}

func strPtr(p *int64) *string {
	if p == nil {
		return nil
	}

	s := strconv.FormatInt(*p, 10)

	return &s
}

func posixSetgid(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	gid, err := required(ae.Event, "arg_gid", strPtr(ae.ArgGID))
	if err != nil {
		return err
	}

	if err := eng.Meta(subjUUID, "egid", gid, ctx); err != nil {
		return err
	}

	if err := eng.Meta(subjUUID, "rgid", gid, ctx); err != nil {
		return err
	}

	return eng.Meta(subjUUID, "sgid", gid, ctx)
}

func posixSetreuid(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	if ae.ArgRUID != nil && *ae.ArgRUID != -1 {
		if err := eng.Meta(subjUUID, "ruid", strconv.FormatInt(*ae.ArgRUID, 10), ctx); err != nil {
			return err
		}
	}

	if ae.ArgEUID != nil && *ae.ArgEUID != -1 {
		if err := eng.Meta(subjUUID, "euid", strconv.FormatInt(*ae.ArgEUID, 10), ctx); err != nil {
			return err
		}
	}

	return nil
}

func posixSetresuid(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	if err := posixSetreuid(eng, ae, subjUUID, ctx); err != nil {
		return err
	}

	if ae.ArgSUID != nil && *ae.ArgSUID != -1 {
		return eng.Meta(subjUUID, "suid", strconv.FormatInt(*ae.ArgSUID, 10), ctx)
	}

	return nil
}

func posixSetregid(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	if ae.ArgRGID != nil && *ae.ArgRGID != -1 {
		if err := eng.Meta(subjUUID, "rgid", strconv.FormatInt(*ae.ArgRGID, 10), ctx); err != nil {
			return err
		}
	}

	if ae.ArgEGID != nil && *ae.ArgEGID != -1 {
		if err := eng.Meta(subjUUID, "egid", strconv.FormatInt(*ae.ArgEGID, 10), ctx); err != nil {
			return err
		}
	}

	return nil
}

func posixSetresgid(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	if err := posixSetregid(eng, ae, subjUUID, ctx); err != nil {
		return err
	}

	if ae.ArgSGID != nil && *ae.ArgSGID != -1 {
		return eng.Meta(subjUUID, "sgid", strconv.FormatInt(*ae.ArgSGID, 10), ctx)
	}

	return nil
}

func posixSetlogin(eng *pvm.Engine, ae *AuditEvent, subjUUID pvm.UUID, ctx pvm.ID) error {
	login, err := required(ae.Event, "login", ae.Login)
	if err != nil {
		return err
	}

	return eng.Meta(subjUUID, "login_name", login, ctx)
}
