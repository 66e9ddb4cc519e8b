/*
   xgdctl - Xbox security sector tools
   Copyright (c) 2024, the xgdctl authors

   This file is part of xgdctl.

   xgdctl is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   xgdctl is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with xgdctl. If not, see <http://www.gnu.org/licenses/>.
*/

package ss

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/report"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

// ReportKind tags reports produced by Inspect.
const ReportKind = "ss"

/*
	Inspect decodes everything there is to know about s into rep: variant,
	canonical form, fingerprints, the PFI header, keys and timestamps, the
	cross validation of challenges and responses, and the SS LBA ranges.
	Nothing in here fails; problems end up as diagnostics.
*/
func Inspect(s *Sector, rep *report.Report) {

	v := s.Variant()
	d := s.detection

	rep.AddDiagnostics(d.Warnings)

	if d.Resolved {
		rep.Add("System", "%s", v.System())
	} else {
		rep.Add("System", "%s ?", v.System())
	}

	switch v {
	case variant.XGD3v2:
		rep.Infof("XGD3 with SSv2")
	case variant.XGD3v1:
		rep.Warnf("XGD3 with SSv1 (bad)")
	}

	inspectForm(s, rep)
	inspectFingerprints(s, rep)

	DecodePFI(s.block.GetSlice("pfi")).check(v, rep)

	inspectFields(s, rep)
	inspectRanges(s, rep)

	if bad := s.ReservedViolations(); len(bad) > 0 {
		diag := base.Diagnostic{
			Severity: base.Warning,
			Code:     base.ReservedData,
			Message:  "Unexpected data in reserved bytes",
		}
		for _, r := range bad {
			diag.Message += fmt.Sprintf(" 0x%03X-0x%03X", r.Start, r.End)
		}
		rep.Diag(diag)
	}
}

//
func inspectForm(s *Sector, rep *report.Report) {

	v := s.Variant()

	if s.layout.Mask.Len() > 0 && s.MatchesMask() {
		rep.Warnf("%s SS matches abgx360 internal hash, bad angles", v)
	}

	f := DetectForm(s)
	var desc string

	switch f {
	case FormNone:
		return
	case FormRaw:
		desc = "Raw SS"
	case FormPrimary:
		desc = "Cleaned Kreon-style SS"
	case FormDual:
		desc = "Cleaned 0800-style SS"
	}
	if s.IsRedump() {
		desc += " (Redump hash)"
	}

	rep.Add("Form", "%s: %s", v, desc)
}

//
func inspectFingerprints(s *Sector, rep *report.Report) {
	for _, fp := range Fingerprints(s) {
		if fp.Name == FingerprintAbgx {
			rep.Add("abgx360 filename", "SS_%08X.bin", fp.CRC)
		} else {
			rep.Add(fp.Name, "%08X", fp.CRC)
		}
	}
}

//
func guid(data []byte) string {
	if id, err := uuid.FromBytes(data); err == nil {
		return id.String()
	}
	return fmt.Sprintf("%X", data)
}

//
func timestamp(rep *report.Report, name string, data []byte) {
	if t, ok := base.FileTime(data); ok {
		rep.Add(name+" Timestamp", "%s", t.Format(base.TimeLayout))
	} else {
		rep.Diag(base.Diagnostic{
			Severity: base.Warning,
			Code:     base.InvalidTimestamp,
			Message:  fmt.Sprintf("Invalid %s FILETIME: %X", name, data),
		})
	}
}

//
func inspectFields(s *Sector, rep *report.Report) {

	v := s.Variant()
	b := s.block
	l := s.layout

	if v.IsXbox360() {
		if l.Unknown1 != nil && !b.Equal("unknown1", l.Unknown1) {
			rep.Warnf("Unexpected Unknown1 Value: %s", b.GetHex("unknown1"))
		} else if l.Unknown1 == nil {
			rep.Add("Unknown1 Value", "%s", b.GetHex("unknown1"))
		}
		if !b.Equal("unknown2", l.Unknown2) {
			rep.Warnf("Unexpected Unknown2 Value: %s", b.GetHex("unknown2"))
		}
		rep.AddDetail("SHA-1 (Unknown)", "%s", b.GetHex("unknownHash"))
	}

	rep.Add("CPR_MAI Key", "%s", b.GetHex("cprMai"))

	if x := b.GetByte("ccrtVersion"); x != l.CCRTVersion {
		rep.Warnf("Unexpected CCRT Version: 0x%02X", x)
	}
	if x := b.GetByte("ccrtCount"); int(x) != l.ChallengeCount {
		rep.Warnf("Unexpected CCRT Count: 0x%02X", x)
	}

	inspectChallenges(s, rep)

	if v == variant.XGD1 {
		timestamp(rep, "Creation", b.GetSlice("creationTime"))
		rep.AddDetail("Certificate GUID", "%s", guid(b.GetSlice("certGuid")))
		rep.AddDetail("Authoring GUID", "%s", guid(b.GetSlice("authoringGuid")))
	} else {
		id := b.GetHex("mediaId")
		rep.Add("Media ID", "%s-%s", id[:24], id[24:])
		if x := b.GetByte("value49E"); x != value49E {
			rep.Warnf("Unexpected value at 0x49E: 0x%02X", x)
		}
	}

	timestamp(rep, "Authoring", b.GetSlice("authoringTime"))

	if v == variant.XGD1 {
		if b.IsZero("certTime") {
			rep.AddDetail("Certificate Timestamp", "zeroed")
		} else {
			rep.Add("Certificate Timestamp", "%s",
				base.UnixTime(b.GetSlice("certTime")).Format(base.TimeLayout))
		}
	}

	rep.AddDetail("Unknown GUID", "%s", guid(b.GetSlice("unknownGuid")))
	rep.AddDetail("SS SHA-1 A", "%s", b.GetHex("sha1A"))

	timestamp(rep, "Mastering", b.GetSlice("masteringTime"))

	if !b.IsZero("masteringTail") {
		rep.Warnf("Unexpected Mastering Timestamp: %s",
			base.UnixTime(b.GetSlice("masteringTail")).Format(base.TimeLayout))
	}

	switch x := b.GetByte("value5FA"); {
	case v == variant.XGD1 && x == 0x02:
		rep.Infof("XGD1 is late pressing, extra data is in DMI")
	case v == variant.XGD1 && x != 0xFF:
		rep.Warnf("Unexpected value at 0x5FA: 0x%02X", x)
	case v != variant.XGD1 && x != 0x02:
		rep.Warnf("Unexpected value at 0x5FA: 0x%02X", x)
	}

	rep.AddDetail("Mastering GUID", "%s", guid(b.GetSlice("masteringGuid")))
	rep.AddDetail("SS SHA-1 B", "%s", b.GetHex("sha1B"))
	rep.AddDetail("SS Signature B", "%s", b.GetHex("signatureB"))

	switch x := b.GetByte("ssVersion"); {
	case v == variant.XGD1 && x == 0x02:
		rep.Infof("XGD1 with SS Version 2")
	case v == variant.XGD1 && x != 0x01:
		rep.Warnf("Unexpected value at 0x65F: 0x%02X", x)
	case v != variant.XGD1 && x != ssVersion2:
		rep.Warnf("Unexpected value at 0x65F: 0x%02X", x)
	}
}

//
func inspectChallenges(s *Sector, rep *report.Report) {

	val, err := Validate(s)
	if err != nil {
		rep.AddError(err)
		return
	}

	rep.Add("Encrypted Challenges", "%d", val.Challenges.Encrypted)

	ct := &report.Table{Title: "Decrypted Challenges", Detail: true}
	if s.Variant() == variant.XGD1 {
		ct.Header = []string{"CT", "CID", "Value", "Mod", "Response"}
		for _, e := range val.Challenges.Entries {
			ct.AddRow(hex8(e.Type), hex8(e.ID), fmt.Sprintf("%X", e.Data),
				hex8(e.Modifier), fmt.Sprintf("%X", e.Response))
		}
	} else {
		ct.Header = []string{"CT", "CID", "Tol", "Type", "Challenge",
			"Response", "Angle"}
		for _, e := range val.Challenges.Entries {
			angle := ""
			if e.Angle != 0 && e.Angle <= 360 {
				angle = fmt.Sprintf("%d°", e.Angle)
			}
			ct.AddRow(hex8(e.Type), hex8(e.ID), hex8(e.Tolerance),
				hex8(e.DataType), fmt.Sprintf("%X", e.Data),
				fmt.Sprintf("%X", e.Response), angle)
		}
	}
	rep.AddTable(ct)

	rep.Add("Challenge Responses", "%d", len(val.Responses))

	rt := &report.Table{Title: "Challenge Responses", Detail: true,
		Header: []string{"RT", "CID", "Mod", "Data", "Challenge", "Response"}}
	for _, r := range val.Responses {
		rt.AddRow(hex8(r.Type), hex8(r.ID), hex8(r.Modifier),
			fmt.Sprintf("%X", r.Range), fmt.Sprintf("%X", r.Data),
			fmt.Sprintf("%X", r.Response))
	}
	rep.AddTable(rt)

	rep.AddDiagnostics(val.Diagnostics())
}

//
func hex8(b byte) string {
	return fmt.Sprintf("%02X", b)
}

//
func be24(data []byte) int64 {
	return int64(data[0])<<16 | int64(data[1])<<8 | int64(data[2])
}

// inspectRanges reports the SS LBA ranges. XGD1 has eight ranges per layer,
// XGD2 and XGD3 one; the first is on layer 0, the other on layer 1.
func inspectRanges(s *Sector, rep *report.Report) {

	table := s.block.GetSlice("ranges")
	off1 := DecodePFI(s.block.GetSlice("pfi")).layer1Offset()
	xgd1 := s.Variant() == variant.XGD1

	psn := &report.Table{Title: "SS PSN Ranges", Detail: true,
		Header: []string{"#", "Start", "End"}}

	for ix := 0; ix < TableEntries; ix++ {
		e := table[ix*TableEntrySize : (ix+1)*TableEntrySize]
		start, end := be24(e[3:6]), be24(e[6:9])
		n := ix + 1
		psn.AddRow(fmt.Sprintf("%02d", n), fmt.Sprintf("%06X", start),
			fmt.Sprintf("%06X", end))

		key := fmt.Sprintf("SS LBA Range #%02d", n)
		switch {
		case (xgd1 && n < 9) || (!xgd1 && n == 1):
			rep.Add(key, "%d-%d", start-PSNStart, end-PSNStart)
		case (xgd1 && n < 17) || (!xgd1 && n == 4):
			rep.Add(key, "%d-%d", off1-(^start&0xFFFFFF), off1-(^end&0xFFFFFF))
		}
	}
	rep.AddTable(psn)

	if !bytes.Equal(table, s.block.GetSlice("rangesMirror")) {
		rep.Diag(base.Diagnostic{
			Severity: base.Warning,
			Code:     base.MirrorMismatch,
			Message:  "Duplicated SS range does not match",
		})
	}
}
