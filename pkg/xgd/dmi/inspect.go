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

package dmi

import (
	"fmt"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/report"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

// PFIWave names the PFI sector a disc was mastered with.
type PFIWave struct {
	CRC  string
	Name string
}

// known PFI sectors, by the fingerprint stored in the DMI trailer
var pfiWaves = map[string]PFIWave{
	"F56BBBAF9A986A27": {"8FC52135", "XGD1"},
	"E771E4509B321F36": {"E9B8ECFE", "Wave 0 (Experience Disc 1.0)"},
	"724EA8F848083A81": {"739CEAB3", "Wave 1"},
	"7F287181B884AC0E": {"A4CFB59C", "Wave 2"},
	"B92884797F24F5B8": {"2A4CCBD3", "Wave 3"},
	"313DE4782F5E9C87": {"05C6C409", "Wave 4-7"},
	"5075273CA9308344": {"0441D6A5", "Wave 8-9"},
	"6E719E5B66481ECA": {"E18BC70B", "Wave 10-12"},
	"008EDE9B6F8144F6": {"40DCB18F", "Wave 13"},
	"180DD029D791F116": {"23A198FC", "Wave 14-15"},
	"18EB8B92E60935F5": {"AB25DB47", "Wave 16"},
	"6F926559C10CD2DC": {"169EF597", "Wave 17-18"},
	"07E9C4770C916366": {"032CCF37", "Wave 19"},
	"0C0BA0C912F3C56D": {"F48D24B8", "Wave 20"},
	"6DD35C40F7D0DAE1": {"D92C9096", "XGD3 #1 (Halo Reach Beta)"},
	"FA4BE3C4BDD34C19": {"E1647069", "XGD3 #2 (Halo Reach Preview, Kinect Rush)"},
	"26FB858A0FC5ED02": {"26AF4C58", "XGD3 (Common)"},
	"CFE8ADB9B0D59CD1": {"26675ADB", "XGD2 Hybrid (Xbox 360 Trial Disc)"},
}

// LookupPFI returns the PFI sector the trailer fingerprint points to.
func LookupPFI(fingerprint []byte) (PFIWave, bool) {
	w, ok := pfiWaves[fmt.Sprintf("%X", fingerprint)]
	return w, ok
}

// Inspect writes everything decoded from d into rep.
func Inspect(d *DMI, rep *report.Report) {

	if d.System == variant.SignatureXbox {
		rep.Add("System", "%s", variant.XGD1.System())
		rep.Add("XMID", "%s", d.XMID)
	} else {
		rep.Add("System", "Xbox 360 (XGD2/3)")
	}

	switch {
	case !d.TimestampValid:
		rep.Diag(base.Diagnostic{
			Severity: base.Warning,
			Code:     base.InvalidTimestamp,
			Message:  "Invalid DMI FILETIME",
		})
	case d.Timestamp.Hour() == 0 && d.Timestamp.Minute() == 0 &&
		d.Timestamp.Second() == 0 && d.Timestamp.Nanosecond() == 0:
		rep.Add("DMI Date", "%s", d.Timestamp.Format("2006-01-02"))
	default:
		rep.Add("DMI Datetime", "%s", d.Timestamp.Format(base.TimeLayout))
	}

	if d.System == variant.SignatureXbox360 {
		switch d.XorKey {
		case 1:
			rep.Add("XOR Key", "Beta")
		case 2:
			rep.Add("XOR Key", "Retail")
		default:
			rep.Add("XOR Key", "%d", d.XorKey)
		}
		id := fmt.Sprintf("%X", d.MediaID)
		rep.Add("Media ID", "%s-%s", id[:24], id[24:])
		rep.Add("XeMID", "%s", d.XeMID)
	}

	if d.HasTrailer {
		inspectTrailer(d, rep)
	}

	if bad := d.ReservedViolations(); len(bad) > 0 {
		diag := base.Diagnostic{
			Severity: base.Warning,
			Code:     base.ReservedData,
			Message:  "Unexpected data in reserved bytes",
		}
		for _, r := range bad {
			diag.Message += fmt.Sprintf(" 0x%03X-0x%03X", r.Start, r.End)
		}
		rep.Diag(diag)
	} else {
		rep.AddDetail("Reserved Bytes", "all zeroed")
	}
}

//
func inspectTrailer(d *DMI, rep *report.Report) {

	if w, ok := LookupPFI(d.PFI()); ok {
		rep.Add("PFI CRC", "%s", w.CRC)
		rep.AddDetail("PFI Wave", "%s", w.Name)
	} else {
		rep.Add("PFI CRC", "Unknown")
	}

	if d.SignatureValid() {
		rep.AddDetail("Xbox Signature", "Valid")
	} else {
		rep.Diag(base.Diagnostic{
			Severity: base.Warning,
			Code:     base.UnexpectedValue,
			Message:  "Xbox Signature: Invalid",
		})
	}

	rep.AddDetail("Final Checksum", "%X", d.Checksum())
}
