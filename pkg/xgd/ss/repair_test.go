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
	"errors"
	"testing"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
)

func mustRepair(t *testing.T, data []byte) *Result {
	t.Helper()
	res, err := Repair(mustSector(t, data))
	if err != nil {
		t.Fatalf("Repair() failed: %v", err)
	}
	return res
}

func TestRepairCleanSectorUnchanged(t *testing.T) {

	for name, build := range map[string]func(*testing.T) []byte{
		"XGD2":   buildXGD2,
		"XGD3v2": buildXGD3,
	} {
		t.Run(name, func(t *testing.T) {
			data := build(t)
			res := mustRepair(t, data)

			if res.Changed {
				t.Errorf("clean sector reported as changed")
			}
			if !bytes.Equal(res.Sector.Bytes(), data) {
				t.Errorf("repair modified a clean sector")
			}
			if res.Diagnostics.HasErrors() {
				t.Errorf("unexpected errors: %v", res.Diagnostics)
			}

			clean, _ := Canonicalize(mustSector(t, data))
			if !bytes.Equal(clean.Bytes(), data) {
				t.Errorf("canonicalizer modified a clean sector")
			}
		})
	}
}

func TestRepairFixesCorruptedChallengeData(t *testing.T) {

	data := buildXGD2(t)
	want := append([]byte(nil), data...)

	// response 0 answers CID 10, a plain challenge
	off := 0x200
	copy(data[off:off+4], []byte{0, 0, 0, 0})

	res := mustRepair(t, data)
	if !res.Changed {
		t.Fatalf("corrupted sector not changed")
	}

	got := res.Sector.Bytes()
	if !bytes.Equal(got, want) {
		for ix := range got {
			if got[ix] != want[ix] {
				t.Errorf("byte 0x%03X = %02X, want %02X", ix, got[ix], want[ix])
			}
		}
	}

	if !bytes.Equal(got[0x661:0x730], got[0x730:0x7FF]) {
		t.Errorf("mirrored range tables differ after repair")
	}
}

func TestRepairFixesResponseKeepsReservedByte(t *testing.T) {

	data := buildXGD2(t)
	want := append([]byte(nil), data...)

	// response 1, CID 11: break the response, and change the fifth byte
	off := 0x200 + TableEntrySize
	copy(data[off+4:off+8], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	data[off+8] = 0x42
	want[off+8] = 0x42

	res := mustRepair(t, data)
	if got := res.Sector.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("response not fixed as expected\n got %X\nwant %X",
			got[off:off+9], want[off:off+9])
	}
}

func TestRepairAngleChallengeData(t *testing.T) {

	data := buildXGD2(t)
	ch := testChallenges()
	// CID 20 is the first angle challenge, answered in response slot 4
	ch[6].data = [4]byte{}
	reencrypt(t, data, ch)

	res := mustRepair(t, data)
	off := 0x200 + 4*TableEntrySize
	got := res.Sector.Bytes()

	if !bytes.Equal(got[off:off+4], []byte{0, 0, 0, 0}) {
		t.Errorf("angle CD = %X, want zero", got[off:off+4])
	}
	if !bytes.Equal(got[off+4:off+9], data[off+4:off+9]) {
		t.Errorf("angle response changed: %X", got[off+4:off+9])
	}

	found := false
	for _, d := range res.Diagnostics {
		if d.Code == base.ZeroedAngle && d.Severity == base.Warning {
			found = true
		}
	}
	if !found {
		t.Errorf("no zeroed angle warning in %v", res.Diagnostics)
	}
}

func TestRepairMatchesDecryptedTruth(t *testing.T) {

	data := buildXGD3(t)
	for ix := 0; ix < 10; ix++ {
		off := 0x020 + ix*TableEntrySize
		data[off+1] ^= 0x5A
	}

	res := mustRepair(t, data)
	v, err := Validate(res.Sector)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	for _, m := range v.Matches {
		c := m.Unique()
		if c == nil {
			t.Fatalf("CID %02X has no unique match", m.Response.ID)
		}
		if c.Data != m.Response.Data {
			t.Errorf("CID %02X: CD %X, want %X", m.Response.ID, m.Response.Data, c.Data)
		}
	}
	if len(v.Findings) != 0 {
		t.Errorf("repaired sector still has findings: %v", v.Diagnostics())
	}
}

func TestRepairCanonicalizesKreonForm(t *testing.T) {

	data := buildXGD2(t)
	want := append([]byte(nil), data...)
	kreon := mustSector(t, data).WithForm(FormPrimary).Bytes()

	res := mustRepair(t, kreon)
	if res.Form != FormPrimary {
		t.Errorf("input form = %s, want %s", res.Form, FormPrimary)
	}
	if !res.Changed || !bytes.Equal(res.Sector.Bytes(), want) {
		t.Errorf("Kreon form not normalized to dual form")
	}
}

func TestRepairNoMatchingChallengeLeftAlone(t *testing.T) {

	data := buildXGD2(t)
	// point response 9 at an unknown CID in both tables, and break its CD
	data[0x661+9*TableEntrySize+1] = 0x7F
	data[0x730+9*TableEntrySize+1] = 0x7F
	off := 0x200 + 9*TableEntrySize
	data[off] ^= 0xFF

	res := mustRepair(t, data)
	got := res.Sector.Bytes()
	if got[off] != data[off] {
		t.Errorf("unmatched response was modified")
	}
	if res.Diagnostics.Count(base.Warning) != 1 {
		t.Errorf("want one warning, got %v", res.Diagnostics)
	}
}

func TestRepairRefusals(t *testing.T) {

	tests := []struct {
		name   string
		build  func(t *testing.T) []byte
		modify func(t *testing.T, data []byte)
		code   base.Code
		class  base.Class
	}{
		{
			name:  "XGD1",
			build: buildXGD1,
			code:  base.UnsupportedVariant,
			class: base.UnsupportedRepair,
		},
		{
			name:  "XGD3 without SSv2",
			build: buildXGD3,
			modify: func(t *testing.T, data []byte) {
				for ix := 32; ix < 104; ix++ {
					data[ix] = 0
				}
			},
			code:  base.UnsupportedVariant,
			class: base.UnsupportedRepair,
		},
		{
			name:   "no layerbreak",
			build:  buildXGD2,
			modify: func(t *testing.T, data []byte) { data[15] = 0 },
			code:   base.UnresolvedVariant,
			class:  base.UnsupportedRepair,
		},
		{
			name:   "reserved data",
			build:  buildXGD2,
			modify: func(t *testing.T, data []byte) { data[0x410] = 1 },
			code:   base.ReservedData,
			class:  base.UnsupportedRepair,
		},
		{
			name:   "CCRT version",
			build:  buildXGD2,
			modify: func(t *testing.T, data []byte) { data[0x300] = 1 },
			code:   base.UnexpectedValue,
			class:  base.UnsupportedRepair,
		},
		{
			name:   "CCRT count",
			build:  buildXGD2,
			modify: func(t *testing.T, data []byte) { data[0x301] = 20 },
			code:   base.UnexpectedValue,
			class:  base.UnsupportedRepair,
		},
		{
			name:   "value at 0x49E",
			build:  buildXGD2,
			modify: func(t *testing.T, data []byte) { data[0x49E] = 3 },
			code:   base.UnexpectedValue,
			class:  base.UnsupportedRepair,
		},
		{
			name:   "mirror mismatch",
			build:  buildXGD2,
			modify: func(t *testing.T, data []byte) { data[0x730+5] ^= 1 },
			code:   base.MirrorMismatch,
			class:  base.IntegrityWarning,
		},
		{
			name:  "encrypted count",
			build: buildXGD2,
			modify: func(t *testing.T, data []byte) {
				for ix := 0x304 + 240; ix < 0x400; ix++ {
					data[ix] = 0
				}
			},
			code:  base.CountMismatch,
			class: base.UnsupportedRepair,
		},
		{
			name:  "CT01 conflict",
			build: buildXGD2,
			modify: func(t *testing.T, data []byte) {
				ch := testChallenges()
				ch[1].data = [4]byte{0x01, 0x02, 0x03, 0x04}
				reencrypt(t, data, ch)
			},
			code:  base.CT01Conflict,
			class: base.ConflictError,
		},
		{
			name:  "CPR_MAI mismatch",
			build: buildXGD2,
			modify: func(t *testing.T, data []byte) {
				copy(data[0x2D0:], []byte{1, 2, 3, 4})
			},
			code:  base.CprMaiMismatch,
			class: base.UnsupportedRepair,
		},
		{
			name:  "unsupported challenge type",
			build: buildXGD2,
			modify: func(t *testing.T, data []byte) {
				ch := testChallenges()
				ch[20].ct = 0x33
				reencrypt(t, data, ch)
			},
			code:  base.UnsupportedChallengeType,
			class: base.UnsupportedRepair,
		},
		{
			name:  "ambiguous challenge",
			build: buildXGD2,
			modify: func(t *testing.T, data []byte) {
				ch := testChallenges()
				ch[20].id = ch[2].id
				reencrypt(t, data, ch)
			},
			code:  base.AmbiguousChallenge,
			class: base.ConflictError,
		},
		{
			name:  "mismatched types",
			build: buildXGD2,
			modify: func(t *testing.T, data []byte) {
				ch := testChallenges()
				ch[2].ct = 0x14
				reencrypt(t, data, ch)
			},
			code:  base.MismatchedTypes,
			class: base.UnsupportedRepair,
		},
		{
			name:  "invalid challenge angle",
			build: buildXGD2,
			modify: func(t *testing.T, data []byte) {
				ch := testChallenges()
				ch[7].resp[2], ch[7].resp[3] = 0x01, 0x68
				reencrypt(t, data, ch)
			},
			code:  base.InvalidAngle,
			class: base.UnsupportedRepair,
		},
		{
			name:  "invalid response angle",
			build: buildXGD2,
			modify: func(t *testing.T, data []byte) {
				// second angle of response slot 5, 0x0168 = 360
				off := 0x200 + 5*TableEntrySize + 7
				data[off], data[off+1] = 0x68, 0x01
			},
			code:  base.InvalidAngle,
			class: base.UnsupportedRepair,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.build(t)
			if tt.modify != nil {
				tt.modify(t, data)
			}
			orig := append([]byte(nil), data...)

			s := mustSector(t, data)
			res, err := Repair(s)
			if err == nil {
				t.Fatalf("Repair() did not refuse")
			}
			if !base.IsRefused(err) {
				t.Errorf("error is not a refusal: %v", err)
			}
			if !errors.Is(err, &base.Error{Code: tt.code}) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
			if c, _ := base.ClassOf(err); c != tt.class {
				t.Errorf("class = %s, want %s", c, tt.class)
			}
			if res.Sector != nil {
				t.Errorf("refused repair returned a sector")
			}
			if !bytes.Equal(s.Bytes(), orig) {
				t.Errorf("refused repair modified the input")
			}
		})
	}
}

func TestRepairCT01ConflictSentinel(t *testing.T) {
	data := buildXGD2(t)
	ch := testChallenges()
	ch[1].data = [4]byte{9, 9, 9, 9}
	reencrypt(t, data, ch)

	_, err := Repair(mustSector(t, data))
	if !errors.Is(err, base.ErrCT01Conflict) {
		t.Errorf("error = %v, want %v", err, base.ErrCT01Conflict)
	}
}
