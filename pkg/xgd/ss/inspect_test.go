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
	"fmt"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/report"
)

func inspect(t *testing.T, data []byte) *report.Report {
	t.Helper()
	rep := report.New("test.bin", ReportKind)
	Inspect(mustSector(t, data), rep)
	return rep
}

func TestInspectClean(t *testing.T) {

	tests := []struct {
		name  string
		build func(t *testing.T) []byte
		facts map[string]string
	}{
		{
			name:  "XGD1",
			build: buildXGD1,
			facts: map[string]string{
				"System":               "Xbox (XGD1)",
				"CPR_MAI Key":          "A1B2C3D4",
				"Encrypted Challenges": "23",
				"Challenge Responses":  "16",
				"Authoring Timestamp":  "2010-01-01 00:00:00.000000",
			},
		},
		{
			name:  "XGD2",
			build: buildXGD2,
			facts: map[string]string{
				"System":               "Xbox 360 (XGD2)",
				"Form":                 "XGD2: Cleaned 0800-style SS",
				"CPR_MAI Key":          "A1B2C3D4",
				"Media ID":             "A0A1A2A3A4A5A6A7A8A9AAAB-ACADAEAF",
				"Encrypted Challenges": "21",
				"Challenge Responses":  "10",
				"LBA Data Start":       "0",
			},
		},
		{
			name:  "XGD3v2",
			build: buildXGD3,
			facts: map[string]string{
				"System":         "Xbox 360 (XGD3)",
				"Form":           "XGD3v2: Cleaned 0800-style SS (Redump hash)",
				"CPR_MAI Key":    "A1B2C3D4",
				"Unknown1 Value": "00000031",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := inspect(t, tt.build(t))

			ds := rep.Diagnostics()
			if n := ds.Count(base.Warning) + ds.Count(base.Failure); n != 0 {
				t.Errorf("clean sector has %d problems: %v", n, ds)
			}

			for key, want := range tt.facts {
				got, ok := rep.Get(key)
				if !ok {
					t.Errorf("no %q fact", key)
				} else if got != want {
					t.Errorf("%s = %q, want %q", key, got, want)
				}
			}
		})
	}
}

func TestInspectFingerprints(t *testing.T) {

	data := buildXGD2(t)
	rep := inspect(t, data)

	got, _ := rep.Get(FingerprintRaw)
	if want := fmt.Sprintf("%08X", crc32.ChecksumIEEE(data)); got != want {
		t.Errorf("%s = %s, want %s", FingerprintRaw, got, want)
	}

	name, ok := rep.Get("abgx360 filename")
	if !ok || !strings.HasPrefix(name, "SS_") || !strings.HasSuffix(name, ".bin") {
		t.Errorf("abgx360 filename = %q", name)
	}
}

func TestInspectWarnings(t *testing.T) {

	tests := []struct {
		name   string
		build  func(t *testing.T) []byte
		modify func(data []byte)
		want   string
	}{
		{
			name:   "XGD3 without SSv2",
			build:  buildXGD3v1,
			modify: func(data []byte) {},
			want:   "XGD3 with SSv1 (bad)",
		},
		{
			name:   "reserved data",
			build:  buildXGD2,
			modify: func(data []byte) { data[0x420] = 1 },
			want:   "Unexpected data in reserved bytes 0x400-0x460",
		},
		{
			name:   "mirror mismatch",
			build:  buildXGD2,
			modify: func(data []byte) { data[0x7FE] ^= 1 },
			want:   "Duplicated SS range does not match",
		},
		{
			name:   "invalid timestamp",
			build:  buildXGD2,
			modify: func(data []byte) { copy(data[0x49F:0x4A7], make([]byte, 8)) },
			want:   "Invalid Authoring FILETIME: 0000000000000000",
		},
		{
			name:   "ccrt version",
			build:  buildXGD2,
			modify: func(data []byte) { data[0x300] = 7 },
			want:   "Unexpected CCRT Version: 0x07",
		},
		{
			name:   "mismatched CD",
			build:  buildXGD2,
			modify: func(data []byte) { data[0x200] ^= 1 },
			want:   "Mismatched CD for CID 10",
		},
		{
			name: "masked",
			build: func(t *testing.T) []byte {
				return mustSector(t, buildXGD2(t)).Masked().Bytes()
			},
			modify: func(data []byte) {},
			want:   "XGD2 SS matches abgx360 internal hash, bad angles",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.build(t)
			tt.modify(data)
			rep := inspect(t, data)

			found := false
			for _, d := range rep.Diagnostics() {
				if d.Severity == base.Warning && d.Message == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("warning %q not in %v", tt.want, rep.Diagnostics())
			}
		})
	}
}

func TestInspectUnresolved(t *testing.T) {

	data := buildXGD2(t)
	data[15] = 0

	rep := inspect(t, data)
	if got, _ := rep.Get("System"); got != "Xbox 360 (XGD2) ?" {
		t.Errorf("System = %q", got)
	}
}
