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
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

func TestDetect(t *testing.T) {

	tests := []struct {
		name     string
		build    func(t *testing.T) []byte
		modify   func(data []byte)
		want     variant.Variant
		resolved bool
		warnings int
	}{
		{
			name:     "XGD1",
			build:    buildXGD1,
			want:     variant.XGD1,
			resolved: true,
		},
		{
			name:     "XGD2",
			build:    buildXGD2,
			want:     variant.XGD2,
			resolved: true,
		},
		{
			name:     "XGD3 with SSv2",
			build:    buildXGD3,
			want:     variant.XGD3v2,
			resolved: true,
		},
		{
			name:  "XGD3 without SSv2",
			build: buildXGD3,
			modify: func(data []byte) {
				for ix := 32; ix < 104; ix++ {
					data[ix] = 0
				}
			},
			want:     variant.XGD3v1,
			resolved: true,
		},
		{
			name:     "signature mismatch",
			build:    buildXGD2,
			modify:   func(data []byte) { data[0x4BA] = 0x01 },
			want:     variant.XGD2,
			resolved: true,
			warnings: 1,
		},
		{
			name:     "unknown signature",
			build:    buildXGD2,
			modify:   func(data []byte) { data[0x4BA] = 0x00 },
			want:     variant.XGD2,
			resolved: true,
			warnings: 1,
		},
		{
			name:     "no layerbreak, Xbox 360 signature",
			build:    buildXGD2,
			modify:   func(data []byte) { data[15] = 0x00 },
			want:     variant.XGD2,
			warnings: 1,
		},
		{
			name:     "no layerbreak, Xbox 360 signature, SSv2 data",
			build:    buildXGD3,
			modify:   func(data []byte) { data[15] = 0x00 },
			want:     variant.XGD3v2,
			warnings: 1,
		},
		{
			name:     "no layerbreak, Xbox signature",
			build:    buildXGD1,
			modify:   func(data []byte) { data[15] = 0x00 },
			want:     variant.XGD1,
			warnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.build(t)
			if tt.modify != nil {
				tt.modify(data)
			}
			d, err := Detect(data)
			if err != nil {
				t.Fatalf("Detect() failed: %v", err)
			}
			if d.Variant != tt.want {
				t.Errorf("Variant = %s, want %s", d.Variant, tt.want)
			}
			if d.Resolved != tt.resolved {
				t.Errorf("Resolved = %v, want %v", d.Resolved, tt.resolved)
			}
			if got := d.Warnings.Count(base.Warning); got != tt.warnings {
				t.Errorf("got %d warnings, want %d: %v", got, tt.warnings, d.Warnings)
			}
		})
	}
}

func TestDetectUnresolvedCandidates(t *testing.T) {
	data := buildXGD2(t)
	data[14] = 0x00

	d, err := Detect(data)
	if err != nil {
		t.Fatalf("Detect() failed: %v", err)
	}
	want := []variant.Variant{variant.XGD2, variant.XGD3v1, variant.XGD3v2}
	if len(d.Candidates) != len(want) {
		t.Fatalf("Candidates = %v, want %v", d.Candidates, want)
	}
	for ix := range want {
		if d.Candidates[ix] != want[ix] {
			t.Errorf("Candidates = %v, want %v", d.Candidates, want)
		}
	}
}

func TestDetectFailures(t *testing.T) {

	tests := []struct {
		name   string
		modify func(data []byte) []byte
		want   error
	}{
		{
			name:   "short sector",
			modify: func(data []byte) []byte { return data[:2047] },
			want:   base.ErrInvalidSize,
		},
		{
			name: "unknown signature and layerbreak",
			modify: func(data []byte) []byte {
				data[0x4BA] = 0x07
				data[13] = 0x00
				return data
			},
			want: base.ErrUnknownVariant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Detect(tt.modify(buildXGD2(t)))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Detect() error = %v, want %v", err, tt.want)
			}
			if c, ok := base.ClassOf(err); !ok || c != base.StructuralError {
				t.Errorf("error class = %v, want StructuralError", c)
			}
		})
	}
}

func TestDetectUnknownSignature(t *testing.T) {

	data := buildXGD2(t)
	want := append([]byte(nil), data...)
	data[0x4BA] = 0x07
	want[0x4BA] = 0x07
	copy(data[0x200:0x204], []byte{0, 0, 0, 0})

	d, err := Detect(data)
	if err != nil {
		t.Fatalf("Detect() failed: %v", err)
	}
	if len(d.Warnings) != 1 || d.Warnings[0].Code != base.UnknownSignature {
		t.Fatalf("unexpected warnings: %v", d.Warnings)
	}

	res := mustRepair(t, data)
	if !res.Changed || !bytes.Equal(res.Sector.Bytes(), want) {
		t.Errorf("sector with unknown signature not repaired")
	}
}
