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

func TestNewSectorCopiesInput(t *testing.T) {

	data := buildXGD2(t)
	s := mustSector(t, data)

	data[0x460] ^= 0xFF
	if s.Field("mediaId")[0] != 0xA0 {
		t.Errorf("sector shares its buffer with the caller")
	}

	b := s.Bytes()
	b[0x460] ^= 0xFF
	if s.Field("mediaId")[0] != 0xA0 {
		t.Errorf("Bytes() returned the internal buffer")
	}
}

func TestNewSectorSize(t *testing.T) {

	for _, n := range []int{0, 2047, 2049, CaptureSize} {
		_, err := NewSector(make([]byte, n))
		if !errors.Is(err, base.ErrInvalidSize) {
			t.Errorf("size %d: error = %v, want %v", n, err, base.ErrInvalidSize)
		}
		if c, _ := base.ClassOf(err); c != base.StructuralError {
			t.Errorf("size %d: class = %s, want StructuralError", n, c)
		}
	}
}

func TestSectorCprMai(t *testing.T) {

	if got := mustSector(t, buildXGD2(t)).CprMai(); !bytes.Equal(got, testCprMai) {
		t.Errorf("XGD2 CprMai() = %X, want %X", got, testCprMai)
	}
	if got := mustSector(t, buildXGD3(t)).CprMai(); !bytes.Equal(got, testCprMai) {
		t.Errorf("XGD3v2 CprMai() = %X, want %X", got, testCprMai)
	}
}

func TestReservedViolations(t *testing.T) {

	tests := []struct {
		name  string
		build func(t *testing.T) []byte
		off   int
		want  []Range
	}{
		{name: "XGD1 clean", build: buildXGD1, off: -1},
		{name: "XGD2 clean", build: buildXGD2, off: -1},
		{name: "XGD3 clean", build: buildXGD3, off: -1},
		{name: "XGD2 data", build: buildXGD2, off: 0x150,
			want: []Range{{0x11C, 0x200}}},
		{name: "XGD2 last byte", build: buildXGD2, off: 0x7FF,
			want: []Range{{0x7FF, 0x800}}},
		{name: "XGD3 data", build: buildXGD3, off: 0x0F8,
			want: []Range{{0x0F5, 0x0FF}}},
		{name: "XGD1 data", build: buildXGD1, off: 0x450,
			want: []Range{{0x44B, 0x49F}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.build(t)
			if tt.off >= 0 {
				data[tt.off] = 0x01
			}
			got := mustSector(t, data).ReservedViolations()
			if len(got) != len(tt.want) {
				t.Fatalf("ReservedViolations() = %v, want %v", got, tt.want)
			}
			for ix := range got {
				if got[ix] != tt.want[ix] {
					t.Errorf("ReservedViolations() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMirrorsMatch(t *testing.T) {

	data := buildXGD2(t)
	if !mustSector(t, data).MirrorsMatch() {
		t.Fatalf("clean sector has mismatched mirrors")
	}

	data[0x7FE] ^= 0x01
	if mustSector(t, data).MirrorsMatch() {
		t.Errorf("mirror mismatch not detected")
	}
}
