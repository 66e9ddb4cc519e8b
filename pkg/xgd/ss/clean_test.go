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
	"testing"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

// buildXGD3v1 returns an XGD3 sector without SSv2 data, angles in primary form.
func buildXGD3v1(t *testing.T) []byte {
	data := buildXGD3(t)
	for ix := 32; ix < 104; ix++ {
		data[ix] = 0
	}
	for ix, a := range testAngles {
		copy(data[0x200+(4+ix)*TableEntrySize+4:], angleBytes(a))
	}
	return data
}

// rawAngles scribbles over every angle field of s.
func rawAngles(t *testing.T, data []byte) []byte {
	s := mustSector(t, data)
	out := s.Bytes()
	for ix, a := range s.Layout().Angles {
		copy(out[a.Primary:], angleBytes(uint16(300+ix)))
		if a.Mirror >= 0 {
			copy(out[a.Mirror:], angleBytes(uint16(17*ix)))
		}
	}
	return out
}

func TestDetectForm(t *testing.T) {

	xgd2 := mustSector(t, buildXGD2(t))
	xgd3 := mustSector(t, buildXGD3(t))
	xgd3v1 := mustSector(t, buildXGD3v1(t))

	tests := []struct {
		name string
		s    *Sector
		want Form
	}{
		{"XGD1", mustSector(t, buildXGD1(t)), FormNone},
		{"XGD2 dual", xgd2, FormDual},
		{"XGD2 primary", xgd2.WithForm(FormPrimary), FormPrimary},
		{"XGD2 raw", mustSector(t, rawAngles(t, buildXGD2(t))), FormRaw},
		{"XGD3v2 dual", xgd3, FormDual},
		{"XGD3v2 primary", xgd3.WithForm(FormPrimary), FormPrimary},
		{"XGD3v1", xgd3v1, FormPrimary},
		{"XGD3v1 raw", mustSector(t, rawAngles(t, buildXGD3v1(t))), FormRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectForm(tt.s); got != tt.want {
				t.Errorf("DetectForm() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCanonicalize(t *testing.T) {

	tests := []struct {
		name  string
		build func(t *testing.T) []byte
		v     variant.Variant
		want  Form
	}{
		{"XGD2", buildXGD2, variant.XGD2, FormDual},
		{"XGD3v2", buildXGD3, variant.XGD3v2, FormDual},
		{"XGD3v1", buildXGD3v1, variant.XGD3v1, FormPrimary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			clean := tt.build(t)
			s := mustSector(t, clean)
			if s.Variant() != tt.v {
				t.Fatalf("Variant = %s, want %s", s.Variant(), tt.v)
			}

			inputs := map[string]*Sector{
				"raw":     mustSector(t, rawAngles(t, clean)),
				"primary": s.WithForm(FormPrimary),
				"dual":    s.WithForm(FormDual),
			}

			for form, in := range inputs {
				once, _ := Canonicalize(in)
				if got := DetectForm(once); got != tt.want {
					t.Errorf("%s: canonical form = %s, want %s", form, got, tt.want)
				}
				if !bytes.Equal(once.Bytes(), clean) {
					t.Errorf("%s: canonical sector differs from clean sector", form)
				}
				twice, prev := Canonicalize(once)
				if prev != tt.want || !twice.Equal(once) {
					t.Errorf("%s: Canonicalize() is not idempotent", form)
				}
			}
		})
	}
}

func TestCanonicalizeXGD1(t *testing.T) {

	data := buildXGD1(t)
	out, form := Canonicalize(mustSector(t, data))
	if form != FormNone {
		t.Errorf("form = %s, want %s", form, FormNone)
	}
	if !bytes.Equal(out.Bytes(), data) {
		t.Errorf("XGD1 sector was modified")
	}
}

func TestCanonicalizeLeavesInputAlone(t *testing.T) {

	data := rawAngles(t, buildXGD2(t))
	s := mustSector(t, data)
	Canonicalize(s)
	if !bytes.Equal(s.Bytes(), data) {
		t.Errorf("Canonicalize() modified its input")
	}
}
