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
	"encoding/binary"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/raw"
)

// Form is the canonical angle form a sector is in.
type Form int

const (
	// FormNone means the variant has no canonical angle fields (XGD1)
	FormNone Form = iota
	// FormRaw is anything that is neither of the canonical forms
	FormRaw
	// FormPrimary has the primary fields set and the mirrors zeroed (Kreon)
	FormPrimary
	// FormDual has primary and mirror fields set (0800)
	FormDual
)

//
func (f Form) String() string {

	switch f {

	case FormRaw:
		return "raw"

	case FormPrimary:
		return "Kreon"

	case FormDual:
		return "0800"

	default:
		return "none"
	}
}

//
func angleBytes(v uint16) []byte {
	ret := make([]byte, 2)
	binary.LittleEndian.PutUint16(ret, v)
	return ret
}

//
func fieldEquals(data []byte, off int, want []byte) bool {
	return bytes.Equal(data[off:off+len(want)], want)
}

/*
	DetectForm tells which canonical form the angle fields of s are in. On
	layouts without mirror fields, a sector with canonical primary fields is
	in FormPrimary. Angles in the Redump form of the layout count as canonical.
*/
func DetectForm(s *Sector) Form {

	l := s.layout
	if len(l.Angles) == 0 {
		return FormNone
	}

	f := detectForm(s.block.Data, l.Angles)
	if f == FormRaw && l.RedumpAngles != nil {
		f = detectForm(s.block.Data, l.RedumpAngles)
	}
	return f
}

//
func detectForm(data []byte, angles []AngleField) Form {

	zero := []byte{0, 0}
	primary, dual := true, true

	for _, a := range angles {
		v := angleBytes(a.Value)
		if !fieldEquals(data, a.Primary, v) {
			return FormRaw
		}
		if a.Mirror < 0 {
			dual = false
			continue
		}
		if !fieldEquals(data, a.Mirror, zero) {
			primary = false
		}
		if !fieldEquals(data, a.Mirror, v) {
			dual = false
		}
	}

	switch {
	case dual:
		return FormDual
	case primary:
		return FormPrimary
	default:
		return FormRaw
	}
}

// writeForm sets the angle fields of b to form f. Mirror fields are zeroed
// for FormPrimary. Nothing is written for FormNone and FormRaw.
func writeForm(b *raw.Block, angles []AngleField, f Form) {

	if f != FormPrimary && f != FormDual {
		return
	}

	for _, a := range angles {
		v := angleBytes(a.Value)
		copy(b.Data[a.Primary:], v)
		if a.Mirror < 0 {
			continue
		}
		if f == FormDual {
			copy(b.Data[a.Mirror:], v)
		} else {
			copy(b.Data[a.Mirror:], []byte{0, 0})
		}
	}
}

// WithForm returns a copy of s with its angle fields in form f.
func (s *Sector) WithForm(f Form) *Sector {
	ret, _ := s.derive(func(b *raw.Block) error {
		writeForm(b, s.layout.Angles, f)
		return nil
	})
	return ret
}

// Redump returns a copy of s as Redump keeps it, or nil for layouts without
// angle fields.
func (s *Sector) Redump() *Sector {
	l := s.layout
	if len(l.Angles) == 0 {
		return nil
	}
	ret, _ := s.derive(func(b *raw.Block) error {
		writeForm(b, l.redumpAngles(), l.RedumpForm)
		return nil
	})
	return ret
}

// IsRedump reports whether s already is in the form Redump keeps.
func (s *Sector) IsRedump() bool {
	return s.Equal(s.Redump())
}

// CanonicalForm is the form Canonicalize normalizes s to.
func CanonicalForm(l *Layout) Form {

	switch {

	case len(l.Angles) == 0:
		return FormNone

	case l.HasMirroredAngles():
		return FormDual

	default:
		return FormPrimary
	}
}

/*
	Canonicalize returns a copy of s with its angle fields set to the canonical
	values, and the form s was in before. Layouts with mirror fields are
	normalized to FormDual, whatever form the input was in. XGD1 sectors have
	no angle fields and are returned unchanged. Canonicalize is idempotent.
*/
func Canonicalize(s *Sector) (*Sector, Form) {
	return s.WithForm(CanonicalForm(s.layout)), DetectForm(s)
}
