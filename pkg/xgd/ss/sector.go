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

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/raw"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

/*
	Sector is an immutable, classified security sector. It owns a private copy
	of the bytes it was created from, and every transformation returns a new
	Sector on a fresh buffer.
*/
type Sector struct {
	block     *raw.Block
	layout    *Layout
	detection *Detection
}

// NewSector copies data, detects its variant and returns the sector. Sizes
// other than SectorSize are rejected before anything is read.
func NewSector(data []byte) (*Sector, error) {

	if len(data) != SectorSize {
		return nil, base.NewError(base.StructuralError, base.InvalidSize,
			"not a valid SS: %d bytes, want %d", len(data), SectorSize)
	}

	buf := make([]byte, SectorSize)
	copy(buf, data)

	d, err := Detect(buf)
	if err != nil {
		return nil, err
	}

	return newSector(buf, d), nil
}

//
func newSector(buf []byte, d *Detection) *Sector {
	l := LayoutFor(d.Variant)
	return &Sector{
		block:     raw.NewBlock(l.index, buf),
		layout:    l,
		detection: d,
	}
}

// derive returns a new sector over a copy of this sector's bytes, after
// applying fn to that copy. The variant is not detected again.
func (s *Sector) derive(fn func(b *raw.Block) error) (*Sector, error) {
	b := s.block.Clone()
	if fn != nil {
		if err := fn(b); err != nil {
			return nil, err
		}
	}
	return &Sector{block: b, layout: s.layout, detection: s.detection}, nil
}

//
func (s *Sector) Variant() variant.Variant {
	return s.detection.Variant
}

//
func (s *Sector) Detection() *Detection {
	return s.detection
}

//
func (s *Sector) Layout() *Layout {
	return s.layout
}

// Bytes returns a copy of the sector.
func (s *Sector) Bytes() []byte {
	return append([]byte(nil), s.block.Data...)
}

// Field returns a copy of a named field.
func (s *Sector) Field(key string) []byte {
	return s.block.Get(key)
}

//
func (s *Sector) CprMai() []byte {
	return s.block.Get("cprMai")
}

// Equal reports whether o holds the same bytes.
func (s *Sector) Equal(o *Sector) bool {
	return o != nil && bytes.Equal(s.block.Data, o.block.Data)
}

// ReservedViolations returns the reserved ranges that contain non-zero bytes.
func (s *Sector) ReservedViolations() []Range {
	var ret []Range
	for _, r := range s.layout.Reserved {
		if !raw.IsZero(s.block.Data[r.Start:r.End]) {
			ret = append(ret, r)
		}
	}
	return ret
}

// MirrorsMatch reports whether both stored copies of the range table agree.
func (s *Sector) MirrorsMatch() bool {
	return s.block.Equal("ranges", s.block.GetSlice("rangesMirror"))
}
