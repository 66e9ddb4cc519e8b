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
	"hash/crc32"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/raw"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

//
const (
	FingerprintRaw    = "SS Hash"
	FingerprintRedump = "Redump SS Hash"
	FingerprintFixed  = "Fixed angles SS Hash"
	FingerprintAbgx   = "abgx360 hash"
)

// Fingerprint is a named CRC32 over one form of a sector.
type Fingerprint struct {
	Name string
	CRC  uint32
}

// Masked returns a copy of s in the abgx360 style, with the mask region of
// its layout filled with 0xFF. Layouts without mask return nil.
func (s *Sector) Masked() *Sector {
	m := s.layout.Mask
	if m.Len() == 0 {
		return nil
	}
	ret, _ := s.derive(func(b *raw.Block) error {
		for ix := m.Start; ix < m.End; ix++ {
			b.Data[ix] = 0xFF
		}
		return nil
	})
	return ret
}

// MatchesMask reports whether s already is in abgx360 masked form, meaning
// its angle data has been lost.
func (s *Sector) MatchesMask() bool {
	return s.Equal(s.Masked())
}

//
func (s *Sector) crc() uint32 {
	return crc32.ChecksumIEEE(s.block.Data)
}

/*
	Fingerprints returns the CRC32 fingerprints used to look a sector up in
	external databases: the raw sector, the Redump form, the fixed angle form
	(XGD2 only), and the abgx360 masked form (XGD2 and XGD3v2).
*/
func Fingerprints(s *Sector) []Fingerprint {

	ret := []Fingerprint{{Name: FingerprintRaw, CRC: s.crc()}}

	if len(s.layout.Angles) == 0 {
		return ret
	}

	ret = append(ret, Fingerprint{
		Name: FingerprintRedump,
		CRC:  s.Redump().crc(),
	})

	if s.Variant() == variant.XGD2 {
		ret = append(ret, Fingerprint{
			Name: FingerprintFixed,
			CRC:  s.WithForm(FormDual).crc(),
		})
	}

	if m := s.Masked(); m != nil {
		ret = append(ret, Fingerprint{Name: FingerprintAbgx, CRC: m.crc()})
	}

	return ret
}
