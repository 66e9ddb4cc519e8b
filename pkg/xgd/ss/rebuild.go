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
	log "github.com/sirupsen/logrus"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/raw"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

// raw capture geometry
const (
	CaptureSize = 2064
	// the sector starts this far into a capture
	captureHeader = 0x0C
	// entries of the scramble index table
	permutationSize = TableSize
)

var captureIndex = map[string]raw.Field{
	"cprMai":     {0x007, 4},
	"layerbreak": {0x019, 3},
	"sector":     {captureHeader, SectorSize},
}

// CaptureReserved returns the ranges of a raw capture that must be zero for
// variant v. They are the sector's reserved ranges, shifted by the capture
// header, without the last sector byte.
func CaptureReserved(v variant.Variant) []Range {
	l := LayoutFor(v)
	if l == nil {
		return nil
	}
	var ret []Range
	for _, r := range l.Reserved {
		if r.End >= SectorSize {
			continue
		}
		ret = append(ret, Range{r.Start + captureHeader, r.End + captureHeader})
	}
	return ret
}

// descramble rebuilds the range table of work in place, from the scrambled
// table and the index table XORed with key.
func descramble(work *raw.Block, key []byte) error {

	idx := raw.Xor(work.GetSlice("rangesMirror"), key)
	scrambled := work.GetSlice("ranges")

	seen := make([]bool, permutationSize)
	table := make([]byte, TableSize)

	for ix := 0; ix < permutationSize; ix++ {
		p := int(idx[ix])
		if p >= permutationSize || seen[p] {
			return base.NewError(base.StructuralError, base.InvalidPermutation,
				"scramble index %d at position %d is not part of a permutation",
				p, ix)
		}
		seen[p] = true
		table[ix] = scrambled[p]
	}

	if err := work.Set("ranges", table); err != nil {
		return err
	}
	return work.Set("rangesMirror", table)
}

/*
	Rebuild turns a raw 2064 byte capture into a sector. CPR_MAI is moved from
	the capture header into its place in the sector, and the range table is
	descrambled into both of its copies. XGD1 sectors are returned as they are
	after that; XGD2 and XGD3 sectors go through Repair, without the sector
	level reserved byte check, since the capture level check has already been
	done. XGD3 captures always yield XGD3v2 sectors.
*/
func Rebuild(capture []byte) (*Result, error) {

	res := &Result{}

	if len(capture) != CaptureSize {
		return res, base.NewError(base.StructuralError, base.InvalidSize,
			"not a valid raw SS: %d bytes, want %d", len(capture), CaptureSize)
	}

	c := raw.NewBlock(captureIndex, capture)
	marker := c.Get("layerbreak")

	v := MarkerVariant(marker)
	if v == variant.Unknown {
		return res, base.NewError(base.StructuralError, base.UnknownVariant,
			"not a valid SS: bad layerbreak %X", marker)
	}
	if v == variant.XGD3v1 {
		v = variant.XGD3v2
	}

	if v != variant.XGD1 {
		for _, r := range CaptureReserved(v) {
			if !raw.IsZero(capture[r.Start:r.End]) {
				return res, refuse(base.UnsupportedRepair, base.ReservedData,
					"cannot safely rebuild unexpected %s: data in reserved bytes 0x%03X-0x%03X",
					v, r.Start, r.End)
			}
		}
	}

	key := c.Get("cprMai")
	res.Diagnostics.Infof("CPR_MAI key of %X", key)

	l := LayoutFor(v)
	work := raw.NewBlock(l.index, c.Get("sector"))
	if err := work.Set("cprMai", key); err != nil {
		return res, err
	}
	if err := descramble(work, key); err != nil {
		return res, base.Refuse(err)
	}

	d := &Detection{
		Variant:    v,
		Resolved:   true,
		Candidates: []variant.Variant{v},
		Marker:     marker,
		Signature:  variant.SignatureOf(work.GetByte("signature")),
	}
	if !d.Signature.Admits(v) {
		d.Warnings.Warnf("%s but value at 0x4BA is: %d", v,
			work.GetByte("signature"))
	}
	res.Diagnostics.Append(d.Warnings)

	s := &Sector{block: work, layout: l, detection: d}

	log.WithFields(log.Fields{
		"variant": v,
		"cprMai":  work.GetHex("cprMai"),
	}).Debug("capture descrambled")

	if v == variant.XGD1 {
		res.Sector = s
		res.Changed = true
		return res, nil
	}

	rep, err := repair(s, false)
	res.Diagnostics.Append(rep.Diagnostics)
	if err != nil {
		return res, err
	}

	res.Sector = rep.Sector
	res.Form = rep.Form
	res.Changed = true
	return res, nil
}
