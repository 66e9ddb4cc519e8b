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

	log "github.com/sirupsen/logrus"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/raw"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

// expected header values of a repairable XGD2/XGD3 sector
const (
	ccrtVersion2 = 2
	ssVersion2   = 2
	value49E     = 4
)

/*
	Result is the outcome of a repair or rebuild. On refusal, Sector is nil and
	Diagnostics holds what was found up to that point.
*/
type Result struct {
	Sector *Sector
	// angle form of the input
	Form        Form
	Changed     bool
	Diagnostics base.Diagnostics
}

//
type edit struct {
	index    int
	data     [4]byte
	response []byte
}

//
func refuse(class base.Class, code base.Code, format string,
	args ...interface{}) error {
	return base.Refuse(base.NewError(class, code, format, args...))
}

// recognized reports whether the repair engine knows challenge type t.
func recognized(t byte) bool {
	switch t {
	case 0x01, 0xE0, 0x14, 0x15, 0x24, 0x25:
		return true
	}
	return IsSentinel(t)
}

// passThrough reports whether responses to challenge type t are never
// rewritten.
func passThrough(t byte) bool {
	return t == TypeCprMai || t == TypeSentinel || IsSentinel(t)
}

/*
	Repair checks s against its decrypted challenge table and returns a
	corrected, canonicalized copy. All preconditions are checked before
	anything is modified; if any of them fails, the returned error is a
	RefusedError wrapping the classified cause. XGD1 is not supported.
*/
func Repair(s *Sector) (*Result, error) {
	return repair(s, true)
}

//
func repair(s *Sector, checkReserved bool) (*Result, error) {

	res := &Result{Form: DetectForm(s)}

	if err := checkRepairable(s, checkReserved); err != nil {
		return res, err
	}

	v, err := Validate(s)
	if err != nil {
		return res, base.Refuse(base.NewError(base.StructuralError,
			base.UnexpectedValue, "%v", err))
	}

	edits, err := planEdits(s, v, &res.Diagnostics)
	if err != nil {
		return res, err
	}

	l := s.layout
	canonical := CanonicalForm(l)

	out, err := s.derive(func(b *raw.Block) error {
		for _, e := range edits {
			off := l.ResponseDataOffset(e.index)
			copy(b.Data[off:off+4], e.data[:])
			if e.response != nil {
				copy(b.Data[off+4:], e.response)
			}
		}
		writeForm(b, l.Angles, canonical)
		return nil
	})
	if err != nil {
		return res, err
	}

	if res.Form != canonical {
		res.Diagnostics.Infof("Setting fixed angles")
	}

	res.Sector = out
	res.Changed = !out.Equal(s)
	if !res.Changed {
		res.Diagnostics.Infof("SS is clean, nothing to repair")
	}

	log.WithFields(log.Fields{
		"variant": s.Variant(),
		"edits":   len(edits),
		"changed": res.Changed,
	}).Debug("sector repaired")

	return res, nil
}

// structural gates, checked before the challenge table is even decrypted
func checkRepairable(s *Sector, checkReserved bool) error {

	v := s.Variant()
	switch v {
	case variant.XGD2, variant.XGD3v2:
	case variant.XGD3v1:
		return refuse(base.UnsupportedRepair, base.UnsupportedVariant,
			"cannot repair bad XGD3 SS without SSv2 data")
	default:
		return base.Refuse(base.NewError(base.UnsupportedRepair,
			base.UnsupportedVariant, "cannot repair %s SS", v))
	}

	if !s.detection.Resolved {
		return refuse(base.UnsupportedRepair, base.UnresolvedVariant,
			"cannot repair SS with bad layerbreak, variant is only a guess")
	}

	if checkReserved {
		if bad := s.ReservedViolations(); len(bad) > 0 {
			return refuse(base.UnsupportedRepair, base.ReservedData,
				"cannot safely repair unexpected %s: data in reserved bytes 0x%03X-0x%03X",
				v, bad[0].Start, bad[0].End)
		}
	}

	b := s.block
	if x := b.GetByte("ccrtVersion"); x != ccrtVersion2 {
		return refuse(base.UnsupportedRepair, base.UnexpectedValue,
			"cannot safely repair with unexpected CCRT Version: 0x%02X", x)
	}
	if x := b.GetByte("ccrtCount"); int(x) != s.layout.ChallengeCount {
		return refuse(base.UnsupportedRepair, base.UnexpectedValue,
			"cannot safely repair with unexpected CCRT Count: 0x%02X", x)
	}
	if x := b.GetByte("ssVersion"); x != ssVersion2 {
		return refuse(base.UnsupportedRepair, base.UnexpectedValue,
			"cannot safely repair with unexpected value at 0x65F: 0x%02X", x)
	}
	if x := b.GetByte("value49E"); x != value49E {
		return refuse(base.UnsupportedRepair, base.UnexpectedValue,
			"cannot safely repair with unexpected value at 0x49E: 0x%02X", x)
	}

	if !s.MirrorsMatch() {
		return refuse(base.IntegrityWarning, base.MirrorMismatch,
			"cannot safely repair when duplicated SS range does not match")
	}

	return nil
}

// planEdits works out every change before any is made, so a refusal never
// leaves a partially repaired sector behind.
func planEdits(s *Sector, v *Validation, diag *base.Diagnostics) ([]edit, error) {

	if n := v.Challenges.Encrypted; n != s.layout.ChallengeCount {
		return nil, refuse(base.UnsupportedRepair, base.CountMismatch,
			"cannot safely repair with unexpected encrypted challenge count: %d", n)
	}

	for _, f := range v.Findings {
		if f.Err.Code == base.CT01Conflict {
			return nil, base.Refuse(f.Err)
		}
	}

	if !bytes.Equal(v.CT01, v.CprMai) {
		return nil, refuse(base.UnsupportedRepair, base.CprMaiMismatch,
			"CCRT (%X) does not match expected CPR_MAI (%X), fixing CPR_MAI mismatch is not supported",
			v.CT01, v.CprMai)
	}

	for _, c := range v.Challenges.Entries {
		if !recognized(c.Type) {
			return nil, refuse(base.UnsupportedRepair,
				base.UnsupportedChallengeType,
				"repairing unexpected CT %02X is not supported", c.Type)
		}
	}

	var edits []edit

	for ix := range v.Matches {
		m := &v.Matches[ix]
		r := &m.Response

		switch len(m.Challenges) {
		case 0:
			diag.Warnf("No matching challenge for CID %02X, left as is", r.ID)
			continue
		case 1:
		default:
			return nil, refuse(base.ConflictError, base.AmbiguousChallenge,
				"more than one challenge matches CID %02X", r.ID)
		}

		c := m.Unique()

		if rt, ok := RequiredResponse(c.Type); ok && r.Type != rt {
			return nil, refuse(base.UnsupportedRepair, base.MismatchedTypes,
				"repairing mismatched CT/RT %02X/%02X for CID %02X is not supported",
				c.Type, r.Type, r.ID)
		}

		if passThrough(c.Type) {
			continue
		}

		if IsAngle(c.Type) {
			if c.Angle > maxValidAngle {
				return nil, refuse(base.UnsupportedRepair, base.InvalidAngle,
					"cannot safely repair with invalid angle (>359deg) in challenge for CID %02X",
					r.ID)
			}
			if a1, a2 := r.Angles(); a1 > maxValidAngle || a2 > maxValidAngle {
				return nil, refuse(base.UnsupportedRepair, base.InvalidAngle,
					"cannot safely repair with invalid angle (>359deg) in response for CID %02X",
					r.ID)
			}
			if c.Data != r.Data {
				diag.Infof("Fixing mismatched CD for CID %02X", r.ID)
				edits = append(edits, edit{index: r.Index, data: c.Data})
				if raw.IsZero(c.Data[:]) {
					*diag = append(*diag, base.Diagnostic{
						Severity: base.Warning,
						Code:     base.ZeroedAngle,
						Message: "SS contains zeroed angle, raw angles are useless. " +
							"Clean this SS!",
					})
				}
			}
			continue
		}

		cdBad := c.Data != r.Data
		respBad := !bytes.Equal(c.Response[:], r.Response[:4])

		switch {
		case cdBad && respBad:
			diag.Infof("Fixing mismatched CD and Response for CID %02X", r.ID)
		case cdBad:
			diag.Infof("Fixing mismatched CD for CID %02X", r.ID)
		case respBad:
			diag.Infof("Fixing mismatched Response for CID %02X", r.ID)
		default:
			continue
		}

		edits = append(edits, edit{
			index:    r.Index,
			data:     c.Data,
			response: append([]byte(nil), c.Response[:]...),
		})
	}

	return edits, nil
}
