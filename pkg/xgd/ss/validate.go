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
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

// Finding is a single cross validation result. ID is the challenge ID it
// refers to, or -1.
type Finding struct {
	Err *base.Error
	ID  int
}

// Match pairs a response with the challenges that share its ID.
type Match struct {
	Response   ResponseEntry
	Challenges []*ChallengeEntry
}

// Unique returns the single matching challenge, or nil.
func (m *Match) Unique() *ChallengeEntry {
	if len(m.Challenges) == 1 {
		return m.Challenges[0]
	}
	return nil
}

/*
	Validation is the outcome of cross validating the decrypted challenges of a
	sector against its plaintext responses. Findings are advisory; the repair
	engine decides which of them are fatal.
*/
type Validation struct {
	Challenges *ChallengeTable
	Responses  []ResponseEntry
	Matches    []Match
	CprMai     []byte
	// challenge data of the first CT01 entry, nil if there is none
	CT01     []byte
	Findings []Finding
}

//
func (v *Validation) add(id int, class base.Class, code base.Code,
	format string, args ...interface{}) {
	v.Findings = append(v.Findings,
		Finding{Err: base.NewError(class, code, format, args...), ID: id})
}

// Has reports whether there is a finding with the given code.
func (v *Validation) Has(code base.Code) bool {
	for _, f := range v.Findings {
		if f.Err.Code == code {
			return true
		}
	}
	return false
}

// Diagnostics turns all findings into warnings.
func (v *Validation) Diagnostics() base.Diagnostics {
	var ret base.Diagnostics
	for _, f := range v.Findings {
		ret = append(ret, base.Diagnostic{
			Severity: base.Warning,
			Code:     f.Err.Code,
			Message:  f.Err.Msg,
		})
	}
	return ret
}

//
func Validate(s *Sector) (*Validation, error) {

	ct, err := s.Challenges()
	if err != nil {
		return nil, err
	}
	resp, err := s.Responses()
	if err != nil {
		return nil, err
	}

	v := &Validation{
		Challenges: ct,
		Responses:  resp,
		CprMai:     s.CprMai(),
	}

	if ct.Encrypted != s.layout.ChallengeCount {
		v.add(-1, base.IntegrityWarning, base.CountMismatch,
			"Unexpected encrypted challenge count: %d", ct.Encrypted)
	}

	v.checkCT01()

	if s.Variant() == variant.XGD1 {
		v.checkLegacyTypes()
	}

	for _, r := range resp {
		if IsSentinel(r.Type) {
			continue
		}
		m := Match{Response: r, Challenges: ct.ByID(r.ID)}
		v.Matches = append(v.Matches, m)
		v.checkMatch(&m, s.layout.ResponseData >= 0)
	}

	log.WithFields(log.Fields{
		"variant":   s.Variant(),
		"responses": len(resp),
		"findings":  len(v.Findings),
	}).Debug("sector validated")

	return v, nil
}

// all CT01 entries must carry the same challenge data, equal to CPR_MAI
func (v *Validation) checkCT01() {

	for _, e := range v.Challenges.Entries {
		if e.Type != TypeCprMai {
			continue
		}
		if v.CT01 == nil {
			v.CT01 = append([]byte(nil), e.Data[:]...)
		} else if !bytes.Equal(v.CT01, e.Data[:]) {
			v.add(int(e.ID), base.ConflictError, base.CT01Conflict,
				"CT01 conflict: CID %02X carries %X, first CT01 carries %X",
				e.ID, e.Data, v.CT01)
		}
	}

	if v.CT01 == nil {
		v.add(-1, base.UnsupportedRepair, base.CprMaiMismatch,
			"No valid challenge entries")
	} else if !bytes.Equal(v.CT01, v.CprMai) {
		v.add(-1, base.UnsupportedRepair, base.CprMaiMismatch,
			"CPR_MAI mismatch, CCRT contains: %X", v.CT01)
	}
}

//
func (v *Validation) checkLegacyTypes() {

	for _, e := range v.Challenges.Entries {
		switch e.Type {
		case 0x01, 0x02, 0x03:
		default:
			if !IsSentinel(e.Type) {
				v.add(int(e.ID), base.IntegrityWarning,
					base.UnexpectedChallengeID,
					"Unexpected Challenge ID: type %02X, CID %02X", e.Type, e.ID)
			}
		}
	}

	for _, r := range v.Responses {
		if r.Index >= 16 && r.Type != 0 && !IsSentinel(r.Type) {
			v.add(int(r.ID), base.IntegrityWarning, base.UnexpectedChallengeID,
				"Unexpected Challenge ID in response %d: type %02X",
				r.Index+1, r.Type)
		}
	}
}

//
func (v *Validation) checkMatch(m *Match, withData bool) {

	r := &m.Response
	id := int(r.ID)

	switch len(m.Challenges) {
	case 0:
		v.add(id, base.IntegrityWarning, base.NoMatchingChallenge,
			"No matching challenge for CID %02X", r.ID)
		return
	case 1:
	default:
		v.add(id, base.ConflictError, base.AmbiguousChallenge,
			"More than one matching challenge for CID %02X", r.ID)
		return
	}

	c := m.Challenges[0]

	if rt, ok := RequiredResponse(c.Type); ok && r.Type != rt {
		v.add(id, base.UnsupportedRepair, base.MismatchedTypes,
			"Mismatched CT/RT for CID %02X: %02X/%02X", r.ID, c.Type, r.Type)
	}

	if !withData {
		return
	}

	if IsAngle(c.Type) {
		if c.Data != r.Data {
			v.add(id, base.IntegrityWarning, base.MismatchedData,
				"Mismatched CD for CID %02X", r.ID)
		}
		if c.Angle > maxValidAngle {
			v.add(id, base.UnsupportedRepair, base.InvalidAngle,
				"Invalid angle in challenge for CID %02X: %d", r.ID, c.Angle)
		}
		if a1, a2 := r.Angles(); a1 > maxValidAngle || a2 > maxValidAngle {
			v.add(id, base.UnsupportedRepair, base.InvalidAngle,
				"Invalid angle in response for CID %02X: %d/%d", r.ID, a1, a2)
		}
		return
	}

	if c.Data != r.Data {
		v.add(id, base.IntegrityWarning, base.MismatchedData,
			"Mismatched CD for CID %02X", r.ID)
	}
	if !bytes.Equal(c.Response[:], r.Response[:4]) {
		v.add(id, base.IntegrityWarning, base.MismatchedResponse,
			"Mismatched Response for CID %02X", r.ID)
	}
}
