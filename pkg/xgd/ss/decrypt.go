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

	log "github.com/sirupsen/logrus"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/crypt"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

// ChallengeTable is the decrypted challenge table of a sector. Encrypted is
// the number of non-zero records found in the encrypted table.
type ChallengeTable struct {
	Entries   []ChallengeEntry
	Encrypted int
}

// ByID returns all entries with the given challenge ID.
func (t *ChallengeTable) ByID(id byte) []*ChallengeEntry {
	var ret []*ChallengeEntry
	for ix := range t.Entries {
		if t.Entries[ix].ID == id {
			ret = append(ret, &t.Entries[ix])
		}
	}
	return ret
}

/*
	Challenges decrypts the challenge table. XGD1 tables use the legacy stream
	cipher keyed from the sector itself and always yield all 23 entries. XGD2
	and XGD3 tables use the chained block cipher; only the first Encrypted
	entries are returned. Decryption has no side effects on the sector.
*/
func (s *Sector) Challenges() (*ChallengeTable, error) {

	var dec []byte
	var err error

	enc := s.block.GetSlice("ccrt")
	size := s.layout.ChallengeSize
	ret := &ChallengeTable{Encrypted: countRecords(enc, size)}
	count := ret.Encrypted

	switch s.Variant() {

	case variant.XGD1:
		dec, err = crypt.DecryptLegacy(s.block.GetSlice("hashInput"), enc)
		count = s.layout.ChallengeCount

	case variant.XGD2, variant.XGD3v1, variant.XGD3v2:
		dec, err = crypt.DecryptTable(enc)

	default:
		return nil, fmt.Errorf("cannot decrypt challenges of %s", s.Variant())
	}

	if err != nil {
		return nil, err
	}

	if limit := len(dec) / size; count > limit {
		count = limit
	}

	for ix := 0; ix < count; ix++ {
		e, err := unpackChallenge(dec[ix*size : (ix+1)*size])
		if err != nil {
			return nil, fmt.Errorf("error decoding challenge %d: %v", ix, err)
		}
		ret.Entries = append(ret.Entries, e)
	}

	log.WithFields(log.Fields{
		"variant":   s.Variant(),
		"encrypted": ret.Encrypted,
		"decoded":   len(ret.Entries),
	}).Trace("challenge table decrypted")

	return ret, nil
}
