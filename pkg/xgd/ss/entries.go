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
	"encoding/binary"
	"fmt"

	"github.com/go-restruct/restruct"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/raw"
)

// challenge types with a special meaning
const (
	TypeCprMai    byte = 0x01
	TypeSentinel  byte = 0xE0
	sentinelMask  byte = 0xF0
	angleTypeLow  byte = 0x24
	angleTypeHigh byte = 0x25
	maxValidAngle      = 359
)

// response type required for each challenge type
var compatible = map[byte]byte{
	0x15: 0x01,
	0x14: 0x03,
	0x25: 0x05,
	0x24: 0x07,
}

// RequiredResponse returns the response type a challenge type must be
// answered with, if there is such a rule for it.
func RequiredResponse(challengeType byte) (byte, bool) {
	rt, ok := compatible[challengeType]
	return rt, ok
}

// IsSentinel reports whether t is one of the 0xFx placeholder types.
func IsSentinel(t byte) bool {
	return t&sentinelMask == sentinelMask
}

// IsAngle reports whether challenge type t measures an angle.
func IsAngle(t byte) bool {
	return t == angleTypeLow || t == angleTypeHigh
}

/*
	ChallengeEntry is one decrypted record of the challenge table. XGD1 records
	carry a modifier instead of tolerance and data type, and have no angle.
*/
type ChallengeEntry struct {
	Type      byte
	ID        byte
	Tolerance byte
	DataType  byte
	Modifier  byte
	Data      [4]byte
	Response  [4]byte
	Angle     uint16
}

// ResponseEntry is a plaintext response table record, joined with its
// challenge data and response from the response data region.
type ResponseEntry struct {
	Index    int
	Type     byte
	ID       byte
	Modifier byte
	Range    [6]byte
	Data     [4]byte
	Response [5]byte
}

// Angles returns the two little endian angles stored in the response.
func (r *ResponseEntry) Angles() (uint16, uint16) {
	return binary.LittleEndian.Uint16(r.Response[0:2]),
		binary.LittleEndian.Uint16(r.Response[3:5])
}

// on disc records, in big endian

type challengeRecord struct {
	Type      uint8
	ID        uint8
	Tolerance uint8
	DataType  uint8
	Data      [4]byte
	Response  [4]byte
}

type legacyRecord struct {
	Type     uint8
	ID       uint8
	Data     [4]byte
	Modifier uint8
	Response [4]byte
}

type rangeRecord struct {
	Type     uint8
	ID       uint8
	Modifier uint8
	Range    [6]byte
}

type responseRecord struct {
	Data     [4]byte
	Response [5]byte
}

//
func unpackChallenge(data []byte) (ChallengeEntry, error) {

	var ret ChallengeEntry

	switch len(data) {

	case 12:
		var rec challengeRecord
		if err := restruct.Unpack(data, binary.BigEndian, &rec); err != nil {
			return ret, err
		}
		ret = ChallengeEntry{
			Type:      rec.Type,
			ID:        rec.ID,
			Tolerance: rec.Tolerance,
			DataType:  rec.DataType,
			Data:      rec.Data,
			Response:  rec.Response,
			Angle:     binary.BigEndian.Uint16(rec.Response[2:4]),
		}

	case 11:
		var rec legacyRecord
		if err := restruct.Unpack(data, binary.BigEndian, &rec); err != nil {
			return ret, err
		}
		ret = ChallengeEntry{
			Type:     rec.Type,
			ID:       rec.ID,
			Modifier: rec.Modifier,
			Data:     rec.Data,
			Response: rec.Response,
		}

	default:
		return ret, fmt.Errorf("invalid challenge record size: %d", len(data))
	}

	return ret, nil
}

// countRecords counts the non-zero records of the given size in data.
func countRecords(data []byte, size int) int {
	n := 0
	for off := 0; off+size <= len(data); off += size {
		if !raw.IsZero(data[off : off+size]) {
			n++
		}
	}
	return n
}

/*
	Responses returns the plaintext response entries. The number of entries
	is the number of non-zero records in the range table, and the first that
	many records are used. On XGD1, the challenge data and response fields are
	left zero.
*/
func (s *Sector) Responses() ([]ResponseEntry, error) {

	table := s.block.GetSlice("ranges")
	count := countRecords(table, TableEntrySize)
	data := s.block.GetSlice("responseData")

	ret := make([]ResponseEntry, 0, count)

	for ix := 0; ix < count; ix++ {
		off := ix * TableEntrySize

		var rr rangeRecord
		if err := restruct.Unpack(table[off:off+TableEntrySize],
			binary.BigEndian, &rr); err != nil {
			return nil, fmt.Errorf("error decoding response %d: %v", ix, err)
		}

		e := ResponseEntry{
			Index:    ix,
			Type:     rr.Type,
			ID:       rr.ID,
			Modifier: rr.Modifier,
			Range:    rr.Range,
		}

		if len(data) >= off+TableEntrySize {
			var dr responseRecord
			if err := restruct.Unpack(data[off:off+TableEntrySize],
				binary.BigEndian, &dr); err != nil {
				return nil, fmt.Errorf(
					"error decoding response data %d: %v", ix, err)
			}
			e.Data = dr.Data
			e.Response = dr.Response
		}

		ret = append(ret, e)
	}

	return ret, nil
}

// ResponseDataOffset returns where the challenge data of response ix lives,
// or -1 if the layout has no response data.
func (l *Layout) ResponseDataOffset(ix int) int {
	if l.ResponseData < 0 {
		return -1
	}
	return l.ResponseData + ix*TableEntrySize
}
