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
	"testing"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/crypt"
)

var testCprMai = []byte{0xA1, 0xB2, 0xC3, 0xD4}

// 2010-01-01 00:00:00 UTC
const testFileTime = uint64(129067776000000000)

type testChallenge struct {
	ct   byte
	id   byte
	data [4]byte
	resp [4]byte
}

type testResponse struct {
	rt   byte
	id   byte
	data [4]byte
	resp [5]byte
}

var testAngles = []uint16{1, 91, 181, 271}

// testChallenges is a plausible XGD2/XGD3 challenge table: two CT01
// entries, six plain challenges, four angle challenges and nine sentinels.
func testChallenges() []testChallenge {

	var ret []testChallenge
	cpr := [4]byte{testCprMai[0], testCprMai[1], testCprMai[2], testCprMai[3]}

	ret = append(ret,
		testChallenge{ct: 0x01, id: 0x01, data: cpr},
		testChallenge{ct: 0x01, id: 0x02, data: cpr})

	for ix, ct := range []byte{0x15, 0x14, 0x15, 0x14} {
		b := byte(ix)
		ret = append(ret, testChallenge{ct: ct, id: 0x10 + b,
			data: [4]byte{0x10 + b, 0x22, 0x33, 0x44},
			resp: [4]byte{0x50 + b, 0x66, 0x77, 0x88}})
	}

	for ix, ct := range []byte{0x24, 0x25, 0x24, 0x25} {
		b := byte(ix)
		c := testChallenge{ct: ct, id: 0x20 + b,
			data: [4]byte{0x90 + b, 0xAA, 0xBB, 0xCC},
			resp: [4]byte{0x09, 0x00}}
		binary.BigEndian.PutUint16(c.resp[2:], testAngles[ix])
		ret = append(ret, c)
	}

	for ix, ct := range []byte{0x15, 0x14} {
		b := byte(ix)
		ret = append(ret, testChallenge{ct: ct, id: 0x14 + b,
			data: [4]byte{0x60 + b, 0x61, 0x62, 0x63},
			resp: [4]byte{0x70 + b, 0x71, 0x72, 0x73}})
	}

	for ix := 0; ix < 9; ix++ {
		b := byte(ix)
		ret = append(ret, testChallenge{ct: 0xE0, id: 0x30 + b,
			data: [4]byte{0xE0, b, 0, 1}})
	}

	return ret
}

// testResponses answers the plain and angle challenges. The angle responses
// sit in slots 4 to 7, where the canonical angle fields are.
func testResponses(ch []testChallenge) []testResponse {

	rt := map[byte]byte{0x15: 0x01, 0x14: 0x03, 0x25: 0x05, 0x24: 0x07}
	var ret []testResponse

	for _, ix := range []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11} {
		c := ch[ix]
		r := testResponse{rt: rt[c.ct], id: c.id, data: c.data}
		if IsAngle(c.ct) {
			a := angleBytes(testAngles[ix-6])
			copy(r.resp[0:2], a)
			r.resp[2] = 0x00
			copy(r.resp[3:5], a)
		} else {
			copy(r.resp[:4], c.resp[:])
			r.resp[4] = 0xEE
		}
		ret = append(ret, r)
	}

	return ret
}

//
func encodeChallenges(ch []testChallenge) []byte {
	table := make([]byte, 252)
	for ix, c := range ch {
		e := table[ix*12:]
		e[0], e[1], e[2], e[3] = c.ct, c.id, 0x05, 0x01
		copy(e[4:8], c.data[:])
		copy(e[8:12], c.resp[:])
	}
	return table
}

//
func writeResponses(data []byte, base int, rs []testResponse) {
	table := make([]byte, TableSize)
	for ix, r := range rs {
		e := table[ix*TableEntrySize:]
		e[0], e[1], e[2] = r.rt, r.id, 0x00
		// PSN range start and end
		e[3], e[4], e[5] = 0x06, 0x00, byte(ix)
		e[6], e[7], e[8] = 0x06, 0x10, byte(ix)
		if base >= 0 {
			d := data[base+ix*TableEntrySize:]
			copy(d[0:4], r.data[:])
			copy(d[4:9], r.resp[:])
		}
	}
	copy(data[0x661:], table)
	copy(data[0x730:], table)
}

//
func writeCommon(data []byte, marker []byte, sig byte) {

	// PFI: DVD-ROM book type, one layer path, OTP
	data[1], data[2], data[3] = 0x0F, 0x31, 0x10
	binary.BigEndian.PutUint32(data[4:], 0x030000)
	binary.BigEndian.PutUint32(data[8:], 0xFCFFFF)
	data[12] = 0x00
	copy(data[13:16], marker)

	binary.LittleEndian.PutUint64(data[0x49F:], testFileTime)
	binary.LittleEndian.PutUint64(data[0x5DF:], testFileTime+36000000000)
	data[0x4BA] = sig

	for ix := 0; ix < 16; ix++ {
		data[0x4BB+ix] = byte(0x40 + ix)
		data[0x5FB+ix] = byte(0x80 + ix)
	}
}

// buildXGD2 returns a clean XGD2 sector in dual angle form.
func buildXGD2(t *testing.T) []byte {
	return buildXbox360(t, MarkerXGD2, 0x2D0, 0x200,
		[]byte{0x00, 0x00, 0x00, 0x30}, []byte{0x00, 0x00, 0x06, 0xE0})
}

// buildXGD3 returns a clean XGD3 sector with SSv2 data, in dual angle form.
func buildXGD3(t *testing.T) []byte {
	return buildXbox360(t, MarkerXGD3, 0x0F0, 0x020,
		[]byte{0x00, 0x00, 0x00, 0x31}, []byte{0x00, 0x00, 0x18, 0x80})
}

//
func buildXbox360(t *testing.T, marker []byte, cprMai, responses int,
	unknown1, unknown2 []byte) []byte {

	t.Helper()

	data := make([]byte, SectorSize)
	data[0] = 0xE1
	writeCommon(data, marker, 0x02)

	copy(data[0x100:], unknown1)
	copy(data[0x104:], unknown2)
	for ix := 0; ix < 20; ix++ {
		data[0x108+ix] = byte(ix + 1)
	}

	copy(data[cprMai:], testCprMai)
	data[0x300] = 2
	data[0x301] = 21

	ch := testChallenges()
	enc, err := crypt.EncryptTable(encodeChallenges(ch))
	if err != nil {
		t.Fatalf("EncryptTable() failed: %v", err)
	}
	copy(data[0x304:], enc)

	for ix := 0; ix < 16; ix++ {
		data[0x460+ix] = byte(0xA0 + ix)
	}
	data[0x49E] = 4
	data[0x5FA] = 2
	data[0x65F] = 2

	writeResponses(data, responses, testResponses(ch))
	return data
}

// buildXGD1 returns a plausible XGD1 sector.
func buildXGD1(t *testing.T) []byte {

	t.Helper()

	data := make([]byte, SectorSize)
	data[0] = 0xD1
	writeCommon(data, MarkerXGD1, 0x01)

	copy(data[0x2D0:], testCprMai)
	data[0x300] = 1
	data[0x301] = 23

	binary.LittleEndian.PutUint64(data[0x41F:], testFileTime-36000000000)
	binary.LittleEndian.PutUint32(data[0x4A7:], 1262304000)
	for ix := 0; ix < 16; ix++ {
		data[0x427+ix] = byte(0x10 + ix)
		data[0x43B+ix] = byte(0x20 + ix)
	}
	data[0x5FA] = 0xFF
	data[0x65F] = 1

	var rs []testResponse
	table := make([]byte, 253)
	for ix := 0; ix < 23; ix++ {
		e := table[ix*11:]
		switch {
		case ix < 2:
			e[0] = 0x01
			copy(e[2:6], testCprMai)
		default:
			e[0] = 0x02 + byte(ix%2)
			e[2], e[3], e[4], e[5] = byte(ix), 0x11, 0x22, 0x33
		}
		e[1] = byte(0x40 + ix)
		e[6] = 0x03
		e[7], e[8], e[9], e[10] = 0x44, 0x55, 0x66, byte(ix)
		if ix >= 2 && ix < 18 {
			rs = append(rs, testResponse{rt: e[0], id: e[1]})
		}
	}

	enc, err := crypt.EncryptLegacy(data[0x49F:0x49F+44], table)
	if err != nil {
		t.Fatalf("EncryptLegacy() failed: %v", err)
	}
	copy(data[0x302:], enc)

	writeResponses(data, -1, rs)
	return data
}

// testPermutation is the scramble order used for test captures.
func testPermutation(ix int) int {
	return (ix*5 + 3) % permutationSize
}

// buildCapture turns a sector into a raw 2064 byte capture: CPR_MAI moves to
// the header, and the range table is scrambled.
func buildCapture(t *testing.T, sector []byte, cprMai int) []byte {

	t.Helper()

	sec := append([]byte(nil), sector...)
	key := append([]byte(nil), sec[cprMai:cprMai+4]...)
	for ix := 0; ix < 4; ix++ {
		sec[cprMai+ix] = 0
	}

	plain := append([]byte(nil), sec[0x661:0x661+TableSize]...)
	scrambled := make([]byte, TableSize)
	index := make([]byte, TableSize)
	for ix := 0; ix < permutationSize; ix++ {
		p := testPermutation(ix)
		scrambled[p] = plain[ix]
		index[ix] = byte(p) ^ key[ix%4]
	}
	copy(sec[0x661:], scrambled)
	copy(sec[0x730:], index)

	capture := make([]byte, CaptureSize)
	copy(capture[0x007:], key)
	copy(capture[captureHeader:], sec)
	return capture
}

//
func mustSector(t *testing.T, data []byte) *Sector {
	t.Helper()
	s, err := NewSector(data)
	if err != nil {
		t.Fatalf("NewSector() failed: %v", err)
	}
	return s
}

// reencrypt replaces the challenge table of an XGD2/XGD3 sector.
func reencrypt(t *testing.T, data []byte, ch []testChallenge) {
	t.Helper()
	enc, err := crypt.EncryptTable(encodeChallenges(ch))
	if err != nil {
		t.Fatalf("EncryptTable() failed: %v", err)
	}
	copy(data[0x304:], enc)
}
