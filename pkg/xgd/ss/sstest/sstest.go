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

/*
	Package sstest builds synthetic security sectors for tests of packages that
	work on whole files. The sectors are clean: they pass validation and are
	left unchanged by repair and cleaning.
*/
package sstest

import (
	"encoding/binary"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/crypt"
)

//
const (
	SectorSize  = 2048
	CaptureSize = 2064

	// offset of CPR_MAI in an XGD2 sector
	CprMaiXGD2 = 0x2D0
	// offset of the response data in an XGD2 sector
	ResponsesXGD2 = 0x200

	tableSize = 23 * 9
)

// CprMai is the key written into every sector built here.
var CprMai = []byte{0xA1, 0xB2, 0xC3, 0xD4}

var angles = []uint16{1, 91, 181, 271}

// 2010-01-01 00:00:00 UTC
const fileTime = uint64(129067776000000000)

/*
	XGD2 returns a clean XGD2 sector in 0800 angle form. Its challenge table
	holds two CT01 entries, six plain and four angle challenges, and nine
	sentinels; the ten non-CT01 challenges are answered in the response table.
*/
func XGD2() []byte {

	data := make([]byte, SectorSize)
	data[0] = 0xE1

	data[1], data[2], data[3] = 0x0F, 0x31, 0x10
	binary.BigEndian.PutUint32(data[4:], 0x030000)
	binary.BigEndian.PutUint32(data[8:], 0xFCFFFF)
	copy(data[13:16], []byte{0x20, 0x33, 0x9F})

	binary.LittleEndian.PutUint64(data[0x49F:], fileTime)
	binary.LittleEndian.PutUint64(data[0x5DF:], fileTime+36000000000)
	data[0x4BA] = 0x02
	for ix := 0; ix < 16; ix++ {
		data[0x4BB+ix] = byte(0x40 + ix)
		data[0x5FB+ix] = byte(0x80 + ix)
		data[0x460+ix] = byte(0xA0 + ix)
	}

	copy(data[0x100:], []byte{0x00, 0x00, 0x00, 0x30})
	copy(data[0x104:], []byte{0x00, 0x00, 0x06, 0xE0})
	for ix := 0; ix < 20; ix++ {
		data[0x108+ix] = byte(ix + 1)
	}

	copy(data[CprMaiXGD2:], CprMai)
	data[0x300] = 2
	data[0x301] = 21
	data[0x49E] = 4
	data[0x5FA] = 2
	data[0x65F] = 2

	table := make([]byte, 252)
	ranges := make([]byte, tableSize)
	slot := 0

	entry := func(ix int, ct, id byte, cd, resp []byte) {
		e := table[ix*12:]
		e[0], e[1], e[2], e[3] = ct, id, 0x05, 0x01
		copy(e[4:8], cd)
		copy(e[8:12], resp)
	}

	answer := func(rt, id byte, cd, resp []byte) {
		r := ranges[slot*9:]
		r[0], r[1] = rt, id
		r[3], r[4], r[5] = 0x06, 0x00, byte(slot)
		r[6], r[7], r[8] = 0x06, 0x10, byte(slot)
		d := data[ResponsesXGD2+slot*9:]
		copy(d[0:4], cd)
		copy(d[4:9], resp)
		slot++
	}

	entry(0, 0x01, 0x01, CprMai, nil)
	entry(1, 0x01, 0x02, CprMai, nil)

	rt := map[byte]byte{0x15: 0x01, 0x14: 0x03, 0x25: 0x05, 0x24: 0x07}

	for ix, ct := range []byte{0x15, 0x14, 0x15, 0x14} {
		b := byte(ix)
		cd := []byte{0x10 + b, 0x22, 0x33, 0x44}
		resp := []byte{0x50 + b, 0x66, 0x77, 0x88}
		entry(2+ix, ct, 0x10+b, cd, resp)
		answer(rt[ct], 0x10+b, cd, append(resp, 0xEE))
	}

	for ix, ct := range []byte{0x24, 0x25, 0x24, 0x25} {
		b := byte(ix)
		cd := []byte{0x90 + b, 0xAA, 0xBB, 0xCC}
		a := make([]byte, 2)
		binary.BigEndian.PutUint16(a, angles[ix])
		entry(6+ix, ct, 0x20+b, cd, []byte{0x09, 0x00, a[0], a[1]})
		binary.LittleEndian.PutUint16(a, angles[ix])
		answer(rt[ct], 0x20+b, cd, []byte{a[0], a[1], 0x00, a[0], a[1]})
	}

	for ix, ct := range []byte{0x15, 0x14} {
		b := byte(ix)
		cd := []byte{0x60 + b, 0x61, 0x62, 0x63}
		resp := []byte{0x70 + b, 0x71, 0x72, 0x73}
		entry(10+ix, ct, 0x14+b, cd, resp)
		answer(rt[ct], 0x14+b, cd, append(resp, 0xEE))
	}

	for ix := 0; ix < 9; ix++ {
		b := byte(ix)
		entry(12+ix, 0xE0, 0x30+b, []byte{0xE0, b, 0, 1}, nil)
	}

	enc, err := crypt.EncryptTable(table)
	if err != nil {
		panic(err)
	}
	copy(data[0x304:], enc)

	copy(data[0x661:], ranges)
	copy(data[0x730:], ranges)

	return data
}

/*
	Capture turns a sector into a raw 2064 byte capture as a drive delivers it:
	CPR_MAI, found at offset cprMai, moves into the capture header, and the
	range table is scrambled with an index table keyed by CPR_MAI.
*/
func Capture(sector []byte, cprMai int) []byte {

	sec := append([]byte(nil), sector...)
	key := append([]byte(nil), sec[cprMai:cprMai+4]...)
	for ix := 0; ix < 4; ix++ {
		sec[cprMai+ix] = 0
	}

	plain := append([]byte(nil), sec[0x661:0x661+tableSize]...)
	scrambled := make([]byte, tableSize)
	index := make([]byte, tableSize)
	for ix := 0; ix < tableSize; ix++ {
		p := (ix*5 + 3) % tableSize
		scrambled[p] = plain[ix]
		index[ix] = byte(p) ^ key[ix%4]
	}
	copy(sec[0x661:], scrambled)
	copy(sec[0x730:], index)

	capture := make([]byte, CaptureSize)
	copy(capture[0x007:], key)
	copy(capture[0x0C:], sec)
	return capture
}

// Corrupt returns a copy of an XGD2 sector with the challenge data of its
// first response zeroed, which repair restores.
func Corrupt(sector []byte) []byte {
	ret := append([]byte(nil), sector...)
	copy(ret[ResponsesXGD2:ResponsesXGD2+4], []byte{0, 0, 0, 0})
	return ret
}
