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

package raw

import (
	"bytes"
	"testing"
)

var testIndex = map[string]Field{
	"byte":   {0, 1},
	"be":     {1, 2},
	"le":     {3, 4},
	"text":   {7, 6},
	"beyond": {10, 8},
}

func testBlock() *Block {
	return NewBlock(testIndex, []byte{
		0x7F, 0x01, 0x02, 0x04, 0x03, 0x02, 0x01, 'X', 'B', 'O', 'X', 0, 0})
}

func TestGetters(t *testing.T) {

	b := testBlock()

	if got := b.GetByte("byte"); got != 0x7F {
		t.Errorf("GetByte() = %X", got)
	}
	if got := b.GetUint("be"); got != 0x0102 {
		t.Errorf("GetUint() = %X", got)
	}
	if got := b.GetUintLE("le"); got != 0x01020304 {
		t.Errorf("GetUintLE() = %X", got)
	}
	if got := b.GetString("text"); got != "XBOX" {
		t.Errorf("GetString() = %q", got)
	}
	if got := b.GetHex("be"); got != "0102" {
		t.Errorf("GetHex() = %s", got)
	}
	if got := b.GetSlice("beyond"); len(got) != 0 {
		t.Errorf("out of range field returned %X", got)
	}
	if got := b.GetByte("missing"); got != 0 || b.Offset("missing") != -1 {
		t.Errorf("unknown field not zero")
	}
}

func TestSet(t *testing.T) {

	b := testBlock()

	if err := b.Set("be", []byte{0xAB, 0xCD}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if !b.Equal("be", []byte{0xAB, 0xCD}) {
		t.Errorf("field not written")
	}

	for _, tc := range []struct {
		key  string
		data []byte
	}{
		{"missing", []byte{0}},
		{"be", []byte{0}},
		{"beyond", make([]byte, 8)},
	} {
		if err := b.Set(tc.key, tc.data); err == nil {
			t.Errorf("Set(%s, %X) accepted", tc.key, tc.data)
		}
	}
}

func TestCloneAndGet(t *testing.T) {

	b := testBlock()
	c := b.Clone()
	c.SetByte("byte", 0)
	if b.GetByte("byte") != 0x7F {
		t.Errorf("clone shares data")
	}

	g := b.Get("be")
	g[0] = 0xFF
	if b.GetByte("byte") != 0x7F || b.GetUint("be") != 0x0102 {
		t.Errorf("Get() returned a view")
	}
}

func TestXorAndZero(t *testing.T) {

	if got := Xor([]byte{1, 2, 3, 4, 5}, []byte{1, 2}); !bytes.Equal(got, []byte{0, 0, 2, 6, 4}) {
		t.Errorf("Xor() = %X", got)
	}
	if got := Xor([]byte{1, 2}, nil); !bytes.Equal(got, []byte{1, 2}) {
		t.Errorf("Xor() with empty key = %X", got)
	}
	if !IsZero(nil) || !IsZero([]byte{0, 0}) || IsZero([]byte{0, 1}) {
		t.Errorf("IsZero() wrong")
	}

	b := NewBlock(map[string]Field{"z": {0, 2}, "nz": {1, 2}}, []byte{0, 0, 1})
	if !b.IsZero("z") || b.IsZero("nz") || b.IsZero("missing") {
		t.Errorf("Block.IsZero() wrong")
	}
}
