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
	"encoding/binary"
	"fmt"
)

// Field locates a named field inside a block as {offset, length}.
type Field [2]int

//
func NewBlock(index map[string]Field, data []byte) *Block {
	return &Block{index: index, Data: data}
}

/*
	Block is a fixed-size byte buffer with a named field index. Getters never
	panic; a field that is unknown or out of range yields a zero value. Callers
	must not modify slices returned by GetSlice.
*/
type Block struct {
	index map[string]Field
	Data  []byte
}

//
func (b *Block) Clone() *Block {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return &Block{index: b.index, Data: data}
}

//
func (b *Block) Has(key string) bool {
	_, ok := b.index[key]
	return ok
}

//
func (b *Block) Offset(key string) int {
	if ix, ok := b.index[key]; ok {
		return ix[0]
	}
	return -1
}

//
func (b *Block) GetByte(key string) byte {
	if ix, ok := b.index[key]; ok {
		if 0 <= ix[0] && ix[0] < len(b.Data) && ix[1] == 1 {
			return b.Data[ix[0]]
		}
	}
	return 0
}

//
func (b *Block) GetSlice(key string) []byte {
	if ix, ok := b.index[key]; ok {
		start := ix[0]
		end := start + ix[1]
		if 0 <= start && end <= len(b.Data) {
			return b.Data[start:end]
		}
	}
	return []byte{}
}

// Get returns a copy of the field's bytes.
func (b *Block) Get(key string) []byte {
	return append([]byte(nil), b.GetSlice(key)...)
}

// GetUint returns a big endian field of up to eight bytes.
func (b *Block) GetUint(key string) uint64 {
	var ret uint64
	for _, v := range b.GetSlice(key) {
		ret = ret<<8 | uint64(v)
	}
	return ret
}

// GetUintLE returns a little endian field of up to eight bytes.
func (b *Block) GetUintLE(key string) uint64 {
	s := b.GetSlice(key)
	if len(s) > 8 {
		return 0
	}
	buf := make([]byte, 8)
	copy(buf, s)
	return binary.LittleEndian.Uint64(buf)
}

//
func (b *Block) GetHex(key string) string {
	return fmt.Sprintf("%X", b.GetSlice(key))
}

// GetString returns a field as text, cut at the first NUL.
func (b *Block) GetString(key string) string {
	s := b.GetSlice(key)
	if ix := bytes.IndexByte(s, 0); ix >= 0 {
		s = s[:ix]
	}
	return string(s)
}

//
func (b *Block) IsZero(key string) bool {
	s := b.GetSlice(key)
	return len(s) > 0 && IsZero(s)
}

//
func (b *Block) Equal(key string, want []byte) bool {
	return bytes.Equal(b.GetSlice(key), want)
}

//
func (b *Block) Set(key string, data []byte) error {
	ix, ok := b.index[key]
	if !ok {
		return fmt.Errorf("unknown field: %s", key)
	}
	if len(data) != ix[1] {
		return fmt.Errorf("field %s takes %d bytes, got %d", key, ix[1], len(data))
	}
	if ix[0] < 0 || ix[0]+ix[1] > len(b.Data) {
		return fmt.Errorf("field %s out of range", key)
	}
	copy(b.Data[ix[0]:], data)
	return nil
}

//
func (b *Block) SetByte(key string, v byte) error {
	return b.Set(key, []byte{v})
}

// IsZero reports whether all bytes in data are zero.
func IsZero(data []byte) bool {
	for _, v := range data {
		if v != 0 {
			return false
		}
	}
	return true
}

// Xor XORs data with key repeated to data's length, into a new slice.
func Xor(data, key []byte) []byte {
	ret := make([]byte, len(data))
	if len(key) == 0 {
		copy(ret, data)
		return ret
	}
	for ix := range data {
		ret[ix] = data[ix] ^ key[ix%len(key)]
	}
	return ret
}
