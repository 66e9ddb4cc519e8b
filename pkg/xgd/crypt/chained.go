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

package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// BlockSize of the Xbox 360 table cipher
const BlockSize = aes.BlockSize

// fixed table key; it is public knowledge and only serves read compatibility
var tableKey = []byte{
	0xD1, 0xE3, 0xB3, 0x3A, 0x6C, 0x1E, 0xF7, 0x70,
	0x5F, 0x6D, 0xE9, 0x3B, 0xB6, 0xC0, 0xDC, 0x71,
}

/*
	DecryptTable decrypts an XGD2/XGD3 challenge table. All complete 16 byte
	blocks are decrypted in CBC mode with an all-zero IV. A trailing partial
	block is not encrypted on disc and is copied through as is; there is no
	chain XOR applied to it.

	The table on an XGD2/XGD3 sector is 252 bytes, i.e. 15 blocks followed by
	12 clear bytes.
*/
func DecryptTable(table []byte) ([]byte, error) {
	return chain(table, false)
}

// EncryptTable is the inverse of DecryptTable.
func EncryptTable(table []byte) ([]byte, error) {
	return chain(table, true)
}

//
func chain(in []byte, encrypt bool) ([]byte, error) {

	block, err := aes.NewCipher(tableKey)
	if err != nil {
		return nil, fmt.Errorf("error setting up table cipher: %v", err)
	}

	out := make([]byte, len(in))
	full := len(in) / BlockSize * BlockSize
	iv := make([]byte, BlockSize)

	if full > 0 {
		var mode cipher.BlockMode
		if encrypt {
			mode = cipher.NewCBCEncrypter(block, iv)
		} else {
			mode = cipher.NewCBCDecrypter(block, iv)
		}
		mode.CryptBlocks(out[:full], in[:full])
	}

	copy(out[full:], in[full:])
	return out, nil
}
