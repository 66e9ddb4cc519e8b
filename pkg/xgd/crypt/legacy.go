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
	"crypto/rc4"
	"crypto/sha1"
	"fmt"
)

// LegacyKeyLength is the number of digest bytes used as the XGD1 table key.
const LegacyKeyLength = 7

// LegacyKey derives the XGD1 table key from the sector's hash input region.
func LegacyKey(hashInput []byte) []byte {
	sum := sha1.Sum(hashInput)
	return sum[:LegacyKeyLength]
}

/*
	DecryptLegacy decrypts an XGD1 challenge table. The key is the first seven
	bytes of the SHA-1 digest over hashInput, the keystream is plain RC4 starting
	at the first table byte. The cipher is symmetric, so EncryptLegacy is the
	same operation.
*/
func DecryptLegacy(hashInput, table []byte) ([]byte, error) {
	c, err := rc4.NewCipher(LegacyKey(hashInput))
	if err != nil {
		return nil, fmt.Errorf("error setting up table cipher: %v", err)
	}
	out := make([]byte, len(table))
	c.XORKeyStream(out, table)
	return out, nil
}

//
func EncryptLegacy(hashInput, table []byte) ([]byte, error) {
	return DecryptLegacy(hashInput, table)
}
