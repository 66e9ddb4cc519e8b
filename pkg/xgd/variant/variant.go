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

package variant

// Variant is the structural generation of a security sector.
type Variant int

const (
	Unknown Variant = iota
	XGD1
	XGD2
	XGD3v1
	XGD3v2
)

//
func (v Variant) String() string {

	switch v {

	case XGD1:
		return "XGD1"

	case XGD2:
		return "XGD2"

	case XGD3v1:
		return "XGD3v1"

	case XGD3v2:
		return "XGD3v2"

	default:
		return "<unknown>"
	}
}

// System returns the console name as shown in reports.
func (v Variant) System() string {

	switch v {

	case XGD1:
		return "Xbox (XGD1)"

	case XGD2:
		return "Xbox 360 (XGD2)"

	case XGD3v1, XGD3v2:
		return "Xbox 360 (XGD3)"

	default:
		return "<unknown>"
	}
}

//
func (v Variant) IsXGD3() bool {
	return v == XGD3v1 || v == XGD3v2
}

//
func (v Variant) IsXbox360() bool {
	return v == XGD2 || v.IsXGD3()
}

// Signature is the system signature byte stored at 0x4BA of a security
// sector. It tells Xbox from Xbox 360, but not XGD2 from XGD3.
type Signature int

const (
	SignatureUnknown Signature = iota
	SignatureXbox
	SignatureXbox360
)

//
func SignatureOf(b byte) Signature {

	switch b {

	case 0x01:
		return SignatureXbox

	case 0x02:
		return SignatureXbox360

	default:
		return SignatureUnknown
	}
}

//
func (s Signature) String() string {

	switch s {

	case SignatureXbox:
		return "Xbox"

	case SignatureXbox360:
		return "Xbox 360"

	default:
		return "<unknown>"
	}
}

// Candidates lists the variants compatible with this signature.
func (s Signature) Candidates() []Variant {

	switch s {

	case SignatureXbox:
		return []Variant{XGD1}

	case SignatureXbox360:
		return []Variant{XGD2, XGD3v1, XGD3v2}

	default:
		return nil
	}
}

// Admits reports whether v is compatible with this signature.
func (s Signature) Admits(v Variant) bool {
	for _, c := range s.Candidates() {
		if c == v {
			return true
		}
	}
	return false
}
