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
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/raw"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

// layerbreak markers, bytes 13 through 15 of a sector
var (
	MarkerXGD1 = []byte{0x20, 0x33, 0xAF}
	MarkerXGD2 = []byte{0x20, 0x33, 0x9F}
	MarkerXGD3 = []byte{0x23, 0x8E, 0x0F}
)

/*
	Detection is the outcome of variant detection. When Resolved is false,
	the layerbreak marker was missing and Variant is the best guess among
	Candidates, derived from the signature byte. Such a detection is good
	enough for inspection, but never for repair.
*/
type Detection struct {
	Variant    variant.Variant
	Resolved   bool
	Candidates []variant.Variant
	Marker     []byte
	Signature  variant.Signature
	Warnings   base.Diagnostics
}

// MarkerVariant maps a layerbreak marker to a variant. XGD3 markers yield
// XGD3v1; promotion to XGD3v2 needs a look at the SSv2 area.
func MarkerVariant(marker []byte) variant.Variant {

	switch {

	case bytes.Equal(marker, MarkerXGD1):
		return variant.XGD1

	case bytes.Equal(marker, MarkerXGD2):
		return variant.XGD2

	case bytes.Equal(marker, MarkerXGD3):
		return variant.XGD3v1

	default:
		return variant.Unknown
	}
}

/*
	Detect resolves the variant of a 2048 byte sector. The layerbreak marker
	wins over the signature byte at 0x4BA, which is only cross checked. With a
	marker, a signature outside of {1, 2} is recorded as an UnknownSignature
	warning. If there is no marker either, the result is UnknownVariant.
*/
func Detect(data []byte) (*Detection, error) {

	if len(data) != SectorSize {
		return nil, base.NewError(base.StructuralError, base.InvalidSize,
			"sector must be %d bytes, got %d", SectorSize, len(data))
	}

	b := raw.NewBlock(commonIndex, data)
	d := &Detection{
		Marker:    b.Get("layerbreak"),
		Signature: variant.SignatureOf(b.GetByte("signature")),
	}
	ssv2 := !b.IsZero("ssv2")

	marked := MarkerVariant(d.Marker)

	if marked == variant.Unknown {
		if d.Signature == variant.SignatureUnknown {
			return nil, base.NewError(base.StructuralError, base.UnknownVariant,
				"unexpected layerbreak %X and value at 0x4BA: 0x%02X",
				d.Marker, b.GetByte("signature"))
		}
		d.Warnings.Warnf("Unexpected PSN Layer 0 End: %X", d.Marker)
		d.Candidates = d.Signature.Candidates()
		d.Variant = d.Candidates[0]
		if d.Signature == variant.SignatureXbox360 && ssv2 {
			d.Variant = variant.XGD3v2
		}
		log.WithFields(log.Fields{
			"signature":  d.Signature,
			"candidates": d.Candidates,
			"guess":      d.Variant,
		}).Debug("variant not resolved by layerbreak")
		return d, nil
	}

	d.Resolved = true
	d.Variant = marked
	d.Candidates = []variant.Variant{marked}

	if marked == variant.XGD3v1 {
		if ssv2 {
			d.Variant = variant.XGD3v2
		}
		d.Candidates = []variant.Variant{d.Variant}
	} else if ssv2 {
		d.Warnings.Warnf("%s SS with non-zero data in SSv2 area", marked)
	}

	if d.Signature == variant.SignatureUnknown {
		d.Warnings.AddError(base.NewError(base.IntegrityWarning,
			base.UnknownSignature, "unexpected value at 0x4BA: 0x%02X",
			b.GetByte("signature")))
	} else if !d.Signature.Admits(d.Variant) {
		d.Warnings.Warnf("%s but value at 0x4BA is: %d",
			d.Variant, b.GetByte("signature"))
	}

	return d, nil
}
