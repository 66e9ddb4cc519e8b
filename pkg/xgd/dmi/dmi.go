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

package dmi

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-restruct/restruct"
	log "github.com/sirupsen/logrus"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/raw"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

//
const (
	Size       = 2048
	ReportKind = "dmi"
)

// the trailer is present on every XGD2/3 DMI, and on late XGD1 pressings
var index = map[string]raw.Field{
	"xmid":      {0x008, 8},
	"xemid":     {0x040, 16},
	"trailer":   {0x634, Size - 0x634},
	"pfi":       {0x7DC, 8},
	"signature": {0x7E4, 12},
	"checksum":  {0x7F0, 16},
}

// XboxSignature is what a valid trailer carries at 0x7E4.
var XboxSignature = []byte{
	0x00, 0x02, 0x00, 0x00, 0x58, 0x42, 0x4F, 0x58, 0x00, 0x00, 0x00, 0x00}

// Range is a half-open byte range [Start, End) that must be zero.
type Range struct {
	Start int
	End   int
}

var reservedXbox = []Range{{0x001, 0x008}, {0x019, 0x634}}
var reservedXbox360 = []Range{{0x001, 0x010}, {0x019, 0x020}, {0x030, 0x040},
	{0x050, 0x634}}

// on disc headers, little endian

type xboxHeader struct {
	System    uint8
	Reserved1 [7]byte
	XMID      [8]byte
	Timestamp uint64
}

type xbox360Header struct {
	System    uint8
	Reserved1 [15]byte
	Timestamp uint64
	XorKey    uint8
	Reserved2 [7]byte
	MediaID   [16]byte
	Reserved3 [16]byte
	XeMID     [16]byte
}

/*
	DMI is a decoded disc manufacturing information sector. XMID is only set
	for Xbox discs; XorKey, MediaID, and XeMID only for Xbox 360 discs.
*/
type DMI struct {
	System    variant.Signature
	XMID      string
	Timestamp time.Time
	// false if the FILETIME lies before 1970
	TimestampValid bool
	XorKey         byte
	MediaID        []byte
	XeMID          string
	HasTrailer     bool
	//
	block *raw.Block
}

/*
	Parse decodes the first Size bytes of data. The first byte tells an Xbox
	DMI (1) from an Xbox 360 DMI (2); anything else is rejected.
*/
func Parse(data []byte) (*DMI, error) {

	if len(data) < Size {
		return nil, base.NewError(base.StructuralError, base.InvalidSize,
			"not a valid Xbox DMI: %d bytes, want %d", len(data), Size)
	}

	buf := make([]byte, Size)
	copy(buf, data)

	d := &DMI{
		System: variant.SignatureOf(buf[0]),
		block:  raw.NewBlock(index, buf),
	}

	var ft uint64

	switch d.System {

	case variant.SignatureXbox:
		var h xboxHeader
		if err := restruct.Unpack(buf, binary.LittleEndian, &h); err != nil {
			return nil, fmt.Errorf("error decoding DMI header: %v", err)
		}
		d.XMID = d.block.GetString("xmid")
		ft = h.Timestamp
		d.HasTrailer = !d.block.IsZero("trailer")

	case variant.SignatureXbox360:
		var h xbox360Header
		if err := restruct.Unpack(buf, binary.LittleEndian, &h); err != nil {
			return nil, fmt.Errorf("error decoding DMI header: %v", err)
		}
		ft = h.Timestamp
		d.XorKey = h.XorKey
		d.MediaID = append([]byte(nil), h.MediaID[:]...)
		d.XeMID = d.block.GetString("xemid")
		d.HasTrailer = true

	default:
		return nil, base.NewError(base.StructuralError, base.UnknownSignature,
			"not a valid Xbox DMI: first byte is 0x%02X", buf[0])
	}

	ts := make([]byte, 8)
	binary.LittleEndian.PutUint64(ts, ft)
	d.Timestamp, d.TimestampValid = base.FileTime(ts)

	log.WithFields(log.Fields{
		"system":  d.System,
		"trailer": d.HasTrailer,
	}).Debug("DMI decoded")

	return d, nil
}

// Bytes returns a copy of the sector.
func (d *DMI) Bytes() []byte {
	return append([]byte(nil), d.block.Data...)
}

// PFI returns the eight byte PFI fingerprint stored in the trailer.
func (d *DMI) PFI() []byte {
	return d.block.Get("pfi")
}

// SignatureValid reports whether the trailer carries the Xbox signature.
func (d *DMI) SignatureValid() bool {
	return d.block.Equal("signature", XboxSignature)
}

// Checksum returns the final 16 bytes of the trailer.
func (d *DMI) Checksum() []byte {
	return d.block.Get("checksum")
}

// ReservedViolations returns the reserved ranges that contain non-zero bytes.
func (d *DMI) ReservedViolations() []Range {

	reserved := reservedXbox
	if d.System == variant.SignatureXbox360 {
		reserved = reservedXbox360
	}

	var ret []Range
	for _, r := range reserved {
		if !raw.IsZero(d.block.Data[r.Start:r.End]) {
			ret = append(ret, r)
		}
	}
	return ret
}
