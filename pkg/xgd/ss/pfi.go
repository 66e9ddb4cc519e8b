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

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/report"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

/*
	PFI is the physical format information header the sector starts with.
	Start, Layer1 and Layer0End are physical sector numbers.
*/
type PFI struct {
	Version       byte
	BookType      byte
	MaxRate       byte
	DiscSize      byte
	LayerType     byte
	Path          byte
	LayerCount    byte
	Reserved      byte
	TrackDensity  byte
	LinearDensity byte
	Start         uint32
	Layer1        uint32
	Layer0End     uint32
	BCA           byte
	BCAReserved   byte
}

// DecodePFI decodes the first 17 bytes of data.
func DecodePFI(data []byte) *PFI {
	if len(data) < 17 {
		return &PFI{}
	}
	return &PFI{
		Version:       data[0] & 0x0F,
		BookType:      data[0] >> 4,
		MaxRate:       data[1] & 0x0F,
		DiscSize:      data[1] >> 4,
		LayerType:     data[2] & 0x0F,
		Path:          (data[2] >> 4) & 1,
		LayerCount:    (data[2] >> 5) & 3,
		Reserved:      data[2] >> 7,
		TrackDensity:  data[3] & 0x0F,
		LinearDensity: data[3] >> 4,
		Start:         binary.BigEndian.Uint32(data[4:8]),
		Layer1:        binary.BigEndian.Uint32(data[8:12]),
		Layer0End:     binary.BigEndian.Uint32(data[12:16]),
		BCA:           data[16] >> 7,
		BCAReserved:   data[16] & 0x7F,
	}
}

//
func (p *PFI) LBAStart() int64 {
	return int64(p.Start) - PSNStart
}

//
func (p *PFI) LBALayerbreak() int64 {
	return int64(p.Layer0End) - PSNStart
}

// LBAFinal is the last LBA of layer 1. Layer 1 PSNs count down from the
// bitwise complement of the layer 0 end.
func (p *PFI) LBAFinal() int64 {
	layer1Size := int64(p.Layer1) - int64(^(p.Layer0End+1)&0xFFFFFF)
	return p.LBALayerbreak() + layer1Size
}

// layer1Offset is what layer 1 PSNs are subtracted from to get an LBA
func (p *PFI) layer1Offset() int64 {
	return int64(p.Layer0End)*2 - PSNStart + 1
}

// check reports every field that does not have the value expected for v.
func (p *PFI) check(v variant.Variant, rep *report.Report) {

	book := byte(0x0E)
	if v == variant.XGD1 {
		book = 0x0D
	}

	if p.Version != 0x01 {
		rep.Warnf("Unexpected PFI version: 0x%02X", p.Version)
	}
	if p.BookType != book {
		rep.Warnf("Unexpected PFI book type: 0x%02X", p.BookType)
	}
	if p.MaxRate != 0x0F {
		rep.Warnf("Unexpected PFI maximum rate: 0x%02X", p.MaxRate)
	}
	if p.DiscSize != 0x00 {
		rep.Warnf("Unexpected PFI disc size: 0x%02X", p.DiscSize)
	}
	if p.LayerType != 0x01 {
		rep.Warnf("Unexpected PFI layer type: 0x%02X", p.LayerType)
	}
	if p.Path != 1 {
		rep.Warnf("Unexpected PFI path bit unset")
	}
	if p.LayerCount != 1 {
		rep.Warnf("Unexpected PFI layer count: 0b%02b", p.LayerCount)
	}
	if p.Reserved != 0 {
		rep.Warnf("Unexpected PFI reserved bit set")
	}
	if p.TrackDensity != 0x00 {
		rep.Warnf("Unexpected PFI track density: 0x%02X", p.TrackDensity)
	}
	if p.LinearDensity != 0x01 {
		rep.Warnf("Unexpected PFI linear density: 0x%02X", p.LinearDensity)
	}

	rep.Add("LBA Data Start", "%d", p.LBAStart())
	rep.Add("LBA Layerbreak", "%d", p.LBALayerbreak())
	rep.Add("LBA Data Final", "%d", p.LBAFinal())

	if p.BCAReserved != 0 {
		rep.Warnf("Unexpected reserved byte set: 0x%02X", p.BCAReserved)
	}
	if p.BCA != 0 {
		rep.Warnf("Unexpected BCA bit set")
	}
}
