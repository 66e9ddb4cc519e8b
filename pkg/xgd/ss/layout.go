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
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/raw"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
)

//
const (
	SectorSize = 2048

	// number of slots in the SS range / response table
	TableEntries   = 23
	TableEntrySize = 9
	TableSize      = TableEntries * TableEntrySize

	// PSN of LBA 0
	PSNStart = 196608
)

// Range is a half-open byte range [Start, End) within a sector.
type Range struct {
	Start int
	End   int
}

//
func (r Range) Len() int {
	return r.End - r.Start
}

// AngleField is a little endian angle stored in the response data region.
// Mirror is -1 for layouts without a mirrored field.
type AngleField struct {
	Primary int
	Mirror  int
	Value   uint16
}

/*
	Layout describes where things are in a security sector of one variant.
	There is exactly one Layout per Variant, and they are never modified after
	package initialisation.
*/
type Layout struct {
	Variant variant.Variant
	//
	index map[string]raw.Field
	//
	CCRTVersion    byte
	ChallengeCount int
	ChallengeSize  int
	// start of the CD/response region, -1 if the variant has none
	ResponseData int
	//
	Reserved []Range
	Angles   []AngleField
	// region filled with 0xFF for the abgx360 style fingerprint
	Mask Range
	// canonical form used for the Redump fingerprint
	RedumpForm Form
	// angle values of the Redump form where they differ from Angles
	RedumpAngles []AngleField
	//
	Unknown1 []byte
	Unknown2 []byte
}

//
func (l *Layout) Field(key string) raw.Field {
	return l.index[key]
}

// HasMirroredAngles reports whether the layout carries the dual angle fields.
func (l *Layout) HasMirroredAngles() bool {
	return len(l.Angles) > 0 && l.Angles[0].Mirror >= 0
}

//
func (l *Layout) redumpAngles() []AngleField {
	if l.RedumpAngles != nil {
		return l.RedumpAngles
	}
	return l.Angles
}

// common fields, shared by all variants
var commonIndex = map[string]raw.Field{
	"pfi":           {0, 17},
	"lbaStart":      {4, 4},
	"layer1End":     {8, 4},
	"layer0End":     {12, 4},
	"layerbreak":    {13, 3},
	"bca":           {16, 1},
	"ssv2":          {32, 72},
	"unknown1":      {0x100, 4},
	"unknown2":      {0x104, 4},
	"unknownHash":   {0x108, 20},
	"ccrtVersion":   {0x300, 1},
	"ccrtCount":     {0x301, 1},
	"creationTime":  {0x41F, 8},
	"certGuid":      {0x427, 16},
	"authoringGuid": {0x43B, 16},
	"mediaId":       {0x460, 16},
	"value49E":      {0x49E, 1},
	"hashInput":     {0x49F, 44},
	"authoringTime": {0x49F, 8},
	"certTime":      {0x4A7, 4},
	"signature":     {0x4BA, 1},
	"unknownGuid":   {0x4BB, 16},
	"sha1A":         {0x4CB, 20},
	"masteringTime": {0x5DF, 8},
	"masteringTail": {0x5E7, 4},
	"value5FA":      {0x5FA, 1},
	"masteringGuid": {0x5FB, 16},
	"sha1B":         {0x60B, 20},
	"signatureB":    {0x61F, 64},
	"ssVersion":     {0x65F, 1},
	"ranges":        {0x661, TableSize},
	"rangesMirror":  {0x730, TableSize},
}

//
var layouts = map[variant.Variant]*Layout{
	variant.XGD1:   newLayoutXGD1(),
	variant.XGD2:   newLayoutXGD2(),
	variant.XGD3v1: newLayoutXGD3(variant.XGD3v1),
	variant.XGD3v2: newLayoutXGD3(variant.XGD3v2),
}

// LayoutFor returns the layout of v, or nil for an unknown variant.
func LayoutFor(v variant.Variant) *Layout {
	return layouts[v]
}

//
func newIndex(extra map[string]raw.Field) map[string]raw.Field {
	ret := make(map[string]raw.Field, len(commonIndex)+len(extra))
	for k, v := range commonIndex {
		ret[k] = v
	}
	for k, v := range extra {
		ret[k] = v
	}
	return ret
}

// angles at 1, 91, 181 and 271 degrees, in response slots 4 through 7
func canonicalAngles(base int, mirrored bool) []AngleField {
	values := []uint16{1, 91, 181, 271}
	ret := make([]AngleField, len(values))
	for ix, v := range values {
		off := base + (4+ix)*TableEntrySize + 4
		ret[ix] = AngleField{Primary: off, Mirror: -1, Value: v}
		if mirrored {
			ret[ix].Mirror = off + 3
		}
	}
	return ret
}

//
func newLayoutXGD1() *Layout {
	return &Layout{
		Variant: variant.XGD1,
		index: newIndex(map[string]raw.Field{
			"cprMai": {0x2D0, 4},
			"ccrt":   {0x302, 253},
		}),
		CCRTVersion:    1,
		ChallengeCount: 23,
		ChallengeSize:  11,
		ResponseData:   -1,
		Reserved: []Range{
			{0x011, 0x2D0}, {0x2D4, 0x300}, {0x3FF, 0x41F}, {0x437, 0x43B},
			{0x44B, 0x49F}, {0x4AB, 0x4BA}, {0x7FF, 0x800},
		},
	}
}

//
func newLayoutXGD2() *Layout {
	return &Layout{
		Variant: variant.XGD2,
		index: newIndex(map[string]raw.Field{
			"cprMai":       {0x2D0, 4},
			"ccrt":         {0x304, 252},
			"responseData": {0x200, TableSize},
		}),
		CCRTVersion:    2,
		ChallengeCount: 21,
		ChallengeSize:  12,
		ResponseData:   0x200,
		Reserved: []Range{
			{0x011, 0x100}, {0x11C, 0x200}, {0x2CF, 0x2D0}, {0x2D4, 0x300},
			{0x302, 0x304}, {0x400, 0x460}, {0x470, 0x49E}, {0x4A7, 0x4BA},
			{0x5EB, 0x5FA}, {0x7FF, 0x800},
		},
		Angles:     canonicalAngles(0x200, true),
		Mask:       Range{0x200, 0x300},
		RedumpForm: FormPrimary,
		Unknown1:   []byte{0x00, 0x00, 0x00, 0x30},
		Unknown2:   []byte{0x00, 0x00, 0x06, 0xE0},
	}
}

// XGD3 with SSv2 moves CPR_MAI and the response data down into the area that
// is zero on SSv1 sectors.
func newLayoutXGD3(v variant.Variant) *Layout {

	l := &Layout{
		Variant:        v,
		CCRTVersion:    2,
		ChallengeCount: 21,
		ChallengeSize:  12,
		Reserved: []Range{
			{0x011, 0x01B}, {0x01C, 0x020}, {0x0F5, 0x0FF}, {0x302, 0x304},
			{0x400, 0x460}, {0x470, 0x49E}, {0x4A7, 0x4BA}, {0x5EB, 0x5FA},
			{0x7FF, 0x800},
		},
		Unknown2: []byte{0x00, 0x00, 0x18, 0x80},
	}

	if v == variant.XGD3v2 {
		l.index = newIndex(map[string]raw.Field{
			"cprMai":       {0x0F0, 4},
			"ccrt":         {0x304, 252},
			"responseData": {0x020, TableSize},
		})
		l.ResponseData = 0x020
		l.Angles = canonicalAngles(0x020, true)
		l.Mask = Range{0x020, 0x0F4}
		l.RedumpForm = FormDual

	} else {
		l.index = newIndex(map[string]raw.Field{
			"cprMai":       {0x2D0, 4},
			"ccrt":         {0x304, 252},
			"responseData": {0x200, TableSize},
		})
		l.ResponseData = 0x200
		l.Angles = canonicalAngles(0x200, false)
		l.RedumpForm = FormPrimary
		// Redump dumps of SSv1 discs carry 15 in place of 271 in the last field
		l.RedumpAngles = append([]AngleField(nil), l.Angles...)
		l.RedumpAngles[3].Value = 0x000F
	}

	return l
}
