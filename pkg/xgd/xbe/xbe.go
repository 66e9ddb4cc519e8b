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

package xbe

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-restruct/restruct"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/unicode"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
)

//
const (
	ReportKind = "xbe"

	// smallest file that can hold image header and certificate
	MinSize = 0x370
	// size a certificate is expected to declare
	CertificateSize = 492

	imageHeaderOffset = 0x104
	certificateLength = 0xB0
	altTitleIDs       = 16
)

// image header fields from 0x104, little endian
type imageHeader struct {
	BaseAddress     uint32
	HeadersSize     uint32
	ImageSize       uint32
	ImageHeaderSize uint32
	Timestamp       uint32
	CertAddress     uint32
}

// certificate, little endian
type certificate struct {
	Size         uint32
	Timestamp    uint32
	TitleID      [4]byte
	TitleName    [80]byte
	AltTitleIDs  [altTitleIDs][4]byte
	AllowedMedia uint32
	Region       uint32
	Ratings      uint32
	DiscNumber   uint32
	Version      uint32
}

// TitleID is the four byte title ID of a certificate, a two letter publisher
// code followed by a serial number.
type TitleID [4]byte

// String renders the ID the way it is printed on discs, e.g. MS-004.
// Publisher bytes outside of A-Z and 0-9 are escaped.
func (id TitleID) String() string {
	var prefix string
	for _, b := range []byte{id[3], id[2]} {
		if ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9') {
			prefix += string(rune(b))
		} else {
			prefix += fmt.Sprintf("\\x%02X", b)
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, binary.LittleEndian.Uint16(id[:2]))
}

/*
	Certificate holds what is extracted from the certificate of an XBE image.
	Warnings collects oddities that do not prevent decoding.
*/
type Certificate struct {
	ImageTimestamp time.Time
	Timestamp      time.Time
	Size           uint32
	TitleID        TitleID
	TitleName      string
	AltTitleIDs    []TitleID
	AllowedMedia   uint32
	Region         uint32
	Ratings        uint32
	DiscNumber     uint32
	Version        uint32
	Warnings       base.Diagnostics
}

/*
	Parse locates the certificate of the XBE image in data through the image
	header and decodes it. A certificate whose address does not follow the
	image header directly, or which declares an unusual size, is still decoded,
	with a warning.
*/
func Parse(data []byte) (*Certificate, error) {

	if len(data) < MinSize {
		return nil, base.NewError(base.StructuralError, base.InvalidSize,
			"file is too small to be a valid XBE file: %d bytes", len(data))
	}

	var h imageHeader
	if err := restruct.Unpack(data[imageHeaderOffset:], binary.LittleEndian,
		&h); err != nil {
		return nil, fmt.Errorf("error decoding XBE image header: %v", err)
	}

	ret := &Certificate{ImageTimestamp: time.Unix(int64(h.Timestamp), 0).UTC()}

	off := int64(h.CertAddress) - int64(h.BaseAddress)
	if off != int64(h.ImageHeaderSize) {
		ret.Warnings.Warnf(
			"Parsed data may be incorrect due to unexpected XBE header")
	}
	if off < 0 || off+4 >= int64(len(data)) {
		return nil, base.NewError(base.StructuralError, base.UnexpectedValue,
			"certificate address 0x%X is larger than XBE file size", off)
	}
	if off+certificateLength > int64(len(data)) {
		return nil, base.NewError(base.StructuralError, base.UnexpectedValue,
			"certificate file offset 0x%X is larger than XBE file size %d",
			off+certificateLength, len(data))
	}

	var c certificate
	if err := restruct.Unpack(data[off:off+certificateLength],
		binary.LittleEndian, &c); err != nil {
		return nil, fmt.Errorf("error decoding XBE certificate: %v", err)
	}

	if c.Size != CertificateSize {
		ret.Warnings.Warnf("Unusual certificate size %d", c.Size)
	}

	name, err := decodeName(c.TitleName[:])
	if err != nil {
		return nil, fmt.Errorf("error decoding title name: %v", err)
	}

	ret.Timestamp = time.Unix(int64(c.Timestamp), 0).UTC()
	ret.Size = c.Size
	ret.TitleID = c.TitleID
	ret.TitleName = name
	ret.AllowedMedia = c.AllowedMedia
	ret.Region = c.Region
	ret.Ratings = c.Ratings
	ret.DiscNumber = c.DiscNumber
	ret.Version = c.Version

	for _, id := range c.AltTitleIDs {
		if id == [4]byte{} {
			break
		}
		ret.AltTitleIDs = append(ret.AltTitleIDs, TitleID(id))
	}

	log.WithFields(log.Fields{
		"offset":  off,
		"titleID": ret.TitleID,
	}).Debug("XBE certificate decoded")

	return ret, nil
}

// decodeName decodes a NUL padded UTF-16LE title name.
func decodeName(b []byte) (string, error) {
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return "", err
	}
	if ix := bytes.IndexByte(out, 0); ix >= 0 {
		out = out[:ix]
	}
	return string(out), nil
}
