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

package format

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
)

// file types
const (
	TypeSS      = "ss"
	TypeCapture = "capture"
	TypeDMI     = "dmi"
	TypeXBE     = "xbe"
)

//
const (
	SectorSize  = 2048
	CaptureSize = 2064
	// upper bound for reading an XBE image into memory
	MaxXBESize = 256 << 20
)

// Reader interface for reading in a file
type Reader interface {
	Read(in io.Reader) ([]byte, error)
}

// Writer interface for writing out a file
type Writer interface {
	Write(data []byte, out io.Writer) error
}

// ReaderWriter interface for reading/writing a file
type ReaderWriter interface {
	Reader
	Writer
}

//
func NewFormat(typ string) (ReaderWriter, error) {

	switch typ {

	case TypeSS:
		return &fixed{name: "SS", size: SectorSize}, nil

	case TypeCapture:
		return &fixed{name: "raw SS", size: CaptureSize}, nil

	case TypeDMI:
		return &fixed{name: "Xbox DMI", size: SectorSize}, nil

	case TypeXBE:
		return &image{}, nil

	default:
		return nil, fmt.Errorf("unsupported file format: %s", typ)
	}
}

// fixed is a file that is exactly one sector of a given size
type fixed struct {
	name string
	size int
}

// Read reads the whole of in. Anything but exactly the expected number of
// bytes is an InvalidSize error.
func (f *fixed) Read(in io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(in, int64(f.size)+1))
	if err != nil {
		return nil, err
	}
	if len(data) != f.size {
		return nil, f.sizeError(len(data))
	}
	return data, nil
}

//
func (f *fixed) Write(data []byte, out io.Writer) error {
	if len(data) != f.size {
		return f.sizeError(len(data))
	}
	_, err := out.Write(data)
	return err
}

//
func (f *fixed) sizeError(n int) error {
	rel := "<"
	if n > f.size {
		rel = ">"
	}
	return base.NewError(base.StructuralError, base.InvalidSize,
		"not a valid %s: %s%d bytes", f.name, rel, f.size)
}

// image is an XBE executable, read whole and never written
type image struct{}

//
func (i *image) Read(in io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(in, MaxXBESize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxXBESize {
		return nil, base.NewError(base.StructuralError, base.InvalidSize,
			"XBE file larger than %d bytes", MaxXBESize)
	}
	return data, nil
}

//
func (i *image) Write(data []byte, out io.Writer) error {
	return fmt.Errorf("writing XBE files is not supported")
}

// ReadFile reads the file at path with r.
func ReadFile(path string, r Reader) ([]byte, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return r.Read(bufio.NewReader(f))
}

/*
	WriteFile replaces the file at path with data, written through w. Data
	goes to a temporary file next to path first, which is synced and then
	renamed over path. If anything fails, path is left as it was.
*/
func WriteFile(path string, data []byte, w Writer) (err error) {

	mode := os.FileMode(0644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	fd, err := os.CreateTemp(filepath.Dir(path),
		fmt.Sprintf(".%s_*", filepath.Base(path)))
	if err != nil {
		return err
	}
	tmp := fd.Name()

	defer func() {
		if err != nil {
			fd.Close()
			os.Remove(tmp)
		}
	}()

	out := bufio.NewWriter(fd)

	if err = w.Write(data, out); err != nil {
		return err
	}
	if err = out.Flush(); err != nil {
		return err
	}
	if err = fd.Chmod(mode); err != nil {
		return err
	}
	if err = fd.Sync(); err != nil {
		return err
	}
	if err = fd.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp, path); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"file":  path,
		"bytes": len(data),
	}).Debug("file written")

	return nil
}

/*
	Match reports whether the file name of path follows the naming convention
	dumping tools use for files of type typ: SS*.bin for security sectors and
	raw captures, DMI*.bin for DMI sectors, and *.xbe for executables.
*/
func Match(typ, path string) bool {

	name := filepath.Base(path)
	upper := strings.ToUpper(name)

	switch typ {

	case TypeSS, TypeCapture:
		return strings.HasPrefix(name, "SS") && strings.HasSuffix(name, ".bin")

	case TypeDMI:
		return strings.HasPrefix(name, "DMI") && strings.HasSuffix(name, ".bin")

	case TypeXBE:
		return strings.HasSuffix(upper, ".XBE")

	default:
		return false
	}
}
