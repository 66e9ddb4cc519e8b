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

package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
)

// Filter decides whether a file found in a directory gets processed.
type Filter func(path string) bool

/*
	Resolve turns path into the list of files to process. A file is returned
	as is, without consulting filter. For a directory, the regular files in it
	that pass filter are returned in lexical order, descending into
	sub-directories only when recursive is set. A nil filter accepts all files.
*/
func Resolve(path string, recursive bool, filter Filter) ([]string, error) {

	log.WithFields(log.Fields{
		"path":      path,
		"recursive": recursive,
	}).Debug("resolving input")

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %s", path)
	}

	if !fi.IsDir() {
		return []string{path}, nil
	}

	accept := func(p string) bool {
		return filter == nil || filter(p)
	}

	var ret []string

	if !recursive {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			p := filepath.Join(path, e.Name())
			if e.Type().IsRegular() && accept(p) {
				ret = append(ret, p)
			}
		}
		return ret, nil
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && accept(p) {
			ret = append(ret, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(ret)
	return ret, nil
}
