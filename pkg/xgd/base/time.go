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

package base

import (
	"encoding/binary"
	"time"
)

const (
	// 1970-01-01 as a Windows FILETIME; anything earlier is treated as
	// invalid
	fileTimeEpoch = 0x19DB1DED53E8000
	fileTimeTicks = 10000000

	// TimeLayout is how timestamps are shown in reports
	TimeLayout = "2006-01-02 15:04:05.000000"
)

/*
	FileTime decodes an eight byte little endian Windows FILETIME. The second
	return value is false if the value lies before the Unix epoch, which is how
	mastering tools mark a missing timestamp.
*/
func FileTime(data []byte) (time.Time, bool) {
	if len(data) < 8 {
		return time.Time{}, false
	}
	ft := binary.LittleEndian.Uint64(data)
	if ft < fileTimeEpoch {
		return time.Time{}, false
	}
	ft -= fileTimeEpoch
	return time.Unix(int64(ft/fileTimeTicks),
		int64(ft%fileTimeTicks)*100).UTC(), true
}

// UnixTime decodes a four byte little endian time_t.
func UnixTime(data []byte) time.Time {
	if len(data) < 4 {
		return time.Time{}
	}
	return time.Unix(int64(binary.LittleEndian.Uint32(data)), 0).UTC()
}
