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
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/report"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// Inspect writes the certificate into rep.
func Inspect(c *Certificate, rep *report.Report) {

	rep.AddDiagnostics(c.Warnings)

	rep.Add("XBE Timestamp", "%s", c.ImageTimestamp.Format(timeLayout))
	rep.Add("Certificate Timestamp", "%s", c.Timestamp.Format(timeLayout))
	rep.Add("Title ID", "%s", c.TitleID)
	rep.Add("Title Name", "%s", c.TitleName)

	if len(c.AltTitleIDs) > 0 {
		t := &report.Table{Title: "Alternate Title IDs", Header: []string{"ID"}}
		for _, id := range c.AltTitleIDs {
			t.AddRow(id.String())
		}
		rep.AddTable(t)
	}

	rep.Add("Allowed Media", "0x%x", c.AllowedMedia)
	rep.Add("Game Region", "0x%x", c.Region)
	rep.Add("Game Ratings", "0x%x", c.Ratings)
	rep.Add("Disc Number", "%d", c.DiscNumber)
	rep.Add("Certificate Version", "%d", c.Version)
}
