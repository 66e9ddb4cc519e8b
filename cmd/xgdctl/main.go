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

package main

import (
	"fmt"
	"os"

	"github.com/Deterous/ParseXboxMetadata/pkg/control"
	"github.com/Deterous/ParseXboxMetadata/pkg/run"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/op"
)

//
var XgdctlVersion string

//
func synopsis() {
	fmt.Print(`
synopsis: xgdctl {parse|repair|clean|rebuild|dmi|xbe|serve|version} ...

run 'xgdctl {action} -h|--help' to see detailed info

`)
}

//
func version() {
	fmt.Printf("\nxgdctl %s\n\n", XgdctlVersion)
}

//
func main() {

	var action string
	var args []string

	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	if XgdctlVersion != "" {
		control.Version = XgdctlVersion
	}

	switch action {

	case "parse", "repair", "clean", "rebuild", "dmi", "xbe":
		o, err := op.GetOp(action)
		run.DieOnError(err)
		run.DieOnError(run.NewProcess(o).Execute(args))

	case "serve":
		version()
		run.DieOnError(run.NewServe().Execute(args))

	case "version":
		version()

	case "":
		fallthrough
	case "-h":
		fallthrough
	case "--help":
		synopsis()

	default:
		run.Die("unknown action: %s\n", action)
	}
}
