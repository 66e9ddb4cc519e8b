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

package run

import (
	"fmt"
	"os"
	"runtime"

	"github.com/Deterous/ParseXboxMetadata/pkg/batch"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/format"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/report"
)

//
const runnerHelpEpilogue = `- When a flag can be set via environment variable, the variable name is given
  in parenthesis at the end of the flag explanation. Note however that a flag,
  when specified overrides an environment variable.

- Logging can be configured with these environment variables:

  LOG_FORMAT		set to 'json' for JSON logging
  LOG_FORCE_COLORS	set to non-empty for forcing colorized log entries
  LOG_METHODS		set to non-empty for including methods in log
  LOG_LEVEL		panic, fatal, error, warn, info, debug, trace
  LOG_FILE		additionally log to this file
`

/*
	NewRunner creates a base runner for commands to use. The parameters are
	passed to the base command wrapped by this runner.
*/
func NewRunner(use, short, long, helpPrologue, helpEpilogue string,
	exec func() error) *Runner {
	return &Runner{
		Command: *NewCommand(
			use, short, long, helpPrologue, helpEpilogue, exec),
	}
}

// Runner is the base for commands that work on a file or a folder of files.
type Runner struct {
	//
	Command
	//
	Recursive bool
	Filter    bool
	Verbose   bool
	Jobs      int
	Output    string
}

//
func (r *Runner) AddBaseSettings() {
	// setting targets must point into the final Runner value, so this runs
	// after NewRunner's result has been copied into the top level command
	r.AddSettings(
		Setting{Target: &r.Recursive, Flag: "recursive", Short: "r",
			Help: "descend into sub-folders"},
		Setting{Target: &r.Filter, Flag: "ss-only", Short: "s",
			Env: "XGD_SS_ONLY", Help: "in folders, only process files named " +
				"like dumps (SS*.bin, DMI*.bin, *.xbe)"},
		Setting{Target: &r.Verbose, Flag: "verbose", Short: "v",
			Env: "XGD_VERBOSE", Help: "include details and tables in reports"},
		Setting{Target: &r.Jobs, Flag: "jobs", Short: "j", Env: "XGD_JOBS",
			Default: runtime.NumCPU(),
			Help:    "number of files to process in parallel"},
		Setting{Target: &r.Output, Flag: "output", Short: "o",
			Env: "XGD_OUTPUT", Default: "text",
			Help: "report format, 'text', 'yaml', or 'json'"},
	)
}

// input returns the single path argument, file or folder.
func (r *Runner) input() (string, error) {
	if len(r.Args) != 1 {
		return "", fmt.Errorf(
			"expecting exactly one file or folder, got %d arguments", len(r.Args))
	}
	return r.Args[0], nil
}

//
func (r *Runner) format() (report.Format, error) {
	return report.GetFormat(r.Output)
}

// resolve lists the files to process for path, filtered by file type typ if
// the filter setting is on.
func (r *Runner) resolve(path, typ string) ([]string, error) {
	var filter batch.Filter
	if r.Filter {
		filter = func(p string) bool {
			return format.Match(typ, p)
		}
	}
	return batch.Resolve(path, r.Recursive, filter)
}

//
func (r *Runner) newBatch() *batch.Runner {
	return batch.NewRunner(r.Jobs, os.Stdout, false)
}
