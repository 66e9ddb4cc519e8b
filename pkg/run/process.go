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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/format"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/op"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/report"
)

// usage, short, and long help per operation
var processHelp = map[op.Op][3]string{

	op.Parse: {
		"parse [-r] [-s] [-v] [-j {jobs}] [-o {text|yaml|json}] {file|folder}",
		"inspect security sectors",
		`
Use the parse command to decode security sector files (SS.bin) and check them
for consistency. Files are never modified.`},

	op.Repair: {
		"repair [-r] [-s] [-n] [-v] [-j {jobs}] [-o {text|yaml|json}] {file|folder}",
		"repair security sectors",
		`
Use the repair command to fix the response table of XGD2 and XGD3 security
sectors, and set their angle fields to the canonical values. Repaired files are
written back in place. A sector that can not be repaired safely is left as it
is, with an [ERROR] line telling why.`},

	op.Clean: {
		"clean [-r] [-s] [-n] [-v] [-j {jobs}] [-o {text|yaml|json}] {file|folder}",
		"set canonical angle fields",
		`
Use the clean command to set the angle fields of XGD2 and XGD3 security sectors
to their canonical values, without any further checks. Cleaned files are written
back in place.`},

	op.Rebuild: {
		"rebuild [-r] [-s] [-n] [-v] [-j {jobs}] [-o {text|yaml|json}] {file|folder}",
		"rebuild security sectors from raw captures",
		`
Use the rebuild command to turn raw 2064 byte security sector captures into
2048 byte sectors. The rebuilt sector replaces the capture file.`},

	op.ParseDMI: {
		"dmi [-r] [-s] [-v] [-j {jobs}] [-o {text|yaml|json}] {file|folder}",
		"inspect DMI sectors",
		`
Use the dmi command to decode disc manufacturing information files (DMI.bin).`},

	op.ParseXBE: {
		"xbe [-r] [-s] [-v] [-j {jobs}] [-o {text|yaml|json}] {file|folder}",
		"inspect XBE certificates",
		`
Use the xbe command to decode the certificate of Xbox executables (default.xbe).`},
}

/*
	NewProcess creates the command for operation o. Commands for operations
	that modify files get a dry run setting.
*/
func NewProcess(o op.Op) *Process {

	h := processHelp[o]

	p := &Process{op: o}
	p.Runner = *NewRunner(h[0], h[1], h[2], "", runnerHelpEpilogue, p.Run)

	p.AddBaseSettings()
	if o.Modifies() {
		p.AddSettings(Setting{Target: &p.DryRun, Flag: "dry-run", Short: "n",
			Help: "only report, do not write any files"})
	}

	return p
}

//
type Process struct {
	//
	Runner
	//
	DryRun bool
	//
	op  op.Op
	out report.Format
}

//
func (p *Process) Run() error {

	p.ParseSettings()

	path, err := p.input()
	if err != nil {
		return err
	}

	if p.out, err = p.format(); err != nil {
		return err
	}

	files, err := p.resolve(path, p.op.Input())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files to process in %s", path)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := p.newBatch().Run(ctx, files, p.process)
	if err != nil {
		return fmt.Errorf("interrupted: %s", s)
	}

	if len(files) > 1 {
		log.Infof("%s: %s", p.op, s)
	}
	if s.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", s.Failed, s.Files)
	}
	return nil
}

// process runs the operation on one file and renders its report to out.
func (p *Process) process(ctx context.Context, path string, out io.Writer) error {

	outcome, err := p.apply(path)
	if err != nil {
		rep := report.New(path, "")
		rep.AddError(err)
		if rerr := rep.Render(out, p.out, p.Verbose); rerr != nil {
			log.Errorf("cannot render report for %s: %v", path, rerr)
		}
		return err
	}

	if outcome.Output != nil {
		if p.DryRun {
			outcome.Report.Infof("Dry run, %s not written", path)
		} else if err := p.write(path, outcome.Output); err != nil {
			outcome.Err = err
			outcome.Report.AddError(err)
		} else {
			outcome.Report.Infof("Wrote %s", path)
		}
	}

	if err := outcome.Report.Render(out, p.out, p.Verbose); err != nil {
		return err
	}
	if p.out == report.Text {
		fmt.Fprintln(out)
	}

	if outcome.Err != nil {
		return outcome.Err
	}
	if outcome.Report.HasErrors() {
		return fmt.Errorf("%s: errors found", path)
	}
	return nil
}

//
func (p *Process) apply(path string) (*op.Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return op.Apply(p.op, path, bufio.NewReader(f)), nil
}

//
func (p *Process) write(path string, data []byte) error {
	w, err := format.NewFormat(format.TypeSS)
	if err != nil {
		return err
	}
	return format.WriteFile(path, data, w)
}
