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

package op

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/dmi"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/format"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/report"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/ss"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/variant"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/xbe"
)

// Op is an operation on a single file.
type Op string

//
const (
	Parse    Op = "parse"
	Repair   Op = "repair"
	Clean    Op = "clean"
	Rebuild  Op = "rebuild"
	ParseDMI Op = "dmi"
	ParseXBE Op = "xbe"
)

// outcomes, used as metric labels
const (
	OutcomeOK       = "ok"
	OutcomeWarning  = "warning"
	OutcomeModified = "modified"
	OutcomeRefused  = "refused"
	OutcomeFailed   = "failed"
)

//
func GetOp(name string) (Op, error) {
	switch o := Op(name); o {
	case Parse, Repair, Clean, Rebuild, ParseDMI, ParseXBE:
		return o, nil
	}
	return "", fmt.Errorf("unknown operation: %s", name)
}

// Input is the file type o reads.
func (o Op) Input() string {

	switch o {

	case Rebuild:
		return format.TypeCapture

	case ParseDMI:
		return format.TypeDMI

	case ParseXBE:
		return format.TypeXBE

	default:
		return format.TypeSS
	}
}

// Modifies reports whether o may produce a sector to write back.
func (o Op) Modifies() bool {
	return o == Repair || o == Clean || o == Rebuild
}

/*
	Outcome is the result of applying an operation to one file. Input holds the
	bytes read, if reading succeeded. Output is set only if the operation
	succeeded and produced a sector that differs from its input. Err is the
	fatal error, if any, and has also been recorded in Report.
*/
type Outcome struct {
	Op     Op
	Report *report.Report
	Input  []byte
	Output []byte
	Err    error
}

// Status condenses o into one of the Outcome* constants.
func (o *Outcome) Status() string {

	switch {

	case base.IsRefused(o.Err):
		return OutcomeRefused

	case o.Err != nil || o.Report.HasErrors():
		return OutcomeFailed

	case o.Output != nil:
		return OutcomeModified

	case o.Report.Diagnostics().Count(base.Warning) > 0:
		return OutcomeWarning

	default:
		return OutcomeOK
	}
}

// Result is the sector an operation ended up with: the output if there is
// one, the input otherwise. It's nil if the operation failed.
func (o *Outcome) Result() []byte {
	if o.Err != nil {
		return nil
	}
	if o.Output != nil {
		return o.Output
	}
	return o.Input
}

//
func (o *Outcome) fail(err error) *Outcome {
	o.Err = err
	o.Report.AddError(err)
	return o
}

/*
	Apply reads the input of operation o from in and runs o on it. source names
	the input in the report. Apply never writes anything; if the outcome
	carries an output sector, it's up to the caller to store it.
*/
func Apply(o Op, source string, in io.Reader) *Outcome {

	out := &Outcome{Op: o, Report: report.New(source, reportKind(o))}

	rw, err := format.NewFormat(o.Input())
	if err != nil {
		return out.fail(err)
	}

	data, err := rw.Read(in)
	if err != nil {
		return out.fail(err)
	}
	out.Input = data

	log.WithFields(log.Fields{
		"op":     o,
		"source": source,
		"bytes":  len(data),
	}).Debug("applying operation")

	switch o {

	case Parse:
		return out.parse(data)

	case Repair:
		return out.repair(data)

	case Clean:
		return out.clean(data)

	case Rebuild:
		return out.rebuild(data)

	case ParseDMI:
		return out.parseDMI(data)

	case ParseXBE:
		return out.parseXBE(data)

	default:
		return out.fail(fmt.Errorf("unknown operation: %s", o))
	}
}

//
func reportKind(o Op) string {
	switch o {
	case ParseDMI:
		return dmi.ReportKind
	case ParseXBE:
		return xbe.ReportKind
	default:
		return ss.ReportKind
	}
}

//
func (o *Outcome) parse(data []byte) *Outcome {
	s, err := ss.NewSector(data)
	if err != nil {
		return o.fail(err)
	}
	ss.Inspect(s, o.Report)
	return o
}

//
func (o *Outcome) repair(data []byte) *Outcome {

	s, err := ss.NewSector(data)
	if err != nil {
		return o.fail(err)
	}
	o.Report.Add("System", "%s", s.Variant().System())

	res, err := ss.Repair(s)
	o.Report.AddDiagnostics(res.Diagnostics)
	if err != nil {
		return o.fail(err)
	}

	if res.Changed {
		o.Output = res.Sector.Bytes()
		o.Report.Infof("Repaired %s SS", s.Variant())
	}
	return o
}

//
func (o *Outcome) clean(data []byte) *Outcome {

	s, err := ss.NewSector(data)
	if err != nil {
		return o.fail(err)
	}
	o.Report.Add("System", "%s", s.Variant().System())

	if s.Variant() == variant.XGD1 {
		o.Report.Infof("XGD1 SS has no angle fields, nothing to clean")
		return o
	}

	c, form := ss.Canonicalize(s)
	if c.Equal(s) {
		o.Report.Infof("SS is already clean (%s)", form)
		return o
	}

	o.Output = c.Bytes()
	o.Report.Infof("Cleaned SS from %s to %s angles", form,
		ss.CanonicalForm(c.Layout()))
	return o
}

//
func (o *Outcome) rebuild(data []byte) *Outcome {

	res, err := ss.Rebuild(data)
	o.Report.AddDiagnostics(res.Diagnostics)
	if err != nil {
		return o.fail(err)
	}

	o.Output = res.Sector.Bytes()
	o.Report.Add("System", "%s", res.Sector.Variant().System())
	o.Report.Infof("Rebuilt %s SS from raw capture", res.Sector.Variant())
	return o
}

//
func (o *Outcome) parseDMI(data []byte) *Outcome {
	d, err := dmi.Parse(data)
	if err != nil {
		return o.fail(err)
	}
	dmi.Inspect(d, o.Report)
	return o
}

//
func (o *Outcome) parseXBE(data []byte) *Outcome {
	c, err := xbe.Parse(data)
	if err != nil {
		return o.fail(err)
	}
	xbe.Inspect(c, o.Report)
	return o
}
