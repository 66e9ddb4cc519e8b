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
	"errors"
	"fmt"
	"io"
)

//
type Severity int

const (
	Info Severity = iota
	Warning
	Failure
)

// Prefix returns the tag printed in front of a diagnostic line.
func (s Severity) Prefix() string {

	switch s {

	case Info:
		return "[INFO]"

	case Warning:
		return "[WARNING]"

	default:
		return "[ERROR]"
	}
}

//
func (s Severity) String() string {

	switch s {

	case Info:
		return "info"

	case Warning:
		return "warning"

	default:
		return "error"
	}
}

//
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

//
func (s *Severity) UnmarshalText(text []byte) error {

	switch string(text) {

	case "info":
		*s = Info

	case "warning":
		*s = Warning

	case "error":
		*s = Failure

	default:
		return fmt.Errorf("unknown severity: %s", text)
	}

	return nil
}

//
type Diagnostic struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Code     Code     `json:"code,omitempty" yaml:"code,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

//
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s", d.Severity.Prefix(), d.Message)
}

// Diagnostics collects the messages produced while working on one file.
type Diagnostics []Diagnostic

//
func (d *Diagnostics) Infof(format string, args ...interface{}) {
	*d = append(*d, Diagnostic{Severity: Info, Message: fmt.Sprintf(format, args...)})
}

//
func (d *Diagnostics) Warnf(format string, args ...interface{}) {
	*d = append(*d, Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...)})
}

//
func (d *Diagnostics) Errorf(format string, args ...interface{}) {
	*d = append(*d, Diagnostic{Severity: Failure, Message: fmt.Sprintf(format, args...)})
}

/*
	AddError records err. Integrity warnings become warnings, every other
	classified or unclassified error becomes an error line.
*/
func (d *Diagnostics) AddError(err error) {
	if err == nil {
		return
	}
	diag := Diagnostic{Severity: Failure, Message: err.Error()}
	var e *Error
	if errors.As(err, &e) {
		diag.Code = e.Code
		if e.Class == IntegrityWarning && !IsRefused(err) {
			diag.Severity = Warning
		}
	}
	*d = append(*d, diag)
}

//
func (d *Diagnostics) Append(o Diagnostics) {
	*d = append(*d, o...)
}

//
func (d Diagnostics) HasErrors() bool {
	for _, e := range d {
		if e.Severity == Failure {
			return true
		}
	}
	return false
}

//
func (d Diagnostics) Count(s Severity) int {
	n := 0
	for _, e := range d {
		if e.Severity == s {
			n++
		}
	}
	return n
}

// Emit writes one line per diagnostic.
func (d Diagnostics) Emit(w io.Writer) {
	for _, e := range d {
		fmt.Fprintln(w, e.String())
	}
}
