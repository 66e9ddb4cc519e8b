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

package report

import (
	"fmt"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/base"
)

// Fact is a single named value extracted from a sector. Detail facts are
// only shown in verbose output.
type Fact struct {
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value" yaml:"value"`
	Detail bool   `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Table is a block of tabular data, e.g. the decrypted challenge table.
type Table struct {
	Title  string     `json:"title" yaml:"title"`
	Header []string   `json:"header" yaml:"header"`
	Rows   [][]string `json:"rows" yaml:"rows"`
	Detail bool       `json:"detail,omitempty" yaml:"detail,omitempty"`
}

//
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// one of fact, diagnostic, or table
type item struct {
	fact  *Fact
	diag  *base.Diagnostic
	table *Table
}

/*
	Report collects everything found while looking at one file, in the order
	in which it was found. The text renderer keeps that order, so warnings show
	up next to the facts they refer to.
*/
type Report struct {
	Source string
	Kind   string
	items  []item
}

//
func New(source, kind string) *Report {
	return &Report{Source: source, Kind: kind}
}

//
func (r *Report) Add(key string, format string, args ...interface{}) {
	r.items = append(r.items, item{fact: &Fact{
		Key: key, Value: fmt.Sprintf(format, args...)}})
}

//
func (r *Report) AddDetail(key string, format string, args ...interface{}) {
	r.items = append(r.items, item{fact: &Fact{
		Key: key, Value: fmt.Sprintf(format, args...), Detail: true}})
}

//
func (r *Report) AddTable(t *Table) {
	r.items = append(r.items, item{table: t})
}

//
func (r *Report) Diag(d base.Diagnostic) {
	r.items = append(r.items, item{diag: &d})
}

//
func (r *Report) Infof(format string, args ...interface{}) {
	r.Diag(base.Diagnostic{Severity: base.Info, Message: fmt.Sprintf(format, args...)})
}

//
func (r *Report) Warnf(format string, args ...interface{}) {
	r.Diag(base.Diagnostic{Severity: base.Warning, Message: fmt.Sprintf(format, args...)})
}

//
func (r *Report) Errorf(format string, args ...interface{}) {
	r.Diag(base.Diagnostic{Severity: base.Failure, Message: fmt.Sprintf(format, args...)})
}

// AddDiagnostics appends all of ds, in order.
func (r *Report) AddDiagnostics(ds base.Diagnostics) {
	for _, d := range ds {
		r.Diag(d)
	}
}

// AddError records err as a diagnostic, see base.Diagnostics.AddError.
func (r *Report) AddError(err error) {
	var ds base.Diagnostics
	ds.AddError(err)
	r.AddDiagnostics(ds)
}

//
func (r *Report) Facts() []Fact {
	var ret []Fact
	for _, it := range r.items {
		if it.fact != nil {
			ret = append(ret, *it.fact)
		}
	}
	return ret
}

// Get returns the value of the first fact with the given key.
func (r *Report) Get(key string) (string, bool) {
	for _, it := range r.items {
		if it.fact != nil && it.fact.Key == key {
			return it.fact.Value, true
		}
	}
	return "", false
}

//
func (r *Report) Tables() []Table {
	var ret []Table
	for _, it := range r.items {
		if it.table != nil {
			ret = append(ret, *it.table)
		}
	}
	return ret
}

//
func (r *Report) Diagnostics() base.Diagnostics {
	var ret base.Diagnostics
	for _, it := range r.items {
		if it.diag != nil {
			ret = append(ret, *it.diag)
		}
	}
	return ret
}

//
func (r *Report) HasErrors() bool {
	return r.Diagnostics().HasErrors()
}
