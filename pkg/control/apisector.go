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

package control

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/op"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/report"
)

// OutcomeHeader carries the condensed outcome of an operation.
const OutcomeHeader = "X-XGD-Outcome"

//
func (a *api) sector(w http.ResponseWriter, req *http.Request) {
	o, err := op.GetOp(mux.Vars(req)["op"])
	if handleError(err, http.StatusNotFound, w) {
		return
	}
	a.apply(o, w, req)
}

//
func (a *api) fixedOp(o op.Op) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		a.apply(o, w, req)
	}
}

/*
	apply runs o on the request body. Operations that yield a sector reply
	with the resulting sector bytes, unless the report query flag is set; all
	others reply with the rendered report. A failed operation always replies
	with the report, and status 422.
*/
func (a *api) apply(o op.Op, w http.ResponseWriter, req *http.Request) {

	f, err := getFormat(req)
	if handleError(err, http.StatusBadRequest, w) {
		return
	}

	source, _ := getArg(req, "name")
	out := op.Apply(o, source, io.LimitReader(req.Body, maxBody))
	req.Body.Close()

	status := out.Status()
	a.metrics.observe(o, status)
	w.Header().Set(OutcomeHeader, status)

	code := http.StatusOK
	if out.Err != nil {
		code = http.StatusUnprocessableEntity
	}

	if code == http.StatusOK && o.Modifies() && !isFlagSet(req, "report") {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(code)
		w.Write(out.Result())
		return
	}

	sendReport(out.Report, f, isFlagSet(req, "verbose"), code, w)
}

//
func sendReport(rep *report.Report, f report.Format, verbose bool,
	statusCode int, w http.ResponseWriter) {

	var buf bytes.Buffer
	if handleError(rep.Render(&buf, f, verbose),
		http.StatusInternalServerError, w) {
		return
	}

	switch f {
	case report.JSON:
		setHeaders(w.Header(), true)
	case report.YAML:
		w.Header().Set("Content-Type", "application/yaml; charset=UTF-8")
	default:
		setHeaders(w.Header(), false)
	}

	w.WriteHeader(statusCode)
	w.Write(buf.Bytes())
}
