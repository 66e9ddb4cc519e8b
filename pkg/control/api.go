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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/op"
	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/report"
)

// DefaultPort is used when the server address has no port.
const DefaultPort = 8888

// largest request body accepted, XBE images included
const maxBody = 64 << 20

// Version is reported by the version endpoint.
var Version = "dev"

//
type APIServer interface {
	Serve() error
	Stop() error
	Handler() http.Handler
}

//
func NewAPIServer(addr string) APIServer {
	return &api{address: addr, metrics: newMetrics()}
}

//
type api struct {
	address string
	server  *http.Server
	metrics *metrics
}

//
func (a *api) Handler() http.Handler {

	router := mux.NewRouter().StrictSlash(true)

	addRoute(router, "ss", "POST",
		"/ss/{op:parse|repair|clean|rebuild}", a.sector)
	addRoute(router, "dmi", "POST", "/dmi/parse", a.fixedOp(op.ParseDMI))
	addRoute(router, "xbe", "POST", "/xbe/parse", a.fixedOp(op.ParseXBE))
	addRoute(router, "version", "GET", "/version", a.version)

	router.Methods("GET").Path("/metrics").Name("metrics").Handler(
		requestLogger(a.metrics.handler(), "metrics"))

	return router
}

//
func (a *api) Serve() error {

	addr := a.address
	if len(strings.Split(addr, ":")) < 2 {
		addr = fmt.Sprintf("%s:%d", a.address, DefaultPort)
	}

	log.Infof("xgdctl API starts listening on %s", addr)
	a.server = &http.Server{Addr: addr, Handler: a.Handler()}

	err := a.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

//
func (a *api) Stop() error {
	if a.server != nil {
		log.Info("API server stopping...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := a.server.Shutdown(ctx)
		a.server = nil
		return err
	}
	return nil
}

//
func addRoute(r *mux.Router, name, method, pattern string,
	handler http.HandlerFunc) {
	r.Methods(method).
		Path(pattern).
		Name(name).
		Handler(requestLogger(handler, name))
}

// requestLogger logs begin and end of each request, tagged with a request ID
// that is also sent back to the client.
func requestLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		logger := log.WithFields(log.Fields{
			"remote":  r.RemoteAddr,
			"method":  r.Method,
			"path":    r.RequestURI,
			"request": id,
		})
		logger.Debugf("API BEGIN | %s", name)

		start := time.Now()
		inner.ServeHTTP(w, r)

		logger.WithField("duration", time.Since(start)).Debugf(
			"API END   | %s", name)
	})
}

//
func (a *api) version(w http.ResponseWriter, req *http.Request) {
	if wantsJSON(req) {
		sendJSONReply(map[string]string{"version": Version}, http.StatusOK, w)
	} else {
		sendReply([]byte(Version), http.StatusOK, w)
	}
}

//
func getArg(req *http.Request, arg string) (string, error) {
	ret := req.URL.Query().Get(arg)
	if ret != "" {
		return url.QueryUnescape(ret)
	}
	return ret, nil
}

//
func isFlagSet(req *http.Request, flag string) bool {
	arg, _ := getArg(req, flag)
	return arg == "true"
}

//
func getFormat(req *http.Request) (report.Format, error) {
	if wantsJSON(req) {
		return report.JSON, nil
	}
	arg, err := getArg(req, "output")
	if err != nil {
		return report.Text, err
	}
	return report.GetFormat(arg)
}

//
func setHeaders(h http.Header, json bool) {
	if json {
		h.Set("Content-Type", "application/json; charset=UTF-8")
	} else {
		h.Set("Content-Type", "text/plain; charset=UTF-8")
	}
}

//
func handleError(e error, statusCode int, w http.ResponseWriter) bool {

	if e == nil {
		return false
	}

	log.Errorf("%v", e)

	setHeaders(w.Header(), false)
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(fmt.Sprintf("%v\n", e))); err != nil {
		log.Errorf("problem writing error: %v", err)
	}

	return true
}

//
func sendReply(body []byte, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), false)
	w.WriteHeader(statusCode)
	if _, err := fmt.Fprintf(w, "%s\n", body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendJSONReply(obj interface{}, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), true)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Errorf("problem writing reply: %v", err)
	}
}

//
func wantsJSON(req *http.Request) bool {
	return strings.HasPrefix(req.Header.Get("Accept"), "application/json")
}
