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
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Deterous/ParseXboxMetadata/pkg/xgd/op"
)

const namespace = "xgd"

// metrics lives in its own registry, so that several API servers can exist
// in one process.
type metrics struct {
	registry *prometheus.Registry
	sectors  *prometheus.CounterVec
}

//
func newMetrics() *metrics {

	m := &metrics{
		registry: prometheus.NewRegistry(),
		sectors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sectors_total",
			Help:      "Files processed by operation and outcome",
		}, []string{"op", "outcome"}),
	}

	m.registry.MustRegister(m.sectors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

//
func (m *metrics) observe(o op.Op, outcome string) {
	m.sectors.WithLabelValues(string(o), outcome).Inc()
}

//
func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
