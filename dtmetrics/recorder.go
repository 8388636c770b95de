/*
 * MIT License
 *
 * Copyright (c) 2026 The dtest-go Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package dtmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/norensa/dtest"
)

// Recorder owns one namespace of collectors registered against a single
// prometheus.Registerer. Its zero value is not usable; construct with New.
type Recorder struct {
	testsTotal       *prometheus.CounterVec
	testDuration     *prometheus.HistogramVec
	memoryAllocated  *prometheus.CounterVec
	memoryFreed      *prometheus.CounterVec
	memoryPeak       *prometheus.GaugeVec
	networkSent      *prometheus.CounterVec
	networkReceived  *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors against reg. A nil
// reg registers against prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		testsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtest",
			Name:      "tests_total",
			Help:      "Number of tests run, partitioned by module and terminal status.",
		}, []string{"module", "status"}),

		testDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dtest",
			Name:      "test_duration_seconds",
			Help:      "Wall-clock duration of a test's measured run.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"module"}),

		memoryAllocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtest",
			Name:      "memory_allocated_bytes_total",
			Help:      "Bytes allocated through the resource tracking facade while tests ran.",
		}, []string{"module"}),

		memoryFreed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtest",
			Name:      "memory_freed_bytes_total",
			Help:      "Bytes freed through the resource tracking facade while tests ran.",
		}, []string{"module"}),

		memoryPeak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dtest",
			Name:      "memory_peak_bytes",
			Help:      "Highest peak net-allocation observed for a module's most recent run.",
		}, []string{"module"}),

		networkSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtest",
			Name:      "network_sent_bytes_total",
			Help:      "Bytes sent over tracked sockets while tests ran.",
		}, []string{"module"}),

		networkReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtest",
			Name:      "network_received_bytes_total",
			Help:      "Bytes received over tracked sockets while tests ran.",
		}, []string{"module"}),
	}

	reg.MustRegister(
		r.testsTotal,
		r.testDuration,
		r.memoryAllocated,
		r.memoryFreed,
		r.memoryPeak,
		r.networkSent,
		r.networkReceived,
	)

	return r
}

// Observe folds one Record into the collectors. Call it once per Record in
// a Report, typically right after RunAll returns.
func (r *Recorder) Observe(rec dtest.Record) {
	r.testsTotal.WithLabelValues(rec.Module, rec.Status.String()).Inc()
	r.testDuration.WithLabelValues(rec.Module).Observe(rec.Duration.Seconds())
	r.memoryAllocated.WithLabelValues(rec.Module).Add(float64(rec.Snapshot.MemoryAllocate.Size))
	r.memoryFreed.WithLabelValues(rec.Module).Add(float64(rec.Snapshot.MemoryDeallocate.Size))
	r.memoryPeak.WithLabelValues(rec.Module).Set(float64(rec.Snapshot.MemoryMax.Size))
	r.networkSent.WithLabelValues(rec.Module).Add(float64(rec.Snapshot.NetworkSend.Size))
	r.networkReceived.WithLabelValues(rec.Module).Add(float64(rec.Snapshot.NetworkReceive.Size))
}

// ObserveReport folds every Record in a Report.
func (r *Recorder) ObserveReport(report dtest.Report) {
	for _, rec := range report.Records {
		r.Observe(rec)
	}
}

// Handler returns an http.Handler serving the registered collectors in the
// Prometheus exposition format, suitable for mounting at e.g. "/metrics".
func Handler() http.Handler {
	return promhttp.Handler()
}
