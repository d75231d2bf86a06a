// Package metrics bridges in-process rcrowley/go-metrics counters to a
// Prometheus exposition endpoint, grounded on cmd/kcn/main.go's
// metrics.Enabled / prometheus.DefaultRegisterer / promhttp wiring. The
// teacher's own internal `metrics` package was not present in the
// retrieval pack, so this wraps the underlying libraries directly.
package metrics

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gometrics "github.com/rcrowley/go-metrics"

	golog "github.com/godanchain/node/log"
)

var logger = golog.NewModuleLogger(golog.ModuleCmd)

// Registry is the process-wide go-metrics registry every counter in this
// repository registers against.
var Registry = gometrics.NewRegistry()

// GetOrRegisterCounter returns the named counter, creating it on first use.
func GetOrRegisterCounter(name string) gometrics.Counter {
	return gometrics.GetOrRegisterCounter(name, Registry)
}

// GetOrRegisterGauge returns the named gauge, creating it on first use.
func GetOrRegisterGauge(name string) gometrics.Gauge {
	return gometrics.GetOrRegisterGauge(name, Registry)
}

// promCollector adapts the go-metrics registry to prometheus.Collector by
// snapshotting every registered counter as a prometheus counter value and
// every gauge as a gauge value on each scrape.
type promCollector struct {
	namespace string
}

func (c *promCollector) Describe(ch chan<- *prometheus.Desc) {}

func (c *promCollector) Collect(ch chan<- prometheus.Metric) {
	Registry.Each(func(name string, i interface{}) {
		desc := prometheus.NewDesc(c.namespace+"_"+sanitize(name), name, nil, nil)
		switch m := i.(type) {
		case gometrics.Counter:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(m.Count()))
		case gometrics.Gauge:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(m.Value()))
		}
	})
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

// ServeHTTP registers the bridge collector and starts a status+metrics HTTP
// server on addr, mirroring cmd/kcn/main.go's PrometheusExporter goroutine.
func ServeHTTP(addr string, namespace string, statusHandler httprouter.Handle) {
	prometheus.MustRegister(&promCollector{namespace: namespace})

	router := httprouter.New()
	router.Handler("GET", "/metrics", promhttp.Handler())
	if statusHandler != nil {
		router.GET("/status", statusHandler)
	}

	go func() {
		if err := http.ListenAndServe(addr, router); err != nil {
			logger.Error("metrics server exited", "addr", addr, "err", err)
		}
	}()
}
