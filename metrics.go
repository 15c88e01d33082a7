package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/goburrow/modbus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zathras777/ysiodo/odo"
	"github.com/zathras777/ysiodo/rtu"
)

// metrics exposes readings and read outcomes to Prometheus. It keeps its
// own registry so several instances can coexist in tests.
type metrics struct {
	registry    *prometheus.Registry
	measurement *prometheus.GaugeVec
	reads       *prometheus.CounterVec
	lastRead    prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		measurement: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ysiodo_measurement",
			Help: "Last value read from the probe",
		}, []string{"name", "unit"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ysiodo_reads_total",
			Help: "Data block reads by outcome",
		}, []string{"result"}),
		lastRead: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ysiodo_last_read_timestamp_seconds",
			Help: "Unix time of the last successful read",
		}),
	}
	m.registry.MustRegister(
		m.measurement,
		m.reads,
		m.lastRead,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) Name() string {
	return "metrics"
}

func (m *metrics) Publish(_ context.Context, r odo.Reading) error {
	for _, ms := range r.Measurements {
		m.measurement.WithLabelValues(ms.Name, ms.Unit).Set(ms.Value)
	}
	m.lastRead.Set(float64(r.Time.Unix()))
	return nil
}

func (m *metrics) ObserveRead(err error) {
	m.reads.WithLabelValues(readResult(err)).Inc()
}

func readResult(err error) string {
	var mErr *modbus.ModbusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, rtu.ErrTimeout):
		return "timeout"
	case errors.Is(err, rtu.ErrChecksum):
		return "checksum"
	case errors.Is(err, rtu.ErrMalformedFrame):
		return "malformed"
	case errors.Is(err, rtu.ErrDeviceMismatch):
		return "device_mismatch"
	case errors.Is(err, rtu.ErrTransport):
		return "transport"
	case errors.As(err, &mErr):
		return "exception"
	}
	return "other"
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// serveMetrics serves /metrics on listen until ctx is done.
func serveMetrics(ctx context.Context, listen string, h http.Handler, log logr.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Info("serving metrics", "listen", listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
