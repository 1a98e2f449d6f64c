// Package stat exposes poller and publisher counters as Prometheus metrics.
package stat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/anti-social/inverter2mqtt/log2"
	"github.com/juju/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOk    = "ok"
	ResultError = "error"
)

type Stats struct {
	Registry *prometheus.Registry

	CommandTotal    *prometheus.CounterVec   // labels: command, result
	CommandDuration *prometheus.HistogramVec // labels: command
	SensorValue     *prometheus.GaugeVec     // labels: sensor
	PublishTotal    *prometheus.CounterVec   // labels: result
	DeviceResets    prometheus.Counter
}

func New() *Stats {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

func NewWithRegistry(reg *prometheus.Registry) *Stats {
	s := &Stats{
		Registry: reg,
		CommandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inverter_command_total",
			Help: "Inverter commands executed.",
		}, []string{"command", "result"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inverter_command_duration_seconds",
			Help:    "Inverter command round trip time.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"command"}),
		SensorValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inverter_sensor_value",
			Help: "Last numeric sensor value.",
		}, []string{"sensor"}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_publish_total",
			Help: "MQTT state messages published.",
		}, []string{"result"}),
		DeviceResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inverter_device_reset_total",
			Help: "Device reopened after transport error.",
		}),
	}
	reg.MustRegister(s.CommandTotal, s.CommandDuration, s.SensorValue, s.PublishTotal, s.DeviceResets)
	return s
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOk
}

// Nil receiver is allowed in all Observe methods.
func (self *Stats) ObserveCommand(command string, d time.Duration, err error) {
	if self == nil {
		return
	}
	self.CommandTotal.WithLabelValues(command, result(err)).Inc()
	self.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

func (self *Stats) ObserveSensor(sensor string, v float64) {
	if self == nil {
		return
	}
	self.SensorValue.WithLabelValues(sensor).Set(v)
}

func (self *Stats) ObservePublish(err error) {
	if self == nil {
		return
	}
	self.PublishTotal.WithLabelValues(result(err)).Inc()
}

func (self *Stats) ObserveDeviceReset() {
	if self == nil {
		return
	}
	self.DeviceResets.Inc()
}

func (self *Stats) Handler() http.Handler {
	return promhttp.HandlerFor(self.Registry, promhttp.HandlerOpts{Registry: self.Registry})
}

// Serve runs metrics HTTP server on l until ctx is done.
func (self *Stats) Serve(ctx context.Context, l net.Listener, log *log2.Log) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", self.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Infof("metrics listen=%s", l.Addr())
	if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
		return errors.Annotate(err, "metrics serve")
	}
	return nil
}
