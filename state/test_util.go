package state

import (
	"context"
	"testing"

	"github.com/anti-social/inverter2mqtt/hardware/device"
	"github.com/anti-social/inverter2mqtt/hardware/inverter"
	"github.com/anti-social/inverter2mqtt/log2"
	"github.com/anti-social/inverter2mqtt/stat"
	"github.com/prometheus/client_golang/prometheus"
)

// NewTestContext returns Global with config from confString
// and inverter on MockDevice scripted with rs.
func NewTestContext(t testing.TB, confString string, rs ...inverter.MockR) (context.Context, *Global, *inverter.MockDevice) {
	fs := NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	log := log2.NewTest(t, log2.LDebug)
	// log := log2.NewStderr(log2.LDebug) // useful with panics
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log)
	g.Stats = stat.NewWithRegistry(prometheus.NewRegistry())
	mock := inverter.NewMockDevice(t, rs...)
	g.OpenDevice = func(device.Config, *log2.Log) (device.Device, error) { return mock.Reopen(), nil }
	g.MustInit(ctx, MustReadConfig(log, fs, "test-inline"))
	return ctx, g, mock
}
