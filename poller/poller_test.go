package poller

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/anti-social/inverter2mqtt/hardware/inverter"
	"github.com/anti-social/inverter2mqtt/helpers"
	"github.com/anti-social/inverter2mqtt/stat"
	"github.com/anti-social/inverter2mqtt/state"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
)

const testConfig = `
inverter {
	id = "inv1"
	command "QPIGS" {
		sensor "grid_voltage" { value_type = "float" }
		sensor "-" {}
		sensor "load_percent" { value_type = "integer" }
	}
	command "QMOD" {
		sensor "device_mode" { value_type = "string" }
	}
}`

type published struct {
	sensor string
	value  string
}

type fakePublisher struct {
	mu   sync.Mutex
	pub  []published
	errs []error
	ch   chan struct{}
}

func newFakePublisher() *fakePublisher { return &fakePublisher{ch: make(chan struct{}, 64)} }

func (self *fakePublisher) PublishDiscovery(context.Context) error { return nil }
func (self *fakePublisher) Close()                                 {}

func (self *fakePublisher) PublishState(sensor, value string) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.errs) > 0 {
		err := self.errs[0]
		self.errs = self.errs[1:]
		return err
	}
	self.pub = append(self.pub, published{sensor, value})
	select {
	case self.ch <- struct{}{}:
	default:
	}
	return nil
}

func (self *fakePublisher) Published() []published {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]published(nil), self.pub...)
}

func newTestPoller(t testing.TB, rs ...inverter.MockR) (*Poller, *fakePublisher, *inverter.MockDevice, *state.Global) {
	_, g, mock := state.NewTestContext(t, testConfig, rs...)
	pub := newFakePublisher()
	g.Tele = pub
	p := New(g)
	p.Backoff = &helpers.Backoff{}
	return p, pub, mock, g
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	p, pub, mock, g := newTestPoller(t,
		inverter.MockR{Request: "QPIGS", Response: inverter.MockResponse("230.1 49.9 12")},
		inverter.MockR{Request: "QMOD", Response: inverter.MockResponse("B")},
	)
	require.NoError(t, p.RunOnce(context.Background()))
	assert.Equal(t, []published{
		{"grid_voltage", "230.1"},
		{"load_percent", "12"},
		{"device_mode", "B"},
	}, pub.Published())
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, float64(1), testutil.ToFloat64(g.Stats.CommandTotal.WithLabelValues("QPIGS", stat.ResultOk)))
	assert.Equal(t, 230.1, testutil.ToFloat64(g.Stats.SensorValue.WithLabelValues("grid_voltage")))
	assert.Equal(t, float64(12), testutil.ToFloat64(g.Stats.SensorValue.WithLabelValues("load_percent")))
	assert.Equal(t, float64(3), testutil.ToFloat64(g.Stats.PublishTotal.WithLabelValues(stat.ResultOk)))
}

func TestRunOnceCommandError(t *testing.T) {
	t.Parallel()

	p, pub, mock, g := newTestPoller(t,
		inverter.MockR{Request: "QPIGS", Response: inverter.MockResponse("230.1 49.9 xx")},
		inverter.MockR{Request: "QMOD", Response: inverter.MockResponse("L")},
	)
	err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load_percent")
	assert.Equal(t, []published{{"device_mode", "L"}}, pub.Published())
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, mock.Opens())
	assert.Equal(t, float64(1), testutil.ToFloat64(g.Stats.CommandTotal.WithLabelValues("QPIGS", stat.ResultError)))
}

func TestDeviceErrorResets(t *testing.T) {
	t.Parallel()

	p, pub, mock, g := newTestPoller(t,
		inverter.MockR{Request: "QPIGS", ReadErr: io.ErrUnexpectedEOF},
		inverter.MockR{Request: "QMOD", Response: inverter.MockResponse("B")},
	)
	err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, inverter.IsDeviceError(err))
	assert.Equal(t, []published{{"device_mode", "B"}}, pub.Published())
	assert.Equal(t, 2, mock.Opens())
	assert.Equal(t, float64(1), testutil.ToFloat64(g.Stats.DeviceResets))
}

func TestMissingSensorValue(t *testing.T) {
	t.Parallel()

	p, pub, _, _ := newTestPoller(t,
		inverter.MockR{Request: "QPIGS", Response: inverter.MockResponse("230.1")},
		inverter.MockR{Request: "QMOD", Response: inverter.MockResponse("B")},
	)
	require.NoError(t, p.RunOnce(context.Background()))
	assert.Equal(t, []published{{"grid_voltage", "230.1"}, {"device_mode", "B"}}, pub.Published())
}

func TestPublishErrorSkipsCommand(t *testing.T) {
	t.Parallel()

	p, pub, _, g := newTestPoller(t,
		inverter.MockR{Request: "QPIGS", Response: inverter.MockResponse("231.0 50.0 07")},
		inverter.MockR{Request: "QMOD", Response: inverter.MockResponse("B")},
	)
	pub.errs = []error{fmt.Errorf("broken pipe")}
	require.NoError(t, p.RunOnce(context.Background()))
	assert.Equal(t, []published{{"device_mode", "B"}}, pub.Published())
	assert.Equal(t, float64(1), testutil.ToFloat64(g.Stats.PublishTotal.WithLabelValues(stat.ResultError)))
}

func TestRetryInterrupted(t *testing.T) {
	t.Parallel()

	p, pub, _, _ := newTestPoller(t,
		inverter.MockR{Request: "QPIGS", ReadErr: io.ErrUnexpectedEOF},
	)
	p.Backoff = &helpers.Backoff{Min: time.Hour, Max: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.RunOnce(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poller interrupted")
	assert.Len(t, pub.Published(), 0)
}

func TestRun(t *testing.T) {
	t.Parallel()

	p, pub, mock, _ := newTestPoller(t,
		inverter.MockR{Request: "QPIGS", Response: inverter.MockResponse("230.1 49.9 12")},
		inverter.MockR{Request: "QMOD", Response: inverter.MockResponse("B")},
	)
	p.Interval = time.Hour

	a := alive.NewAlive()
	a.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx, a)
	for i := 0; i < 3; i++ {
		select {
		case <-pub.ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting publish #%d", i)
		}
	}
	cancel()
	a.Wait()
	assert.False(t, a.IsRunning())
	assert.Len(t, pub.Published(), 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}
