// Package poller periodically executes configured inverter commands
// and publishes decoded sensor values.
package poller

import (
	"context"
	"time"

	"github.com/anti-social/inverter2mqtt/hardware/inverter"
	"github.com/anti-social/inverter2mqtt/helpers"
	"github.com/anti-social/inverter2mqtt/log2"
	"github.com/anti-social/inverter2mqtt/stat"
	"github.com/anti-social/inverter2mqtt/state"
	"github.com/anti-social/inverter2mqtt/tele"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
)

type InverterSource interface {
	Inverter() (*inverter.Inverter, error)
	ResetDevice()
}

type Poller struct {
	Source    InverterSource
	Commands  []inverter.CommandConfig
	Publisher tele.Publisher
	Stats     *stat.Stats
	Log       *log2.Log
	Interval  time.Duration
	Backoff   *helpers.Backoff
}

func New(g *state.Global) *Poller {
	return &Poller{
		Source:    g,
		Commands:  g.Commands(),
		Publisher: g.Tele,
		Stats:     g.Stats,
		Log:       g.Log,
		Interval:  g.Config.Inverter.QueryInterval(),
		Backoff:   g.Config.Inverter.RetryBackoff(),
	}
}

// Run polls until ctx is done or a is stopped.
// Caller must a.Add(1) before starting Run.
func (self *Poller) Run(ctx context.Context, a *alive.Alive) {
	defer a.Done()
	stopCh := a.StopChan()
	go func() {
		select {
		case <-ctx.Done():
			a.Stop()
		case <-stopCh:
		}
	}()

	self.Log.Infof("poller start commands=%d interval=%v", len(self.Commands), self.Interval)
	for a.IsRunning() {
		if err := self.round(stopCh); err != nil {
			self.Log.Debugf("poller round err=%v", err)
		}
		if !helpers.SleepStop(self.Interval, stopCh) {
			break
		}
	}
	self.Log.Infof("poller stop")
}

// RunOnce executes every command once, returns folded command errors.
func (self *Poller) RunOnce(ctx context.Context) error {
	return self.round(ctx.Done())
}

func (self *Poller) round(stopCh <-chan struct{}) error {
	errs := make([]error, 0)
	for i := range self.Commands {
		cmd := &self.Commands[i]
		values, err := self.execute(cmd)
		if err != nil {
			errs = append(errs, err)
			delay := self.retryDelay()
			self.Log.Warningf("command=%s err=%v retry in %v", cmd.Command, err, delay)
			if !helpers.SleepStop(delay, stopCh) {
				errs = append(errs, errors.Errorf("poller interrupted"))
				break
			}
			continue
		}
		if self.Backoff != nil {
			self.Backoff.Reset()
		}
		self.publish(cmd, values)
	}
	return helpers.FoldErrors(errs)
}

func (self *Poller) retryDelay() time.Duration {
	if self.Backoff == nil {
		return 0
	}
	return self.Backoff.Failure()
}

func (self *Poller) execute(cmd *inverter.CommandConfig) (map[string]inverter.SensorValue, error) {
	inv, err := self.Source.Inverter()
	if err != nil {
		return nil, errors.Trace(err)
	}
	tbegin := time.Now()
	values, err := inv.ExecuteCommand(cmd)
	self.Stats.ObserveCommand(cmd.Command, time.Since(tbegin), err)
	if err != nil {
		if inverter.IsDeviceError(err) {
			self.Source.ResetDevice()
		}
		return nil, err
	}
	return values, nil
}

func (self *Poller) publish(cmd *inverter.CommandConfig, values map[string]inverter.SensorValue) {
	for _, s := range cmd.Sensors {
		if s == nil {
			continue
		}
		v, ok := values[s.Name]
		if !ok {
			self.Log.Warningf("command=%s missing value for sensor=%s", cmd.Command, s.Name)
			continue
		}
		if f, ok := v.Float64(); ok {
			self.Stats.ObserveSensor(s.Name, f)
		}
		if self.Publisher == nil {
			continue
		}
		err := self.Publisher.PublishState(s.Name, v.String())
		self.Stats.ObservePublish(err)
		if err != nil {
			self.Log.Warningf("command=%s sensor=%s publish err=%v", cmd.Command, s.Name, err)
			break
		}
		self.Log.Debugf("sensor=%s value=%s", s.Name, v.String())
	}
}
