package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/anti-social/inverter2mqtt/hardware/device"
	"github.com/anti-social/inverter2mqtt/hardware/inverter"
	"github.com/anti-social/inverter2mqtt/helpers"
	"github.com/anti-social/inverter2mqtt/log2"
	"github.com/anti-social/inverter2mqtt/stat"
	"github.com/anti-social/inverter2mqtt/tele"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
)

type Global struct {
	Alive  *alive.Alive
	Config *Config
	Log    *log2.Log
	Stats  *stat.Stats
	Tele   tele.Publisher

	// device.Open unless replaced in tests
	OpenDevice func(device.Config, *log2.Log) (device.Device, error)

	lk       sync.Mutex
	dev      device.Device
	inverter *inverter.Inverter
	commands []inverter.CommandConfig
}

type contextKey string

const ContextKey contextKey = "run/state-global"

func NewContext(log *log2.Log) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}
	g := &Global{
		Alive:      alive.NewAlive(),
		Log:        log,
		OpenDevice: device.Open,
	}
	ctx := context.WithValue(context.Background(), ContextKey, g)
	return ctx, g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	errs := make([]error, 0)

	if cfg.LogLevel != "" {
		level, err := log2.ParseLevel(cfg.LogLevel)
		if err != nil {
			errs = append(errs, errors.Annotate(err, "config: log_level"))
		} else {
			g.Log.SetLevel(level)
		}
	}
	if g.Stats == nil {
		g.Stats = stat.New()
	}
	if g.OpenDevice == nil {
		g.OpenDevice = device.Open
	}

	commands, err := cfg.Inverter.CommandConfigs()
	if err != nil {
		errs = append(errs, err)
	}
	g.commands = commands
	if len(commands) == 0 {
		g.Log.Errorf("config: inverter has no commands, nothing to poll")
	}

	return helpers.FoldErrors(errs)
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

func (g *Global) Commands() []inverter.CommandConfig { return g.commands }

// Command returns configured sensor mapping for cmd.
func (g *Global) Command(cmd string) (*inverter.CommandConfig, bool) {
	for i := range g.commands {
		if g.commands[i].Command == cmd {
			return &g.commands[i], true
		}
	}
	return nil, false
}

// Inverter opens device on first use and after ResetDevice.
func (g *Global) Inverter() (*inverter.Inverter, error) {
	g.lk.Lock()
	defer g.lk.Unlock()
	if g.inverter != nil {
		return g.inverter, nil
	}

	ic := &g.Config.Inverter
	dev, err := g.OpenDevice(ic.DeviceConfig(), g.Log)
	if err != nil {
		return nil, errors.Annotate(err, "inverter open")
	}
	// shared logger follows -debug and runtime level changes
	invLog := g.Log
	if ic.LogDebug && !g.Log.Enabled(log2.LDebug) {
		invLog = g.Log.Clone(log2.LDebug)
	}
	g.dev = dev
	g.inverter = inverter.New(dev, ic.Options(invLog))
	return g.inverter, nil
}

// ResetDevice closes device, next Inverter() call opens it again.
// Required after device timeout, late response bytes would corrupt next frame.
func (g *Global) ResetDevice() {
	g.lk.Lock()
	defer g.lk.Unlock()
	if g.dev == nil {
		return
	}
	if err := g.dev.Close(); err != nil {
		g.Log.Errorf("device close err=%v", err)
	}
	g.dev = nil
	g.inverter = nil
	g.Stats.ObserveDeviceReset()
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Errorf(errors.ErrorStack(err))
	}
}

func (g *Global) Close() {
	if g.Tele != nil {
		g.Tele.Close()
	}
	g.ResetDevice()
}
