package run

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/anti-social/inverter2mqtt/cmd/inverter2mqtt/subcmd"
	"github.com/anti-social/inverter2mqtt/poller"
	"github.com/anti-social/inverter2mqtt/state"
	"github.com/anti-social/inverter2mqtt/tele"
	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
)

var Mod = subcmd.Mod{Name: "run", Usage: "poll inverter and publish to MQTT (default)", Main: Main}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	g.Log.Debugf("config:\n%s", config.String())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	go func() {
		select {
		case sig := <-signalCh:
			g.Log.Infof("signal=%v stopping", sig)
			cancel()
			g.Alive.Stop()
		case <-ctx.Done():
		}
	}()

	if config.Metrics.Listen != "" {
		l, err := net.Listen("tcp", config.Metrics.Listen)
		if err != nil {
			return errors.Annotatef(err, "metrics listen=%s", config.Metrics.Listen)
		}
		go func() {
			if err := g.Stats.Serve(ctx, l, g.Log); err != nil {
				g.Error(err)
			}
		}()
	}

	m := tele.NewMqtt(g.Log, config.Mqtt, config.Inverter.DeviceInfo(), tele.Sensors(g.Commands()))
	g.Tele = m
	defer g.Close()
	if err := m.Connect(ctx); err != nil {
		return errors.Annotate(err, "mqtt")
	}
	if err := m.PublishDiscovery(ctx); err != nil {
		return errors.Annotate(err, "mqtt")
	}

	p := poller.New(g)
	g.Alive.Add(1)
	go p.Run(ctx, g.Alive)
	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Infof("init complete, running")

	g.Alive.Wait()
	subcmd.SdNotify(daemon.SdNotifyStopping)
	return nil
}
