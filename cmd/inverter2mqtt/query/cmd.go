// Package query implements one-shot inverter sub-commands.
package query

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/anti-social/inverter2mqtt/cmd/inverter2mqtt/subcmd"
	"github.com/anti-social/inverter2mqtt/hardware/inverter"
	"github.com/anti-social/inverter2mqtt/state"
	"github.com/juju/errors"
)

var Mod = subcmd.Mod{Name: "query", Usage: "query CMD... execute raw commands once", Main: Main}
var StatusMod = subcmd.Mod{Name: "status", Usage: "print QPIGS general status", Main: StatusMain}
var CheckConfigMod = subcmd.Mod{Name: "check-config", Usage: "validate and print config", Main: CheckConfigMain}

func Main(ctx context.Context, config *state.Config, args []string) error {
	if len(args) == 0 {
		return errors.NotValidf("query without commands")
	}
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	defer g.Close()

	errs := 0
	for _, cmd := range args {
		if err := Execute(g, os.Stdout, cmd); err != nil {
			g.Error(err)
			errs++
		}
	}
	if errs != 0 {
		return errors.Errorf("query failed %d of %d commands", errs, len(args))
	}
	return nil
}

// Execute runs cmd, prints raw response or configured sensor values.
func Execute(g *state.Global, w io.Writer, cmd string) error {
	inv, err := g.Inverter()
	if err != nil {
		return errors.Trace(err)
	}
	cc, ok := g.Command(cmd)
	if !ok {
		resp, err := inv.Query(cmd)
		if err != nil {
			if inverter.IsDeviceError(err) {
				g.ResetDevice()
			}
			return errors.Annotatef(err, "command=%s", cmd)
		}
		fmt.Fprintf(w, "%s: %s\n", cmd, resp)
		return nil
	}

	values, err := inv.ExecuteCommand(cc)
	if err != nil {
		if inverter.IsDeviceError(err) {
			g.ResetDevice()
		}
		return errors.Annotatef(err, "command=%s", cmd)
	}
	FormatValues(w, cc, values)
	return nil
}

// FormatValues prints values sorted by sensor name.
func FormatValues(w io.Writer, cc *inverter.CommandConfig, values map[string]inverter.SensorValue) {
	units := make(map[string]string, len(cc.Sensors))
	for _, s := range cc.Sensors {
		if s != nil {
			units[s.Name] = s.UnitOfMeasurement
		}
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "%s:\n", cc.Command)
	for _, name := range names {
		if u := units[name]; u != "" {
			fmt.Fprintf(w, "  %s = %s %s\n", name, values[name].String(), u)
		} else {
			fmt.Fprintf(w, "  %s = %s\n", name, values[name].String())
		}
	}
}

func StatusMain(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	defer g.Close()
	return Status(g, os.Stdout)
}

func Status(g *state.Global, w io.Writer) error {
	inv, err := g.Inverter()
	if err != nil {
		return errors.Trace(err)
	}
	st, err := inv.GeneralStatus()
	if err != nil {
		return errors.Annotate(err, "status")
	}
	fmt.Fprintf(w, "%+v\n", st)
	return nil
}

func CheckConfigMain(ctx context.Context, config *state.Config, args []string) error {
	if err := config.Validate(); err != nil {
		return err
	}
	fmt.Print(config.String())
	return nil
}
