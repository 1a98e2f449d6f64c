package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/anti-social/inverter2mqtt"
	"github.com/anti-social/inverter2mqtt/cmd/inverter2mqtt/cli"
	"github.com/anti-social/inverter2mqtt/cmd/inverter2mqtt/query"
	"github.com/anti-social/inverter2mqtt/cmd/inverter2mqtt/run"
	"github.com/anti-social/inverter2mqtt/cmd/inverter2mqtt/subcmd"
	"github.com/anti-social/inverter2mqtt/log2"
	"github.com/anti-social/inverter2mqtt/state"
	"github.com/juju/errors"
)

var log = log2.NewStderr(log2.LInfo)

var modules = []subcmd.Mod{
	run.Mod,
	query.Mod,
	query.StatusMod,
	query.CheckConfigMod,
	cli.Mod,
}

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagConfig := cmdline.String("config", "inverter2mqtt.hcl", "")
	flagDebug := cmdline.Bool("debug", false, "debug logging, overrides config log_level")
	flagExample := cmdline.Bool("example-config", false, "print bundled example config and exit")
	cmdline.Usage = func() {
		fmt.Fprintf(cmdline.Output(), "Usage: %s [options] [command] [args...]\n\nOptions:\n", os.Args[0])
		cmdline.PrintDefaults()
		fmt.Fprintf(cmdline.Output(), "\nCommands:\n")
		for _, m := range modules {
			fmt.Fprintf(cmdline.Output(), "  %-14s %s\n", m.Name, m.Usage)
		}
	}
	_ = cmdline.Parse(os.Args[1:])
	if *flagExample {
		fmt.Print(inverter2mqtt.BundledConfig)
		return
	}

	if subcmd.SdNotify("start") {
		// we're under systemd, assume systemd journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	command, args := run.Mod.Name, cmdline.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		cmdline.Usage()
		log.Fatal(err)
	}

	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	if *flagDebug {
		config.LogLevel = "debug"
	}
	ctx, _ := state.NewContext(log)
	if err := mod.Main(ctx, config, args); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}
