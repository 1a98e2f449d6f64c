package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anti-social/inverter2mqtt/cmd/inverter2mqtt/query"
	"github.com/anti-social/inverter2mqtt/cmd/inverter2mqtt/subcmd"
	"github.com/anti-social/inverter2mqtt/helpers/cli"
	"github.com/anti-social/inverter2mqtt/log2"
	"github.com/anti-social/inverter2mqtt/state"
	"github.com/c-bata/go-prompt"
)

const modName = "inverter-cli"

const usage = `syntax: commands separated by whitespace
(main)
- QPIGS    send command, show decoded response
- status   QPIGS as general status

(meta)
- log=debug  enable debug logging
- log=info   disable debug logging
- help       show this text
`

var Mod = subcmd.Mod{Name: "cli", Usage: "interactive command prompt", Main: Main}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	defer g.Close()

	return cli.MainLoop(modName, newExecutor(g, os.Stdout), newCompleter(g))
}

func newCompleter(g *state.Global) func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "help", Description: "show help"},
		{Text: "log=debug", Description: "enable debug logging"},
		{Text: "log=info", Description: "disable debug logging"},
		{Text: "status", Description: "general status"},
	}
	for _, c := range g.Commands() {
		suggests = append(suggests, prompt.Suggest{Text: c.Command, Description: fmt.Sprintf("configured, %d sensors", len(c.Sensors))})
	}

	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
	}
}

func newExecutor(g *state.Global, w io.Writer) func(string) {
	return func(line string) {
		for _, word := range strings.Fields(line) {
			var err error
			switch word {
			case "help":
				fmt.Fprint(w, usage)
			case "log=debug":
				g.Log.SetLevel(log2.LDebug)
			case "log=info":
				g.Log.SetLevel(log2.LInfo)
			case "status":
				err = query.Status(g, w)
			default:
				err = query.Execute(g, w, word)
			}
			if err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
				return
			}
		}
	}
}
