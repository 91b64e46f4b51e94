package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Demo    DemoCmd          `cmd:"" help:"Run a round against synthetic hands"`
	Replay  ReplayCmd        `cmd:"" help:"Play back a recorded session"`
	Draws   DrawsCmd         `cmd:"" help:"Measure winner-draw frequencies over many trials"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("palmdraw"),
		kong.Description("Hand-gesture driven random winner selection"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
