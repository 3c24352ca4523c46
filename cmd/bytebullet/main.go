package main

import (
	"fmt"
	"os"
	"time"

	"github.com/bytebullet/bytebullet/pkg/version"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Globals struct {
	Debug   bool             `help:"Whether to enable debug logging." env:"BYTEBULLET_DEBUG"`
	Version kong.VersionFlag `help:"Print version information and exit." short:"v"`
}

type CLI struct {
	Globals

	Serve  ServeCmd  `cmd:"" default:"withargs" help:"Start the ByteBullet server (the default command)."`
	Config ConfigCmd `cmd:"" help:"Print the default configuration, or the result of merging the given files."`
}

func parser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("bytebullet"),
		kong.Description("a browser first-person shooter prototype"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"version": fmt.Sprintf(
				"bytebullet %s (commit %s, built %s)",
				version.Version,
				version.GitCommit,
				version.BuildTime,
			),
		},
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var cli CLI
	k, err := parser(&cli)
	if err != nil {
		panic(err)
	}

	ctx, err := k.Parse(os.Args[1:])
	k.FatalIfErrorf(err)

	if cli.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
