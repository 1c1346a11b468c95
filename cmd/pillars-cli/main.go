package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"

	"pillars/internal/cli"
	"pillars/internal/config"
	"pillars/internal/log"
	"pillars/internal/services"
)

var plain = flag.Bool("plain", false, "Print raw markdown instead of styled terminal output.")

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	var cfg *config.Config
	app := &cli.App{
		Out: os.Stdout,
		Err: os.Stderr,
		Open: func(ctx context.Context) (*services.LedgerService, func() error, error) {
			// Logs go to stderr so stdout stays pipeable.
			logger := log.New(log.Config{
				Level:     slog.LevelWarn,
				Component: log.ComponentCLI,
				Format:    cfg.LogFormat,
				Output:    os.Stderr,
			})
			l, err := cli.OpenLedger(ctx, cfg, nil, logger)
			if err != nil {
				return nil, nil, err
			}
			return l.LedgerService, l.Close, nil
		},
	}
	cli.Register(commander, app)

	flag.Parse()
	cfg = cli.LoadAndValidateConfig()
	app.Plain = *plain
	app.ExportDir = cfg.ExportDir
	os.Exit(int(commander.Execute(context.Background())))
}
