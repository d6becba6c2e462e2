package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/block/mydump/pkg/buildinfo"
	"github.com/block/mydump/pkg/config"
	"github.com/block/mydump/pkg/dump"
	"github.com/block/mydump/pkg/load"
	"github.com/block/mydump/pkg/runner"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version string
	commit  string
	date    string
)

type versionCmd struct {
	Config string `name:"config" help:"Path to the project config file naming the binaries." default:"mydump.yml" env:"MYDUMP_CONFIG" type:"path"`
}

func (v *versionCmd) Run() error {
	binaries, err := v.binaries()
	if err != nil {
		slog.Warn("could not read config, reporting the default binaries", "error", err)
	}
	return buildinfo.Report(context.Background(), os.Stdout, runner.NewExec(os.Stdout), binaries)
}

// binaries returns the configured binaries, the defaults when there is no
// config file.
func (v *versionCmd) binaries() (config.Binaries, error) {
	defaults := config.Binaries{MyDumper: config.DefaultMyDumper, MyLoader: config.DefaultMyLoader}
	cfg, err := config.LoadConfig(v.Config)
	if errors.Is(err, fs.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return defaults, err
	}
	return cfg.Binaries, nil
}

var cli struct {
	LogLevel string `name:"log-level" help:"Log level." enum:"debug,info,warn,error" default:"info"`

	Dump    dump.Dump  `cmd:"" help:"Dump a database with mydumper."`
	Load    load.Load  `cmd:"" help:"Load a mydumper dump with myloader, replacing the existing tables."`
	Version versionCmd `cmd:"" help:"Print version information."`
}

func main() {
	buildinfo.Set(version, commit, date)
	ctx := kong.Parse(&cli,
		kong.Name("mydump"),
		kong.Description("mydump: dump and load MySQL databases with mydumper and myloader"),
		kong.UsageOnError(),
	)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cli.LogLevel)})))

	err := ctx.Run()
	// exit with the status of a failed mydumper or myloader
	var execErr *runner.ExecError
	if errors.As(err, &execErr) && execErr.ExitCode > 0 {
		slog.Error(err.Error())
		os.Exit(execErr.ExitCode)
	}
	ctx.FatalIfErrorf(err)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
