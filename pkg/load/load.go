// Package load restores a mydumper dump with myloader.
package load

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/block/mydump/pkg/config"
	"github.com/block/mydump/pkg/dbconn"
	"github.com/block/mydump/pkg/metrics"
	"github.com/block/mydump/pkg/runner"
	"github.com/block/mydump/pkg/utils"
)

// Load is the load command. The target schema is emptied before myloader
// runs.
type Load struct {
	Directory string `name:"directory" short:"d" help:"Directory holding the dump to load." required:"" type:"existingdir"`
	Database  string `name:"database" help:"Database connection key in the config." default:"default"`
	Target    string `name:"target" help:"Connection target of the database key." default:"default"`
	Config    string `name:"config" help:"Path to the project config file." default:"mydump.yml" env:"MYDUMP_CONFIG" type:"path"`
}

// Run resolves the connection from the config and loads the directory into
// it, stopping myloader on SIGINT or SIGTERM.
func (l *Load) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(l.Config)
	if err != nil {
		return err
	}
	conn, err := cfg.Connection(l.Database, l.Target)
	if err != nil {
		return err
	}

	schema := dbconn.NewSchema(conn, nil)
	defer utils.CloseAndLog(schema)

	load := NewRunner(Params{
		Directory:  l.Directory,
		Binary:     cfg.Binaries.MyLoader,
		Connection: conn,
	}, schema, runner.NewExec(os.Stdout))
	load.SetMetricsSink(metrics.NewLogSink(slog.Default()))
	return load.Run(ctx)
}
