// Package dump takes a logical dump of one database with mydumper.
package dump

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
	"github.com/block/mydump/pkg/table"
	"github.com/block/mydump/pkg/utils"
)

// Dump is the dump command. Table selection options are validated by kong
// at parse time through the embedded table.Options.
type Dump struct {
	Directory string `name:"directory" short:"d" help:"Directory to dump into. Defaults to export-YYYYMMDD-HHMMSS under the project root." optional:"" type:"path"`
	Database  string `name:"database" help:"Database connection key in the config." default:"default"`
	Target    string `name:"target" help:"Connection target of the database key." default:"default"`
	Config    string `name:"config" help:"Path to the project config file." default:"mydump.yml" env:"MYDUMP_CONFIG" type:"path"`
	Verify    bool   `name:"verify" help:"Parse every dumped table schema after the dump." default:"false"`

	table.Options `embed:""`
}

// Run resolves the connection from the config and dumps it into the
// directory, stopping mydumper on SIGINT or SIGTERM.
func (d *Dump) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(d.Config)
	if err != nil {
		return err
	}
	conn, err := cfg.Connection(d.Database, d.Target)
	if err != nil {
		return err
	}
	if conn.Database == "" && !d.Options.IsEmpty() {
		return config.Usagef("table selection needs a database name in connection %s.%s", d.Database, d.Target)
	}

	schema := dbconn.NewSchema(conn, nil)
	defer utils.CloseAndLog(schema)

	dump := NewRunner(Params{
		Directory:   d.Directory,
		ProjectRoot: cfg.ProjectRoot,
		Binary:      cfg.Binaries.MyDumper,
		Connection:  conn,
		Tables:      d.Options,
		Lists:       cfg.Tables,
		Verify:      d.Verify,
	}, schema, runner.NewExec(os.Stdout))
	dump.SetMetricsSink(metrics.NewLogSink(slog.Default()))
	res, err := dump.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("Database dump saved to " + res.Path)
	return nil
}
