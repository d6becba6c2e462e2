package load

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/block/mydump/pkg/config"
	"github.com/block/mydump/pkg/creds"
	"github.com/block/mydump/pkg/dbconn"
	"github.com/block/mydump/pkg/metrics"
	"github.com/block/mydump/pkg/runner"
	"github.com/block/mydump/pkg/status"
	"github.com/google/uuid"
)

// Dropper empties the target schema before a load.
type Dropper interface {
	DropAllTables(ctx context.Context) error
}

// Params are the resolved inputs of one load.
type Params struct {
	Directory  string
	Binary     string
	Connection config.Connection
}

// Runner runs one load.
type Runner struct {
	params      Params
	dropper     Dropper
	proc        runner.Runner
	logger      *slog.Logger
	metricsSink metrics.Sink
	state       status.State
}

// NewRunner returns a Runner for params. dropper may be nil, in which case
// the schema is not emptied first.
func NewRunner(params Params, dropper Dropper, proc runner.Runner) *Runner {
	if params.Binary == "" {
		params.Binary = config.DefaultMyLoader
	}
	return &Runner{
		params:      params,
		dropper:     dropper,
		proc:        proc,
		logger:      slog.Default(),
		metricsSink: &metrics.NoopSink{},
	}
}

// SetLogger sets the logger.
func (r *Runner) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// SetMetricsSink sets where the load time is sent.
func (r *Runner) SetMetricsSink(sink metrics.Sink) {
	r.metricsSink = sink
}

func (r *Runner) Progress() status.Progress {
	state := r.state.Get()
	return status.Progress{CurrentState: state, Summary: state.String()}
}

// Run drops every table of the target schema and loads the dump in the
// configured directory. A failed drop is logged and the load still runs,
// myloader creates a schema that does not exist yet.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.logger.With("run_id", uuid.NewString())
	r.state.Set(status.ValidateOptions)
	if r.params.Directory == "" {
		r.state.Set(status.Failed)
		return config.Usagef("--directory is required")
	}

	if r.dropper != nil {
		r.state.Set(status.DropExistingSchema)
		if err := r.dropper.DropAllTables(ctx); err != nil {
			if dbconn.IsUnknownDatabase(err) {
				logger.InfoContext(ctx, "target schema does not exist yet, nothing to drop")
			} else {
				logger.WarnContext(ctx, "could not drop existing tables, loading anyway", "error", err)
			}
		}
	}

	r.state.Set(status.RunLoad)
	credentials, err := creds.Prepare(r.params.Connection)
	if err != nil {
		r.state.Set(status.Failed)
		return err
	}
	defer credentials.Remove()
	args := append(credentials.Flags, "--directory="+r.params.Directory)
	logger.InfoContext(ctx, "running "+r.params.Binary, "args", strings.Join(creds.Redact(args), " "))
	start := time.Now()
	if err := r.proc.Run(ctx, r.params.Binary, args...); err != nil {
		r.state.Set(status.Failed)
		return err
	}
	r.state.Set(status.Done)
	if err := metrics.Send(ctx, r.metricsSink, metrics.Duration(metrics.LoadTimeMetricName, time.Since(start))); err != nil {
		logger.WarnContext(ctx, "could not send metrics", "error", err)
	}
	logger.InfoContext(ctx, "load complete", "directory", r.params.Directory)
	return nil
}
