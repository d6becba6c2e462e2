package dump

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/block/mydump/pkg/config"
	"github.com/block/mydump/pkg/creds"
	"github.com/block/mydump/pkg/metadata"
	"github.com/block/mydump/pkg/metrics"
	"github.com/block/mydump/pkg/runner"
	"github.com/block/mydump/pkg/status"
	"github.com/block/mydump/pkg/table"
	"github.com/block/mydump/pkg/utils"
	"github.com/google/uuid"
)

// TableLister returns the tables of the schema being dumped.
type TableLister interface {
	ListTables(ctx context.Context) ([]string, error)
}

// Params are the resolved inputs of one dump.
type Params struct {
	// Directory is where mydumper writes. When empty a directory named
	// after the start time is created under ProjectRoot.
	Directory   string
	ProjectRoot string
	Binary      string
	// Connection is the source server. Its database qualifies table names
	// in --omit-from-file and --tables-list.
	Connection config.Connection
	Tables     table.Options
	Lists      config.TableLists
	Verify     bool
}

// Result is what a successful dump reports back.
type Result struct {
	Path  string
	State status.State
}

// Runner runs one dump. It is not safe to reuse.
type Runner struct {
	params  Params
	tables  TableLister
	proc    runner.Runner
	logger  *slog.Logger
	now     func() time.Time
	state   status.State
	started time.Time

	metricsSink metrics.Sink
	selection   table.Selection
	excluded    int
	timings     []metrics.MetricValue
}

// NewRunner returns a Runner for params. tables may be nil when no table
// selection option is set.
func NewRunner(params Params, tables TableLister, proc runner.Runner) *Runner {
	if params.Binary == "" {
		params.Binary = config.DefaultMyDumper
	}
	return &Runner{
		params:      params,
		tables:      tables,
		proc:        proc,
		logger:      slog.Default(),
		now:         time.Now,
		metricsSink: &metrics.NoopSink{},
	}
}

// SetLogger sets the logger used for phase transitions.
func (r *Runner) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// SetMetricsSink sets where run timings and table counts are sent.
func (r *Runner) SetMetricsSink(sink metrics.Sink) {
	r.metricsSink = sink
}

// Progress reports the current phase.
func (r *Runner) Progress() status.Progress {
	state := r.state.Get()
	summary := state.String()
	if r.excluded > 0 {
		summary = fmt.Sprintf("%s (omitting %d tables, %d as structure only)", summary, r.excluded, len(r.selection.Structure))
	}
	return status.Progress{CurrentState: state, Summary: summary}
}

func (r *Runner) setState(ctx context.Context, s status.State) {
	r.state.Set(s)
	r.logger.DebugContext(ctx, "dump state", "state", s.String())
}

// DefaultDirectory is the directory used when none is given:
// <root>/export-YYYYMMDD-HHMMSS. Two dumps started within the same second
// get the same directory.
func DefaultDirectory(root string, start time.Time) string {
	return filepath.Join(root, "export-"+start.Format("20060102")+"-"+start.Format("150405"))
}

// Run performs the dump: a data run that omits skipped and structure-only
// tables, and when there are structure-only tables a second run that adds
// their schema to the same directory followed by a merge of both metadata
// files. Any failure aborts the dump.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.logger = r.logger.With("run_id", uuid.NewString())
	res, err := r.run(ctx)
	if err != nil {
		r.setState(ctx, status.Failed)
		return nil, err
	}
	r.setState(ctx, status.Done)
	r.sendMetrics(ctx)
	r.logger.InfoContext(ctx, "dump complete", "directory", res.Path, "duration", r.now().Sub(r.started).String())
	res.State = status.Done
	return res, nil
}

func (r *Runner) run(ctx context.Context) (*Result, error) {
	r.started = r.now()

	r.setState(ctx, status.ValidateOptions)
	if err := r.params.Tables.Validate(); err != nil {
		return nil, err
	}
	dir := r.params.Directory
	if dir == "" {
		dir = DefaultDirectory(r.params.ProjectRoot, r.started)
	}

	r.setState(ctx, status.ResolveTableSelection)
	if err := r.resolveSelection(ctx); err != nil {
		return nil, err
	}

	credentials, err := creds.Prepare(r.params.Connection)
	if err != nil {
		return nil, err
	}
	defer credentials.Remove()
	schema := r.params.Connection.Database
	var omitFile *utils.TempFile
	exclude := r.selection.Exclude()
	if len(exclude) > 0 {
		r.setState(ctx, status.BuildExcludeFile)
		omitFile, err = utils.WriteTempFile("mydump-omit-*.txt", table.Qualify(schema, exclude))
		if err != nil {
			return nil, err
		}
		defer omitFile.Remove()
		r.excluded = len(exclude)
	}

	// Dump data.
	r.setState(ctx, status.RunDataDump)
	args := append([]string{}, credentials.Flags...)
	args = append(args, "--outputdir="+dir)
	if omitFile != nil {
		args = append(args, "--omit-from-file="+omitFile.Path)
	}
	if err := r.timedExec(ctx, metrics.DumpDataTimeMetricName, args); err != nil {
		return nil, err
	}
	metadataPath := filepath.Join(dir, metadata.FileName)
	r.setState(ctx, status.ParseDataMetadata)
	dataMetadata, err := metadata.Parse(metadataPath)
	if err != nil {
		return nil, err
	}

	// Dump schema.
	if len(r.selection.Structure) > 0 {
		r.setState(ctx, status.RunSchemaDump)
		args := append([]string{}, credentials.Flags...)
		args = append(args,
			"--dirty",
			"--outputdir="+dir,
			"--tables-list="+strings.Join(table.Qualify(schema, r.selection.Structure), ","),
			"--no-data",
		)
		if err := r.timedExec(ctx, metrics.DumpSchemaTimeMetricName, args); err != nil {
			return nil, err
		}
		r.setState(ctx, status.ParseSchemaMetadata)
		schemaMetadata, err := metadata.Parse(metadataPath)
		if err != nil {
			return nil, err
		}
		r.setState(ctx, status.MergeMetadata)
		merged := metadata.Merge(dataMetadata, schemaMetadata)
		r.setState(ctx, status.WriteMetadata)
		if err := metadata.WriteFile(metadataPath, merged); err != nil {
			return nil, err
		}
	}

	if r.params.Verify {
		r.setState(ctx, status.VerifySchema)
		n, err := VerifySchemaFiles(dir)
		if err != nil {
			return nil, err
		}
		r.logger.InfoContext(ctx, "verified schema files", "count", n)
	}
	return &Result{Path: dir}, nil
}

func (r *Runner) resolveSelection(ctx context.Context) error {
	if r.params.Tables.IsEmpty() {
		return nil
	}
	if r.tables == nil {
		return errors.New("table selection requires a table lister")
	}
	tables, err := r.tables.ListTables(ctx)
	if err != nil {
		return err
	}
	r.selection, err = table.Expand(r.params.Tables, r.params.Lists, tables)
	if err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "resolved table selection",
		"skip", len(r.selection.Skip),
		"structure", len(r.selection.Structure),
	)
	return nil
}

func (r *Runner) timedExec(ctx context.Context, metric string, args []string) error {
	r.logger.InfoContext(ctx, "running "+r.params.Binary, "args", strings.Join(creds.Redact(args), " "))
	start := r.now()
	if err := r.proc.Run(ctx, r.params.Binary, args...); err != nil {
		return err
	}
	r.timings = append(r.timings, metrics.Duration(metric, r.now().Sub(start)))
	return nil
}

func (r *Runner) sendMetrics(ctx context.Context) {
	values := append([]metrics.MetricValue{
		metrics.Count(metrics.DumpExcludedTablesMetricName, r.excluded),
		metrics.Count(metrics.DumpSchemaTablesMetricName, len(r.selection.Structure)),
	}, r.timings...)
	if err := metrics.Send(ctx, r.metricsSink, values...); err != nil {
		r.logger.WarnContext(ctx, "could not send metrics", "error", err)
	}
}
