// Package buildinfo reports the version of mydump and of the mydumper and
// myloader binaries it drives.
//
// Release builds inject version, commit and date with -ldflags, see Set.
// Anything not injected comes from the VCS settings the Go toolchain embeds.
package buildinfo

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"github.com/block/mydump/pkg/config"
	"github.com/block/mydump/pkg/runner"
)

// Info is the build metadata of the running binary.
type Info struct {
	Version  string // "dev" unless injected or built from a tagged module
	Commit   string
	Date     string
	Modified bool // uncommitted changes at build time
	GoVer    string
}

var (
	injected Info
	get      = sync.OnceValue(resolve)
)

// Set records the values injected with
//
//	-ldflags "-X main.version=v1.2.3 -X main.commit=$(git rev-parse HEAD) -X main.date=..."
//
// It must be called from main before Get.
func Set(version, commit, date string) {
	injected = Info{Version: version, Commit: commit, Date: date}
}

// Get returns the build info, resolved on first use.
func Get() Info {
	return get()
}

func resolve() Info {
	info := Info{Version: "dev", Commit: "unknown", Date: "unknown"}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVer = bi.GoVersion
		if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = s.Value
			case "vcs.time":
				info.Date = s.Value
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	override := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	override(&info.Version, injected.Version)
	override(&info.Commit, injected.Commit)
	override(&info.Date, injected.Date)
	return info
}

// String renders the info on one line.
func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("mydump %s (commit %s, built %s, %s)", i.Version, commit, i.Date, i.GoVer)
}

// Report writes the mydump version, then runs each of the configured
// binaries with --version. proc is expected to write the program output to
// w. A binary that cannot run is reported as not available, it is not an
// error.
func Report(ctx context.Context, w io.Writer, proc runner.Runner, binaries config.Binaries) error {
	if _, err := fmt.Fprintln(w, Get()); err != nil {
		return err
	}
	for _, bin := range []struct{ name, path string }{
		{"mydumper", binaries.MyDumper},
		{"myloader", binaries.MyLoader},
	} {
		if bin.path == "" {
			bin.path = bin.name
		}
		if _, err := fmt.Fprintf(w, "%s (%s): ", bin.name, bin.path); err != nil {
			return err
		}
		if err := proc.Run(ctx, bin.path, "--version"); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := fmt.Fprintf(w, "not available: %v\n", err); err != nil {
				return err
			}
		}
	}
	return nil
}
