package builtin

import (
	"time"

	"github.com/crystaldolphin/toolagent/internal/tools"
)

// Options selects which built-in tools are registered.
type Options struct {
	Exec         bool
	ExecTimeout  time.Duration
	WorkingDir   string
	RestrictExec bool
	WebFetch     bool
	WebMaxChars  int
	Files        bool // read_file and list_dir, rooted at WorkingDir
}

// Tools returns the enabled built-in tools in a stable order. power is always
// included.
func Tools(opts Options) []tools.Tool {
	ts := []tools.Tool{Power()}
	if opts.Exec {
		ts = append(ts, Exec(ExecOptions{
			WorkingDir:          opts.WorkingDir,
			Timeout:             opts.ExecTimeout,
			RestrictToWorkspace: opts.RestrictExec,
		}))
	}
	if opts.WebFetch {
		ts = append(ts, WebFetch(opts.WebMaxChars, nil))
	}
	if opts.Files {
		ts = append(ts, ReadFile(opts.WorkingDir, opts.RestrictExec), ListDir(opts.WorkingDir, opts.RestrictExec))
	}
	return ts
}
