package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/crystaldolphin/toolagent/internal/tools"
)

var denyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brm\s+-[rf]{1,2}\b`),            // rm -r, rm -rf, rm -fr
	regexp.MustCompile(`(?i)\bdel\s+/[fq]\b`),                // del /f, del /q
	regexp.MustCompile(`(?i)\brmdir\s+/s\b`),                 // rmdir /s
	regexp.MustCompile(`(?i)(?:^|[;&|]\s*)format\b`),         // format (standalone)
	regexp.MustCompile(`(?i)\b(mkfs|diskpart)\b`),            // disk ops
	regexp.MustCompile(`(?i)\bdd\s+if=`),                     // dd
	regexp.MustCompile(`(?i)>\s*/dev/sd`),                    // write to disk
	regexp.MustCompile(`(?i)\b(shutdown|reboot|poweroff)\b`), // power control
	regexp.MustCompile(`:\(\)\s*\{.*\};\s*:`),                // fork bomb
}

var (
	errBlocked       = errors.New("command blocked by safety guard (dangerous pattern detected)")
	errPathTraversal = errors.New("command blocked by safety guard (path traversal detected)")
	errOutsideDir    = errors.New("command blocked by safety guard (path outside working dir)")
)

const maxExecOutput = 10000

// ExecOptions configures the exec tool.
type ExecOptions struct {
	WorkingDir          string        // default CWD; empty means os.Getwd()
	Timeout             time.Duration // defaults to 60s
	RestrictToWorkspace bool
}

type execRunner struct {
	opts ExecOptions
}

// Exec returns the exec tool, which runs a shell command and returns its
// output. A non-zero exit code is reported in the output, not as a failure;
// blocked commands and timeouts fail the invocation.
func Exec(opts ExecOptions) *tools.Descriptor {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	r := &execRunner{opts: opts}

	return tools.MustNew(string(ToolExec),
		"Execute a shell command and return its output. Use with caution.",
		r.run,
		tools.Param{Name: "command", Type: tools.String, Description: "The shell command to execute"},
		tools.Param{Name: "working_dir", Type: tools.String, Description: "Optional working directory for the command", Optional: true},
	)
}

func (r *execRunner) run(ctx context.Context, args tools.Args) (any, error) {
	command := args.String("command")
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("command is empty")
	}

	cwd := r.opts.WorkingDir
	if wd := args.String("working_dir"); wd != "" {
		cwd = wd
	}
	if cwd == "" {
		cwd, _ = os.Getwd()
	}

	if err := r.guardCommand(command, cwd); err != nil {
		return nil, err
	}

	cmdCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "sh", "-c", command)
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if cmdCtx.Err() != nil {
		return nil, fmt.Errorf("command timed out after %v", r.opts.Timeout)
	}
	if runErr != nil && cmd.ProcessState == nil {
		return nil, runErr
	}

	var parts []string
	if out := stdout.String(); out != "" {
		parts = append(parts, out)
	}
	if errOut := stderr.String(); strings.TrimSpace(errOut) != "" {
		parts = append(parts, "STDERR:\n"+errOut)
	}
	if code := cmd.ProcessState.ExitCode(); code != 0 {
		parts = append(parts, fmt.Sprintf("\nExit code: %d", code))
	}

	result := strings.Join(parts, "\n")
	if result == "" {
		result = "(no output)"
	}
	if len(result) > maxExecOutput {
		result = result[:maxExecOutput] + fmt.Sprintf("\n... (truncated, %d more chars)", len(result)-maxExecOutput)
	}
	return result, nil
}

func (r *execRunner) guardCommand(command, cwd string) error {
	lower := strings.ToLower(strings.TrimSpace(command))

	for _, p := range denyPatterns {
		if p.MatchString(lower) {
			return errBlocked
		}
	}

	if !r.opts.RestrictToWorkspace {
		return nil
	}
	if strings.Contains(command, `..\`) || strings.Contains(command, "../") {
		return errPathTraversal
	}

	cwdResolved, err := filepath.EvalSymlinks(cwd)
	if err != nil {
		cwdResolved = cwd
	}
	for _, raw := range extractAbsolutePaths(command) {
		p, err := filepath.EvalSymlinks(raw)
		if err != nil {
			p = filepath.Clean(raw)
		}
		if filepath.IsAbs(p) && p != cwdResolved && !strings.HasPrefix(p, cwdResolved+string(filepath.Separator)) {
			return errOutsideDir
		}
	}
	return nil
}

var absolutePathRE = regexp.MustCompile(`(?:^|[\s|>])(/[^\s"'>]+)`)

func extractAbsolutePaths(cmd string) []string {
	matches := absolutePathRE.FindAllStringSubmatch(cmd, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}
