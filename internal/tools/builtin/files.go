package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crystaldolphin/toolagent/internal/tools"
)

const maxReadBytes = 64 * 1024

// fileAccess resolves model-supplied paths against root. When restrict is
// set, paths that escape root are rejected.
type fileAccess struct {
	root     string
	restrict bool
}

func (f fileAccess) resolve(path string) (string, error) {
	p := path
	if !filepath.IsAbs(p) && f.root != "" {
		p = filepath.Join(f.root, p)
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		resolved = filepath.Clean(p)
	}
	if f.restrict && f.root != "" {
		root, err := filepath.EvalSymlinks(f.root)
		if err != nil {
			root = filepath.Clean(f.root)
		}
		if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
			return "", fmt.Errorf("path %s is outside allowed directory %s", path, f.root)
		}
	}
	return resolved, nil
}

// ReadFile returns the read_file tool.
func ReadFile(root string, restrict bool) *tools.Descriptor {
	fa := fileAccess{root: root, restrict: restrict}
	return tools.MustNew(string(ToolReadFile),
		"Read the contents of a file at the given path.",
		fa.readFile,
		tools.Param{Name: "path", Type: tools.String, Description: "The file path to read"},
	)
}

func (f fileAccess) readFile(_ context.Context, args tools.Args) (any, error) {
	path := args.String("path")
	fp, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(fp)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a file: %s", path)
	}
	data, err := os.ReadFile(fp)
	if err != nil {
		return nil, err
	}
	if len(data) > maxReadBytes {
		return string(data[:maxReadBytes]) + fmt.Sprintf("\n... (truncated, %d more bytes)", len(data)-maxReadBytes), nil
	}
	return string(data), nil
}

// ListDir returns the list_dir tool.
func ListDir(root string, restrict bool) *tools.Descriptor {
	fa := fileAccess{root: root, restrict: restrict}
	return tools.MustNew(string(ToolListDir),
		"List the contents of a directory.",
		fa.listDir,
		tools.Param{Name: "path", Type: tools.String, Description: "The directory path to list", Default: "."},
	)
}

func (f fileAccess) listDir(_ context.Context, args tools.Args) (any, error) {
	path := args.String("path")
	dp, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dp)
	if err != nil {
		return nil, fmt.Errorf("directory not found: %s", path)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", path)
	}
	entries, err := os.ReadDir(dp)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return fmt.Sprintf("Directory %s is empty", path), nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		prefix := "[F] "
		if e.IsDir() {
			prefix = "[D] "
		}
		lines = append(lines, prefix+e.Name())
	}
	return strings.Join(lines, "\n"), nil
}
