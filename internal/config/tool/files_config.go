package tool

// FilesConfig enables the read-only read_file and list_dir tools. They are
// rooted at exec.workingDir (or the current directory) and honour
// restrictToWorkspace.
type FilesConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}
