package tool

// ExecToolConfig configures the shell-exec tool. It is off unless enabled.
type ExecToolConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Timeout    int    `json:"timeout" yaml:"timeout"` // seconds
	WorkingDir string `json:"workingDir,omitempty" yaml:"workingDir,omitempty"`
}

func DefaultExecToolConfig() ExecToolConfig {
	return ExecToolConfig{Timeout: 60}
}
