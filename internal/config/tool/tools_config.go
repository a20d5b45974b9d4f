package tool

// ToolsConfig groups all tool-level settings.
type ToolsConfig struct {
	Web                 WebToolsConfig `json:"web" yaml:"web"`
	Exec                ExecToolConfig `json:"exec" yaml:"exec"`
	Files               FilesConfig    `json:"files" yaml:"files"`
	RestrictToWorkspace bool           `json:"restrictToWorkspace" yaml:"restrictToWorkspace"`
}

func DefaultToolConfigs() ToolsConfig {
	return ToolsConfig{
		Web:  DefaultWebToolsConfig(),
		Exec: DefaultExecToolConfig(),
	}
}
