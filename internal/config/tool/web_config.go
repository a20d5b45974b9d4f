package tool

// WebToolsConfig configures the web_fetch tool.
type WebToolsConfig struct {
	Enabled  bool `json:"enabled" yaml:"enabled"`
	MaxChars int  `json:"maxChars" yaml:"maxChars"`
}

func DefaultWebToolsConfig() WebToolsConfig {
	return WebToolsConfig{Enabled: true, MaxChars: 50000}
}
