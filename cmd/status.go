package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/toolagent/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show toolagent status",
	RunE:  runStatus,
}

func runStatus(c *cobra.Command, _ []string) error {
	out := c.OutOrStdout()
	cfgPath := resolvedConfigPath()

	fmt.Fprintf(out, "%s toolagent Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Fprintf(out, "Config:    %s %s\n", cfgPath, cfgMark)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "  (could not load config: %v)\n", err)
		return nil
	}

	d := cfg.Agents.Defaults
	params := cfg.ProviderParams()
	fmt.Fprintf(out, "Model:     %s\n", d.Model)
	if params.ProviderName != "" {
		fmt.Fprintf(out, "Provider:  %s\n", params.ProviderName)
	} else {
		fmt.Fprintf(out, "Provider:  (none matched)\n")
	}
	if params.APIBase != "" {
		fmt.Fprintf(out, "API base:  %s\n", params.APIBase)
	}
	fmt.Fprintf(out, "Max iter:  %d\n\n", d.MaxToolIter)

	fmt.Fprintln(out, "Providers:")
	for _, spec := range providers.Catalog {
		p := cfg.ProviderByName(spec.Name)
		if p == nil {
			continue
		}
		label := spec.Label()
		switch {
		case spec.IsLocal:
			if p.APIBase != "" {
				fmt.Fprintf(out, "  %-20s ✓ %s\n", label, p.APIBase)
			} else {
				fmt.Fprintf(out, "  %-20s (not set)\n", label)
			}
		case p.APIKey != "":
			fmt.Fprintf(out, "  %-20s ✓\n", label)
		case spec.EnvKey != "" && os.Getenv(spec.EnvKey) != "":
			fmt.Fprintf(out, "  %-20s ✓ (%s)\n", label, spec.EnvKey)
		default:
			fmt.Fprintf(out, "  %-20s (not set)\n", label)
		}
	}

	fmt.Fprintln(out, "\nTools:")
	fmt.Fprintf(out, "  %-20s ✓\n", "power")
	fmt.Fprintf(out, "  %-20s %s\n", "exec", mark(cfg.Tools.Exec.Enabled))
	fmt.Fprintf(out, "  %-20s %s\n", "web_fetch", mark(cfg.Tools.Web.Enabled))
	fmt.Fprintf(out, "  %-20s %s\n", "read_file, list_dir", mark(cfg.Tools.Files.Enabled))
	return nil
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
