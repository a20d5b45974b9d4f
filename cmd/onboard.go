package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/toolagent/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration",
	Long:  "Writes the default configuration, or refreshes an existing file with any new default keys.",
	RunE:  runOnboard,
}

func runOnboard(c *cobra.Command, _ []string) error {
	out := c.OutOrStdout()
	cfgPath := resolvedConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Created config at %s\n", cfgPath)
	}

	fmt.Fprintf(out, "\n%s toolagent is ready!\n\n", logo)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Add your API key to %s (or export OPENAI_API_KEY)\n", cfgPath)
	fmt.Fprintln(out, "  2. Chat: toolagent agent -m \"What is 2 to the power of 10?\"")
	return nil
}
