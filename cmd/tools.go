package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/toolagent/internal/dependency"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool schemas advertised to the model",
	RunE:  runTools,
}

func runTools(c *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Listing schemas needs no completion port.
	container, err := dependency.NewWithProvider(cfg, nil)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(container.Registry().Schemas(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.OutOrStdout(), string(out))
	return nil
}
