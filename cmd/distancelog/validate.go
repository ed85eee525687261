package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Seeker14491/distancelog/config"
	"github.com/Seeker14491/distancelog/internal/level"
)

// validateCmd validates a config file without starting anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a distancelog configuration file without connecting to anything.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  distancelog validate -c config.yaml
  distancelog validate --config /etc/distancelog/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	official, err := config.BuildCatalog(cfg, nil).OfficialLevels()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	source := "configured"
	if cfg.OfficialLevels.IsEmpty() {
		source = "built-in"
	}

	workshop := "disabled"
	if cfg.Workshop.IsEnabled() {
		workshop = fmt.Sprintf("up to %d items", cfg.Workshop.MaxResults)
	}

	redis := "disabled"
	if cfg.Redis.Enabled() {
		redis = fmt.Sprintf("%s (channel %s)", cfg.Redis.Address, cfg.Redis.Channel)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  RPC address:     %s\n", cfg.RPC.Address)
	fmt.Printf("  Snapshot:        %s\n", cfg.Data.Snapshot)
	fmt.Printf("  Changelist:      %s\n", cfg.Data.Changelist)
	fmt.Printf("  Official levels: %d %s (%s)\n", len(official), source, countByMode(official))
	fmt.Printf("  Workshop:        %s\n", workshop)
	fmt.Printf("  Update delay:    %s\n", cfg.Update.Interval())
	fmt.Printf("  Port:            %d\n", cfg.Server.Port)
	fmt.Printf("  Redis:           %s\n", redis)

	return nil
}

// countByMode formats the number of levels per mode, e.g. "Sprint 2, Stunt 1".
func countByMode(levels []level.Level) string {
	counts := make(map[level.Mode]int, len(level.Modes))
	for _, l := range levels {
		counts[l.Mode]++
	}

	out := ""
	for _, m := range level.Modes {
		if counts[m] == 0 {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s %d", m.Name(), counts[m])
	}
	return out
}
