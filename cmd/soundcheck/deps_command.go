package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"soundcheck/internal/daemonctl"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statuses := daemonctl.ResolveDependencies(cmd.Context(), cfg)
			summary := daemonctl.BuildDependencySummary(statuses)

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"dependencies": statuses,
					"summary":      summary,
				})
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			for _, line := range dependencyLines(statuses, summary, colorize) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
