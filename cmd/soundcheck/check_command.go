package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"soundcheck/internal/api"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/queue"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var setName string
	var reference bool

	cmd := &cobra.Command{
		Use:   "check <url-or-path>",
		Short: "Run a one-shot gap check without the daemon",
		Long:  "Fetch, analyze, and report on a single source synchronously, printing the gap assessment when finished.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			lib, err := library.Open(cfg)
			if err != nil {
				return err
			}
			defer lib.Close()

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: "console",
			})
			if err != nil {
				return err
			}

			kind := queue.KindCandidate
			if reference {
				kind = queue.KindReference
			}

			result, err := api.RunGapCheck(cmd.Context(), api.RunGapCheckRequest{
				Config:  cfg,
				Store:   store,
				Library: lib,
				Source:  args[0],
				SetName: setName,
				Kind:    kind,
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			assessment := api.AssessGapCheck(result.Item)
			if ctx.JSONMode() {
				return writeJSON(cmd, assessment)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Title:  %s\n", assessment.Title)
			if strings.TrimSpace(assessment.Artist) != "" {
				fmt.Fprintf(out, "Artist: %s\n", assessment.Artist)
			}
			if strings.TrimSpace(assessment.SetName) != "" {
				fmt.Fprintf(out, "Set:    %s\n", assessment.SetName)
			}
			fmt.Fprintln(out, assessment.OutcomeMessage)
			if assessment.Outcome == "failed" {
				return fmt.Errorf("gap check did not complete")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&setName, "set", "", "Reference set to compare against")
	cmd.Flags().BoolVar(&reference, "reference", false, "Treat the source as reference material")
	return cmd
}
