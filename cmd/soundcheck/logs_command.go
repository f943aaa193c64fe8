package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"soundcheck/internal/api"
	"soundcheck/internal/ipc"
	"soundcheck/internal/logs"
	"soundcheck/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var filters logstream.Filters

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			apiClient, err := logs.NewStreamClient(cfg.Paths.APIBind)
			if err != nil {
				return err
			}

			var legacy logstream.TailClient
			client, dialErr := ipc.Dial(ctx.socketPath())
			if dialErr == nil {
				defer client.Close()
				legacy = client
			}

			printed, err := logstream.Stream(
				cmd.Context(),
				apiClient,
				legacy,
				logstream.Options{Lines: lines, Follow: follow, Filters: filters},
				func(evt api.LogEvent) {
					fmt.Fprintln(cmd.OutOrStdout(), formatAPILogEvent(evt))
				},
				func(line string) {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				},
			)
			if err != nil {
				if errors.Is(err, logstream.ErrFiltersRequireAPI) {
					return fmt.Errorf("log filters need the HTTP log API; set paths.api_bind in the configuration")
				}
				if legacy == nil && dialErr != nil {
					return wrapDialError(dialErr, ctx.socketPath())
				}
				return err
			}
			if !printed && !follow {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&filters.Component, "component", "", "Filter by component name")
	cmd.Flags().StringVar(&filters.Lane, "lane", "", "Filter by processing lane")
	cmd.Flags().StringVar(&filters.RequestID, "request", "", "Filter by correlation id")
	cmd.Flags().Int64Var(&filters.ItemID, "item", 0, "Filter by queue item id")
	cmd.Flags().StringVar(&filters.Level, "level", "", "Minimum log level")
	cmd.Flags().StringVar(&filters.Search, "search", "", "Filter by message substring")
	return cmd
}

func formatAPILogEvent(evt api.LogEvent) string {
	ts := evt.Timestamp.Format("2006-01-02 15:04:05")
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component := strings.TrimSpace(evt.Component); component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	subject := composeLogSubject(evt.ItemID, evt.Stage)
	line := strings.Join(parts, " ")
	if subject != "" {
		line += " " + subject
	}
	if message := strings.TrimSpace(evt.Message); message != "" {
		line += " - " + message
	}
	if len(evt.Details) == 0 {
		return line
	}
	builder := strings.Builder{}
	builder.WriteString(line)
	for _, detail := range evt.Details {
		if strings.TrimSpace(detail.Label) == "" || strings.TrimSpace(detail.Value) == "" {
			continue
		}
		builder.WriteString("\n    - ")
		builder.WriteString(detail.Label)
		builder.WriteString(": ")
		builder.WriteString(detail.Value)
	}
	return builder.String()
}

func composeLogSubject(itemID int64, stage string) string {
	stage = strings.TrimSpace(stage)
	switch {
	case itemID > 0 && stage != "":
		return fmt.Sprintf("Item #%d (%s)", itemID, stage)
	case itemID > 0:
		return fmt.Sprintf("Item #%d", itemID)
	default:
		return stage
	}
}
