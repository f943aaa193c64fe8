package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Browse generated gap reports",
	}
	reportCmd.AddCommand(newReportListCommand(ctx))
	reportCmd.AddCommand(newReportShowCommand(ctx))
	return reportCmd
}

type reportEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

func listReportEntries(reportsDir string) ([]reportEntry, error) {
	entries, err := os.ReadDir(reportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reports directory: %w", err)
	}

	reports := make([]reportEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, reportEntry{
			Name:     strings.TrimSuffix(entry.Name(), ".md"),
			Path:     filepath.Join(reportsDir, entry.Name()),
			Size:     info.Size(),
			Modified: info.ModTime().UTC().Format("2006-01-02 15:04"),
		})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Name > reports[j].Name })
	return reports, nil
}

func newReportListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List gap reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			reports, err := listReportEntries(cfg.Paths.ReportsDir)
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"reports": reports})
			}
			if len(reports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reports generated yet")
				return nil
			}
			rows := make([][]string, 0, len(reports))
			for _, report := range reports {
				rows = append(rows, []string{report.Name, report.Modified})
			}
			table := renderTable(
				[]string{"Report", "Generated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newReportShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a gap report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			name := strings.TrimSuffix(filepath.Base(args[0]), ".md")
			path := filepath.Join(cfg.Paths.ReportsDir, name+".md")
			if ctx.JSONMode() {
				path = filepath.Join(cfg.Paths.ReportsDir, name+".json")
			}

			content, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("report %q not found; run `soundcheck report list`", name)
				}
				return fmt.Errorf("read report: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(content))
			return nil
		},
	}
}
