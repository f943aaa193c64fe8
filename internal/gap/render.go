package gap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"soundcheck/internal/textutil"
)

// WriteFiles persists the report as JSON and Markdown under reportsDir and
// returns the two paths.
func (r *Report) WriteFiles(reportsDir string) (jsonPath, markdownPath string, err error) {
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create reports directory: %w", err)
	}

	base := r.CreatedAt.Format("20060102-150405")
	if slug := textutil.SanitizeFileName(r.TrackTitle); slug != "" {
		base += "-" + slug
	}

	jsonPath = filepath.Join(reportsDir, base+".json")
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return "", "", fmt.Errorf("write report json: %w", err)
	}

	markdownPath = filepath.Join(reportsDir, base+".md")
	if err := os.WriteFile(markdownPath, []byte(r.Markdown()), 0o644); err != nil {
		return "", "", fmt.Errorf("write report markdown: %w", err)
	}
	return jsonPath, markdownPath, nil
}

// Markdown renders the report as a standalone document.
func (r *Report) Markdown() string {
	var b strings.Builder

	title := r.TrackTitle
	if title == "" {
		title = "Candidate track"
	}
	fmt.Fprintf(&b, "# Gap report: %s\n\n", title)
	fmt.Fprintf(&b, "- **Reference set**: %s (profile built %s, %s)\n",
		r.SetName, r.ProfileBuiltAt.Format("2006-01-02"), r.ID)
	fmt.Fprintf(&b, "- **Match score**: %.0f/100\n", r.MatchScore)
	if r.NearestCluster != "" {
		fmt.Fprintf(&b, "- **Nearest cluster**: %s\n", r.NearestCluster)
	}
	fmt.Fprintf(&b, "\n%s\n", r.Summary)

	if len(r.Recommendations) > 0 {
		b.WriteString("\n## Recommendations\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "%d. **%s**: %s\n", rec.Rank, rec.Action, rec.Detail)
		}
	}

	b.WriteString("\n## Metrics\n\n")
	b.WriteString("| Metric | Value | Reference mean | Z | Percentile | Severity |\n")
	b.WriteString("|---|---:|---:|---:|---:|---|\n")
	for _, g := range r.Gaps {
		unit := ""
		if g.Unit != "" {
			unit = " " + g.Unit
		}
		fmt.Fprintf(&b, "| %s | %.2f%s | %.2f%s | %+.2f | %.0f%% | %s |\n",
			g.Label, g.Value, unit, g.Mean, unit, g.ZScore, g.Percentile, g.Severity)
	}
	return b.String()
}
