package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names one external binary the pipeline shells out to, such as
// ffmpeg or yt-dlp.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the result of probing a single requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries probes each requirement on PATH and reports what it found.
// Nothing fails here; callers decide whether a missing optional tool matters.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, probe(req))
	}
	return results
}

func probe(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	switch {
	case cmd == "":
		status.Detail = "command not configured"
	default:
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		} else {
			status.Available = true
		}
	}
	return status
}
