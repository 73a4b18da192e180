package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"shotpipe/internal/config"
)

// Requirement is an external binary shotpipe may execute.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Requirement
	Available bool
	Path      string
	Detail    string
}

// Requirements lists the binaries the configuration will invoke.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil || !cfg.Metadata.Enabled {
		return nil
	}
	return []Requirement{{
		Name:        "ffprobe",
		Command:     cfg.Metadata.FFprobeBinary,
		Description: "video metadata probing",
		Optional:    true,
	}}
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		switch path, err := exec.LookPath(req.Command); {
		case req.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		default:
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}
