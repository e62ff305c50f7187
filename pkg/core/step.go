package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind represents the action a script step performs.
type Kind string

const (
	KindNote  Kind = "note"
	KindMoan  Kind = "moan"
	KindCd    Kind = "cd"
	KindRun   Kind = "run"
	KindShell Kind = "shell"
)

// Status represents the outcome of a step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records what happened when a step ran.
type StepResult struct {
	ID       string        `json:"id"`
	Kind     Kind          `json:"kind"`
	Label    string        `json:"label"`
	Status   Status        `json:"status"`
	ExitCode int           `json:"exit_code"`
	Lines    int           `json:"lines"`
	Duration time.Duration `json:"duration"`
}

// StepID constructs a step ID from the step's index at each nesting level.
// Format: 0.2.1
func StepID(indices ...int) string {
	parts := make([]string, len(indices))
	for i, n := range indices {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// ParseStepID splits a step ID into its per-level indices.
func ParseStepID(id string) ([]int, error) {
	if id == "" {
		return nil, fmt.Errorf("invalid step ID %q: empty", id)
	}
	parts := strings.Split(id, ".")
	indices := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid step ID %q: expected dotted non-negative indices", id)
		}
		indices[i] = n
	}
	return indices, nil
}
