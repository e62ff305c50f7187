package script

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/modoterra/logtree/pkg/core"
)

// Report lists the outcome of every step in the order the steps appear in
// the script.
type Report struct {
	Script   string            `json:"script,omitempty"`
	Results  []core.StepResult `json:"results"`
	Duration time.Duration     `json:"duration"`
}

// Count returns the number of steps with the given status.
func (r *Report) Count(status core.Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Commands returns the results of run and shell steps.
func (r *Report) Commands() []core.StepResult {
	var out []core.StepResult
	for _, res := range r.Results {
		if res.Kind == core.KindRun || res.Kind == core.KindShell {
			out = append(out, res)
		}
	}
	return out
}

// Render writes a summary table of the commands to w.
func (r *Report) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Step", "Command", "Status", "Exit", "Lines", "Duration"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	for _, res := range r.Commands() {
		table.Append([]string{
			res.ID,
			res.Label,
			string(res.Status),
			strconv.Itoa(res.ExitCode),
			strconv.Itoa(res.Lines),
			res.Duration.Round(time.Millisecond).String(),
		})
	}
	table.SetFooter([]string{"", "", "", "", "total", r.Duration.Round(time.Millisecond).String()})
	table.Render()
}
