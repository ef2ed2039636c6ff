package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/stagehand/pkg/observability"
	"github.com/muesli/termenv"
)

// Summary aggregates every attempt of one run command.
type Summary struct {
	Config    string
	StartedAt time.Time
	Elapsed   time.Duration
	Restarts  int
	Slots     int

	Completed   int
	Aborted     int
	Resets      int
	Shipped     int
	Escalations int

	// Errors counts absorbed trial resets and aborts per slot.
	Errors []int
	Err    error
}

func (s *Summary) add(st observability.Status, errs []int) {
	s.Shipped += st.Shipped
	s.Escalations += st.Escalations
	for _, slot := range st.Slots {
		s.Completed += slot.Completed
		s.Aborted += slot.Aborted
		s.Resets += slot.Resets
	}
	for len(s.Errors) < len(errs) {
		s.Errors = append(s.Errors, 0)
	}
	for i, n := range errs {
		s.Errors[i] += n
	}
}

// PrintBanner writes the program name and version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	name := out.String("stagehand").Bold().Foreground(out.Color("#818cf8"))
	fmt.Fprintf(w, "%s %s\n\n", name, out.String(strings.TrimSpace(version)).Faint())
}

// PrintSummary writes a coloured report of the run.
func PrintSummary(w io.Writer, s *Summary) {
	out := termenv.NewOutput(w)
	label := func(text string) termenv.Style { return out.String(fmt.Sprintf("%-12s", text)).Faint() }
	count := func(n int, hex string) termenv.Style {
		st := out.String(fmt.Sprint(n))
		if n > 0 {
			st = st.Foreground(out.Color(hex))
		}
		return st
	}

	status := out.String("finished").Bold().Foreground(out.Color("#22c55e"))
	if s.Err != nil {
		status = out.String("stopped").Bold().Foreground(out.Color("#ef4444"))
	}

	fmt.Fprintf(w, "\n%s %s in %s\n", out.String("Experiment").Bold(), status, s.Elapsed.Round(time.Millisecond))
	if s.Config != "" {
		fmt.Fprintf(w, "%s %s\n", label("config"), s.Config)
	}
	fmt.Fprintf(w, "%s %d\n", label("slots"), s.Slots)
	fmt.Fprintf(w, "%s %s\n", label("completed"), count(s.Completed, "#22c55e"))
	fmt.Fprintf(w, "%s %s\n", label("aborted"), count(s.Aborted, "#ef4444"))
	fmt.Fprintf(w, "%s %s\n", label("resets"), count(s.Resets, "#f59e0b"))
	fmt.Fprintf(w, "%s %d\n", label("shipped"), s.Shipped)
	fmt.Fprintf(w, "%s %s\n", label("escalations"), count(s.Escalations, "#f59e0b"))
	if s.Restarts > 0 {
		fmt.Fprintf(w, "%s %s\n", label("restarts"), count(s.Restarts, "#f59e0b"))
	}
	if len(s.Errors) > 0 {
		parts := make([]string, len(s.Errors))
		for i, n := range s.Errors {
			parts[i] = fmt.Sprintf("#%d:%d", i, n)
		}
		fmt.Fprintf(w, "%s %s\n", label("slot errors"), strings.Join(parts, " "))
	}
	if s.Err != nil {
		fmt.Fprintf(w, "%s %s\n", label("error"), out.String(s.Err.Error()).Foreground(out.Color("#ef4444")))
	}
}
