package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/escalation"
)

// Stage is the part of a stage declaration the diagram needs.
type Stage struct {
	Name     string
	Kind     string
	Blocking bool
	Policy   []escalation.Entry
}

// GenerateMermaid produces a Mermaid flowchart of one trial's stage pipeline.
// It applies semantic styling:
// - Pollable: ([Stadium])
// - Resource stages (acquire/release): [[Subroutine]]
// - Default (blocking): [Rectangle]
// Escalation entries are drawn as dotted edges: stage resets loop on the stage,
// trial resets go back to the first stage and aborts leave the pipeline.
func GenerateMermaid(stages []Stage, trialPolicy []escalation.Entry) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    begin((\"begin\"))\n")
	sb.WriteString("    done((\"done\"))\n")

	prev := "begin"
	for i, st := range stages {
		id := nodeID(i, st.Name)

		opener, closer := "[", "]"
		switch {
		case st.Kind == "acquire" || st.Kind == "release":
			opener, closer = "[[", "]]"
		case !st.Blocking:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %s\"%s\n", id, opener, st.Name, st.Kind, closer)
		fmt.Fprintf(&sb, "    %s --> %s\n", prev, id)
		prev = id

		for _, kind := range kinds(st.Policy) {
			switch kind {
			case domain.KindStageReset:
				fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", id, kind, id)
			case domain.KindStageAbort:
				if i+1 < len(stages) {
					fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", id, kind, nodeID(i+1, stages[i+1].Name))
				} else {
					fmt.Fprintf(&sb, "    %s -. \"%s\" .-> done\n", id, kind)
				}
			}
		}
	}
	fmt.Fprintf(&sb, "    %s --> done\n", prev)

	if len(stages) > 0 {
		first := nodeID(0, stages[0].Name)
		for _, kind := range kinds(trialPolicy) {
			switch kind {
			case domain.KindTrialReset:
				fmt.Fprintf(&sb, "    done -. \"%s\" .-> %s\n", kind, first)
			case domain.KindTrialAbort:
				fmt.Fprintf(&sb, "    %s -. \"%s\" .-> done\n", first, kind)
			}
		}
	}
	return sb.String()
}

// kinds returns the distinct kinds of a policy in order of appearance.
func kinds(entries []escalation.Entry) []domain.Kind {
	var out []domain.Kind
	seen := map[domain.Kind]bool{}
	for _, e := range entries {
		if !seen[e.Kind] {
			seen[e.Kind] = true
			out = append(out, e.Kind)
		}
	}
	return out
}

func nodeID(i int, name string) string {
	s := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(name)
	return fmt.Sprintf("s%d_%s", i, s)
}
