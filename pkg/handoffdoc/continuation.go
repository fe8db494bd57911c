package handoffdoc

import (
	"fmt"
	"sort"
	"strings"
)

// ContinuationPrompt renders doc as the prompt text a successor agent is
// spawned with. Ordering follows spec §4.2: pending work comes first so the
// successor acts immediately, decisions come next so it does not relitigate
// settled choices, and rejected alternatives come last as anti-examples of
// paths already tried and discarded.
func ContinuationPrompt(doc *Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are continuing task %q from a predecessor agent that handed off at %d%% completion.\n\n", doc.TaskID, doc.CompletionPercentage)

	if doc.Degraded {
		b.WriteString("NOTE: this handoff was produced by the minimal fallback path. Full decision and work history was not captured; re-derive context from the task description and any references below before proceeding.\n\n")
	}

	fmt.Fprintf(&b, "## Original request\n%s\n\n", orNone(doc.OriginalRequest))
	fmt.Fprintf(&b, "## Task description\n%s\n\n", orNone(doc.TaskDescription))

	b.WriteString("## What to do next\n")
	if len(doc.TodoList) == 0 {
		b.WriteString(noneMarker + "\n")
	} else {
		ordered := make([]TodoItem, len(doc.TodoList))
		copy(ordered, doc.TodoList)
		sort.SliceStable(ordered, func(i, j int) bool {
			return priorityRank(ordered[i].Priority) < priorityRank(ordered[j].Priority)
		})
		for _, t := range ordered {
			if t.AcceptanceCriteria != "" {
				fmt.Fprintf(&b, "- [%s] %s (done when: %s)\n", t.Priority, t.Description, t.AcceptanceCriteria)
			} else {
				fmt.Fprintf(&b, "- [%s] %s\n", t.Priority, t.Description)
			}
		}
	}
	b.WriteString("\n")

	b.WriteString("## Decisions already made — do not relitigate\n")
	if len(doc.Decisions) == 0 {
		b.WriteString(noneMarker + "\n")
	} else {
		for _, d := range doc.Decisions {
			fmt.Fprintf(&b, "- %s: %s\n", d.Title, d.Rationale)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Already tried and rejected — do not repeat these\n")
	if len(doc.RejectedAlternatives) == 0 {
		b.WriteString(noneMarker + "\n")
	} else {
		for _, r := range doc.RejectedAlternatives {
			fmt.Fprintf(&b, "- %s: rejected because %s\n", r.Option, r.ReasonRejected)
		}
	}
	b.WriteString("\n")

	if len(doc.Assumptions) > 0 {
		b.WriteString("## Assumptions carried forward\n")
		for _, a := range doc.Assumptions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		b.WriteString("\n")
	}

	if len(doc.Constraints) > 0 {
		b.WriteString("## Constraints\n")
		for _, c := range doc.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	return b.String()
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	case PriorityP3:
		return 3
	default:
		return 99
	}
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return noneMarker
	}
	return s
}
