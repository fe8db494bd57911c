package handoffstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ExportMarkdown renders the handoff chain ending at handoffID as a single
// human-readable markdown file under dir, oldest handoff first. This is a
// supplemental convenience on top of C3's canonical text storage — useful
// for a human reviewing a task's history without decoding the wire format
// by hand.
func (s *Store) ExportMarkdown(ctx context.Context, handoffID, dir string) (string, error) {
	chain, err := s.Chain(ctx, handoffID)
	if err != nil {
		return "", errors.Wrap(err, "handoffstore: failed to load chain for markdown export")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "handoffstore: failed to create export directory")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Handoff chain for task %s\n\n", chain[len(chain)-1].TaskID)

	for i, doc := range chain {
		fmt.Fprintf(&b, "## Handoff %d of %d — %s\n\n", i+1, len(chain), doc.HandoffID)
		fmt.Fprintf(&b, "- Agent: %s (%s), terminated: %s\n", doc.SourceAgent.AgentID, doc.SourceAgent.AgentType, doc.SourceAgent.TerminationReason)
		fmt.Fprintf(&b, "- Completion: %d%% (%s)\n", doc.CompletionPercentage, doc.TaskStatus)
		fmt.Fprintf(&b, "- Token usage: %d / %.1f%%\n\n", doc.TokenUsage.Total, doc.TokenUsage.UsagePercentage)

		b.WriteString("### Task description\n\n")
		b.WriteString(orMarkdownNone(doc.TaskDescription))
		b.WriteString("\n\n")

		b.WriteString("### Pending work\n\n")
		if len(doc.TodoList) == 0 {
			b.WriteString(orMarkdownNone(""))
		} else {
			for _, t := range doc.TodoList {
				fmt.Fprintf(&b, "- [%s] %s\n", t.Priority, t.Description)
			}
		}
		b.WriteString("\n")
	}

	path := filepath.Join(dir, handoffID+".md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errors.Wrap(err, "handoffstore: failed to write markdown export")
	}
	return path, nil
}

func orMarkdownNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "_none_"
	}
	return s
}
