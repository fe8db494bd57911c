package notifier

import (
	"context"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var consoleMu sync.Mutex

// ConsoleNotifier prints notifications to stdout, colored by severity
// inferred from the message text the lifecycle manager sends ("critical
// usage", "task failed", "New ... spawned"). It exists for the demo CLI
// and tests; a real deployment swaps it for whatever chat platform or
// webhook integration sends these to an actual user.
type ConsoleNotifier struct {
	Silent bool
}

// Notify implements Notifier.
func (n *ConsoleNotifier) Notify(_ context.Context, userID, message string) error {
	if n.Silent {
		return nil
	}

	consoleMu.Lock()
	defer consoleMu.Unlock()

	printer := color.New(color.FgCyan)
	switch {
	case strings.Contains(message, "failed"), strings.Contains(message, "exceeded"):
		printer = color.New(color.FgRed)
	case strings.Contains(message, "critical"), strings.Contains(message, "preparing handoff"):
		printer = color.New(color.FgYellow)
	}

	printer.Printf("[%s] %s\n", userID, message)
	return nil
}
