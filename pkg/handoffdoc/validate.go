package handoffdoc

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Validate checks structural completeness of doc: required identifiers are
// present, completion percentage is in range, and degraded documents carry
// the minimal fields the fallback path is required to populate (spec §4.4).
// It aggregates every violation found rather than stopping at the first.
// Run this once a document carries the manager-stamped identifiers
// (schema_version, handoff_id, trace_id, task_id, source_agent) — i.e.
// just before persisting, not on a freshly extracted document.
func Validate(doc *Document) error {
	var result *multierror.Error

	if doc.SchemaVersion == "" {
		result = multierror.Append(result, errRequired("schema_version"))
	}
	if doc.HandoffID == "" {
		result = multierror.Append(result, errRequired("handoff_id"))
	}
	if doc.TraceID == "" {
		result = multierror.Append(result, errRequired("trace_id"))
	}
	if doc.TaskID == "" {
		result = multierror.Append(result, errRequired("task_id"))
	}
	if doc.SourceAgent.AgentID == "" {
		result = multierror.Append(result, errRequired("source_agent.agent_id"))
	}
	if doc.PredecessorHandoffID == doc.HandoffID && doc.HandoffID != "" {
		result = multierror.Append(result, errf("handoff_id and predecessor_handoff_id must differ"))
	}

	if err := ValidateContent(doc); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// ValidateContent checks only the fields a terminating agent's extraction
// call is responsible for populating: completion percentage, task status,
// and (for non-degraded handoffs) the TODO list and decisions. It
// deliberately excludes the identifiers the manager stamps onto a document
// after extraction, so it can run against a document fresh off the model
// before CreateHandoff has assigned a handoff_id (spec §4.4 step 3).
func ValidateContent(doc *Document) error {
	var result *multierror.Error

	if doc.CompletionPercentage < 0 || doc.CompletionPercentage > 100 {
		result = multierror.Append(result, errf("completion_percentage %d out of range [0, 100]", doc.CompletionPercentage))
	}
	if !validTaskStatus(doc.TaskStatus) {
		result = multierror.Append(result, errf("task_status %q is not a recognized value", doc.TaskStatus))
	}

	if doc.Degraded {
		if strings.TrimSpace(doc.TaskDescription) == "" {
			result = multierror.Append(result, errf("degraded handoff must still carry a task_description"))
		}
	} else {
		for i, t := range doc.TodoList {
			if !validPriority(t.Priority) {
				result = multierror.Append(result, errf("todo_list[%d] has invalid priority %q", i, t.Priority))
			}
			if strings.TrimSpace(t.Description) == "" {
				result = multierror.Append(result, errf("todo_list[%d] missing description", i))
			}
		}
	}

	for i, d := range doc.Decisions {
		if d.ID == "" {
			result = multierror.Append(result, errf("decisions[%d] missing id", i))
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			result = multierror.Append(result, errf("decisions[%d] confidence %.2f out of range [0, 1]", i, d.Confidence))
		}
	}

	return result.ErrorOrNil()
}

func validTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusInProgress, TaskStatusBlocked, TaskStatusReadyForHandoff:
		return true
	default:
		return false
	}
}

func validPriority(p Priority) bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	default:
		return false
	}
}

func errRequired(field string) error {
	return errf("missing required field %q", field)
}

func errf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
