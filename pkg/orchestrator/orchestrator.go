package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycle"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
	"github.com/kodelet-systems/agentlifecycle/pkg/modelclient"
	"github.com/kodelet-systems/agentlifecycle/pkg/notifier"
	"github.com/kodelet-systems/agentlifecycle/pkg/observability"
	"github.com/kodelet-systems/agentlifecycle/pkg/sessionstore"
)

// Orchestrator is the per-user request coordinator described in spec §4.5.
// It owns no agent state itself — that lives in lifecycle.Manager — only
// the routing decisions and per-user serialization around it.
type Orchestrator struct {
	manager  *lifecycle.Manager
	sessions sessionstore.Store
	model    modelclient.Client
	notify   notifier.Notifier
	bus      *observability.Bus

	userLocksMu sync.Mutex
	userLocks   map[string]*sync.Mutex

	seenMu sync.Mutex
	seen   map[string]struct{}
}

// New constructs an Orchestrator. All dependencies are required except
// bus, which may be nil; a nil bus is replaced by a Bus on the global
// tracer provider.
func New(manager *lifecycle.Manager, sessions sessionstore.Store, model modelclient.Client, notify notifier.Notifier, bus *observability.Bus) *Orchestrator {
	if bus == nil {
		bus = observability.NewBus("agentlifecycle")
	}
	return &Orchestrator{
		manager:   manager,
		sessions:  sessions,
		model:     model,
		notify:    notify,
		bus:       bus,
		userLocks: make(map[string]*sync.Mutex),
		seen:      make(map[string]struct{}),
	}
}

func (o *Orchestrator) lockFor(userID string) *sync.Mutex {
	o.userLocksMu.Lock()
	defer o.userLocksMu.Unlock()
	l, ok := o.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		o.userLocks[userID] = l
	}
	return l
}

func (o *Orchestrator) alreadySeen(userID, messageID string) bool {
	if messageID == "" {
		return false
	}
	key := userID + ":" + messageID

	o.seenMu.Lock()
	defer o.seenMu.Unlock()
	if _, ok := o.seen[key]; ok {
		return true
	}
	o.seen[key] = struct{}{}
	return false
}

// HandleMessage routes one inbound message end to end: dedup, classify,
// select or resume a workflow, drive it to completion or exhaustion, and
// persist the resulting session state (spec §4.5).
func (o *Orchestrator) HandleMessage(ctx context.Context, msg IncomingMessage) (res *Result, err error) {
	if o.alreadySeen(msg.UserID, msg.MessageID) {
		return &Result{Deduplicated: true}, nil
	}

	ctx, span := o.bus.StartUserRequest(ctx, msg.UserID)
	defer func() { observability.EndErr(span, err) }()

	lock := o.lockFor(msg.UserID)
	lock.Lock()
	defer lock.Unlock()

	session, err := o.sessions.Get(ctx, msg.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "orchestrator: failed to load session")
	}
	if session == nil {
		session = &sessionstore.Session{UserID: msg.UserID}
	}

	if msg.CancelRequested {
		return o.handleCancellation(ctx, session, msg)
	}

	result := classify(ctx, o.model, "orchestrator-classifier", session.ActiveTaskID, session.CurrentPhase, msg.Text)

	wf := session.ActiveWorkflow
	taskID := session.ActiveTaskID
	if result.Label == ClassNewTask || wf == "" {
		wf = result.Workflow
		taskID = uuid.NewString()
	}

	traceID := uuid.NewString()
	lastAgentID, handoffs, runErr := o.runWorkflow(ctx, msg.UserID, msg.ProjectID, traceID, taskID, msg.Text, wf)
	if runErr != nil {
		kind, _ := lifecycleerrors.KindOf(runErr)
		if kind == lifecycleerrors.KindHandoffLimitExceeded {
			session.ActiveTaskID = ""
			session.ActiveWorkflow = ""
			_ = o.saveSession(ctx, session, msg.MessageID)
		}
		o.notifyf(ctx, msg.UserID, "The task could not be completed (%s). Partial work has been saved and can be resumed.", shortReason(runErr))
		return nil, runErr
	}

	session.ActiveTaskID = taskID
	session.ActiveWorkflow = wf
	session.CurrentPhase = "done"
	if err := o.saveSession(ctx, session, msg.MessageID); err != nil {
		return nil, err
	}

	o.notifyf(ctx, msg.UserID, "%s complete.", wf)

	return &Result{
		Classification: result.Label,
		Workflow:       wf,
		TaskID:         taskID,
		FinalAgentID:   lastAgentID,
		HandoffCount:   handoffs,
		CompletedAt:    time.Now(),
	}, nil
}

func (o *Orchestrator) handleCancellation(ctx context.Context, session *sessionstore.Session, msg IncomingMessage) (*Result, error) {
	wf := session.ActiveWorkflow
	session.ActiveTaskID = ""
	session.ActiveWorkflow = ""
	session.CurrentPhase = "cancelled"
	if err := o.saveSession(ctx, session, msg.MessageID); err != nil {
		return nil, err
	}
	o.notifyf(ctx, msg.UserID, "Task cancelled.")
	return &Result{Classification: ClassCancellation, Workflow: wf}, nil
}

func (o *Orchestrator) saveSession(ctx context.Context, session *sessionstore.Session, lastMessageID string) error {
	session.LastMessageID = lastMessageID
	session.UpdatedAt = time.Now()
	if err := o.sessions.Save(ctx, session); err != nil {
		return errors.Wrap(err, "orchestrator: failed to save session")
	}
	return nil
}

// shortReason translates a lifecycle error into the terse phrase spec §7
// requires for the fatal-failure notification. Internal errors never
// reach the user verbatim.
func shortReason(err error) string {
	kind, ok := lifecycleerrors.KindOf(err)
	if !ok {
		return "internal error"
	}
	switch kind {
	case lifecycleerrors.KindHandoffLimitExceeded:
		return "too many handoffs"
	case lifecycleerrors.KindHandoffStoreUnavailable:
		return "handoff store unavailable"
	case lifecycleerrors.KindMalformedHandoff:
		return "handoff state could not be extracted"
	case lifecycleerrors.KindChainBroken:
		return "handoff chain broken"
	case lifecycleerrors.KindChainCycle:
		return "handoff chain cycle detected"
	case lifecycleerrors.KindModelCallTimeout:
		return "model call timed out"
	case lifecycleerrors.KindClassificationFailed:
		return "classification failed"
	default:
		return "internal error"
	}
}

func (o *Orchestrator) notifyf(ctx context.Context, userID, format string, args ...any) {
	if o.notify == nil {
		return
	}
	if err := o.notify.Notify(ctx, userID, fmt.Sprintf(format, args...)); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("orchestrator: failed to deliver notification")
	}
}
