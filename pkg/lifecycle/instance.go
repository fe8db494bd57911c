package lifecycle

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/kodelet-systems/agentlifecycle/pkg/agenttype"
	"github.com/kodelet-systems/agentlifecycle/pkg/tokentracker"
)

// AgentInstance is one running agent under lifecycle supervision. It is
// created by Manager.Spawn, mutated only by the Manager, and destroyed by
// Manager.Terminate; callers outside this package hold it only by
// agent_id (spec §3: "weak references held by Orchestrator by agent_id").
type AgentInstance struct {
	AgentID   string
	AgentType agenttype.Type
	Version   int
	SpawnTime time.Time

	UserID               string
	ProjectID            string
	TraceID              string
	TaskID               string
	PredecessorHandoffID string

	// OriginalRequest is the verbatim user text, inherited from the
	// predecessor's handoff for successors, set directly for a root agent.
	OriginalRequest string
	// CompletionFloor is the predecessor's completion_percentage; handoffs
	// produced by this instance must not report less than this.
	CompletionFloor int
	// SystemPrompt is the continuation prompt (if any) followed by the
	// agent-type base prompt (spec §4.4).
	SystemPrompt string

	Tracker *tokentracker.Tracker

	mu           sync.Mutex
	state        State
	lastStatus   tokentracker.Status
	conversationTail string
}

// State returns the instance's current state.
func (a *AgentInstance) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *AgentInstance) transition(to State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !CanTransition(a.state, to) {
		return errors.Errorf("lifecycle: invalid transition %s -> %s for agent %s", a.state, to, a.AgentID)
	}
	a.state = to
	return nil
}

// observeStatus records the tracker status just read and reports whether
// this is the first time this instance has seen that status, so callers
// only fire threshold callbacks once per crossing.
func (a *AgentInstance) observeStatus(status tokentracker.Status) (firstTime bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	firstTime = a.lastStatus != status
	a.lastStatus = status
	return firstTime
}

// SetConversationTail stashes a truncated tail of the agent's recent
// conversation for use by a degraded minimal handoff if the extraction
// call itself exhausts budget. The orchestrator in this module does not
// call it; with no tail set, the minimal handoff's task description falls
// back to the original request, or to a fixed placeholder when that is
// empty too.
func (a *AgentInstance) SetConversationTail(tail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conversationTail = tail
}

// ConversationTail returns the last tail set by SetConversationTail.
func (a *AgentInstance) ConversationTail() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conversationTail
}
