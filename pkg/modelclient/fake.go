package modelclient

import (
	"context"
	"sync"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffdoc"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
	"github.com/kodelet-systems/agentlifecycle/pkg/tokentracker"
)

// Fake is a scriptable Client used by tests. Each call
// to Call or ExtractHandoffState pops the next queued response; once a
// queue is empty it returns a zero-usage empty result.
type Fake struct {
	mu sync.Mutex

	CallResponses []CallResult
	CallErrs      []error

	ExtractDocs   []*handoffdoc.Document
	ExtractUsages []tokentracker.Usage
	ExtractErrs   []error

	Calls      []CallRequest
	Extractions []ExtractionRequest
}

var _ Client = (*Fake)(nil)

// Call implements Client.
func (f *Fake) Call(ctx context.Context, req CallRequest) (CallResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, req)

	var result CallResult
	if len(f.CallResponses) > 0 {
		result, f.CallResponses = f.CallResponses[0], f.CallResponses[1:]
	}

	var err error
	if len(f.CallErrs) > 0 {
		err, f.CallErrs = f.CallErrs[0], f.CallErrs[1:]
	}

	return result, err
}

// ExtractHandoffState implements Client.
func (f *Fake) ExtractHandoffState(ctx context.Context, req ExtractionRequest) (*handoffdoc.Document, tokentracker.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Extractions = append(f.Extractions, req)

	var doc *handoffdoc.Document
	if len(f.ExtractDocs) > 0 {
		doc, f.ExtractDocs = f.ExtractDocs[0], f.ExtractDocs[1:]
	}

	var usage tokentracker.Usage
	if len(f.ExtractUsages) > 0 {
		usage, f.ExtractUsages = f.ExtractUsages[0], f.ExtractUsages[1:]
	}

	var err error
	if len(f.ExtractErrs) > 0 {
		err, f.ExtractErrs = f.ExtractErrs[0], f.ExtractErrs[1:]
	}

	return doc, usage, err
}

// ErrExhausted is a convenience error matching isExhaustionLike's check,
// for scripting a "state-extraction call itself exhausts" scenario.
var ErrExhausted = lifecycleerrors.New(lifecycleerrors.KindContextWindowExhausted, "fake: model exhausted during extraction")
