package modelclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoClient_Call_ClassifiesByKeyword(t *testing.T) {
	c := &DemoClient{}
	ctx := context.Background()

	cases := map[string]string{
		"Active task: (none)\nCurrent phase: (none)\nMessage: please cancel this":   "cancellation",
		"Active task: (none)\nCurrent phase: (none)\nMessage: what's the status?":   "status_query",
		"Active task: (none)\nCurrent phase: (none)\nMessage: hey there":            "greeting",
		"Active task: (none)\nCurrent phase: (none)\nMessage: there's a bug":        "new_task:bug_fix",
		"Active task: (none)\nCurrent phase: (none)\nMessage: build me a dashboard": "new_task:full_build",
	}

	for prompt, want := range cases {
		result, err := c.Call(ctx, CallRequest{OperationName: "classification", Prompt: prompt})
		require.NoError(t, err)
		assert.Equal(t, want, result.Text)
	}
}

func TestDemoClient_Call_StepReturnsScaledUsage(t *testing.T) {
	c := &DemoClient{TokensPerStep: 100}
	result, err := c.Call(context.Background(), CallRequest{OperationName: "backend_step"})
	require.NoError(t, err)
	assert.Equal(t, 50, result.Usage.InputTokens)
	assert.Equal(t, 50, result.Usage.OutputTokens)
}

func TestDemoClient_ExtractHandoffState_ProducesValidContent(t *testing.T) {
	c := &DemoClient{}
	doc, usage, err := c.ExtractHandoffState(context.Background(), ExtractionRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.TaskDescription)
	assert.Positive(t, usage.InputTokens)
}
