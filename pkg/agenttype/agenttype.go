// Package agenttype defines the fixed set of agent roles the lifecycle
// manager can spawn and the workflow templates that sequence them.
package agenttype

// Type identifies what an agent instance is for. The state machine and
// token tracker are identical across types; only the base system prompt
// and position in a workflow template differ.
type Type string

const (
	Designer     Type = "designer"
	Frontend     Type = "frontend"
	Backend      Type = "backend"
	CodeReviewer Type = "code_reviewer"
	QA           Type = "qa"
	DevOps       Type = "devops"
	Conversational Type = "conversational"
)

// Workflow is a named ordered sequence of agent types an orchestrated
// task is driven through.
type Workflow string

const (
	WorkflowFullBuild    Workflow = "full_build"
	WorkflowBugFix       Workflow = "bug_fix"
	WorkflowDesignOnly   Workflow = "design_only"
	WorkflowDeployOnly   Workflow = "deploy_only"
	WorkflowConversational Workflow = "conversational"
)

// Template returns the ordered agent types a workflow drives, leaf steps
// first. bug_fix is fixed to the backend branch of its reviewer→fix→qa
// template; routing the fork to Frontend based on the bug's target
// component is not implemented.
func Template(w Workflow) []Type {
	switch w {
	case WorkflowFullBuild:
		return []Type{Designer, Frontend, Backend, CodeReviewer, QA, DevOps}
	case WorkflowBugFix:
		return []Type{CodeReviewer, Backend, QA}
	case WorkflowDesignOnly:
		return []Type{Designer}
	case WorkflowDeployOnly:
		return []Type{DevOps}
	case WorkflowConversational:
		return []Type{Conversational}
	default:
		return nil
	}
}
