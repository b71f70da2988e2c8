package graph

import (
	"context"

	"github.com/vk/wrangler/internal/dataflow"
	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/workflow"
)

// Pipeline is the mutation and query surface hosts drive.
//
// # Usage Patterns
//
// A UI or socket session mutates through the step and output methods and
// re-reads state when a change handler fires:
//
//	stop := p.OnChange(func() {
//	    render(p.Steps(), p.ToMap())
//	})
//	defer stop()
//	_, err := p.AddStep(workflow.Step{Verb: verbs.Fill, Args: ...})
//
// # Error Conditions
//
// Structural errors (ErrUnknownReference, ErrRename, duplicate ids,
// dataflow.ErrCycle) are returned synchronously and leave the pipeline
// unchanged. Verb failures are not returned by mutations; they are exposed
// through StepError and announced through OnChange.
//
// # Thread-Safety
//
// Implementations are owned by a single goroutine. Hosts that receive
// mutations concurrently serialise them, see internal/session.
type Pipeline interface {
	AddInput(id string, t *table.Table)
	RemoveInput(id string)
	AddStep(step workflow.Step) (workflow.Step, error)
	RemoveStep(index int) error
	ReconfigureStep(index int, step workflow.Step) (workflow.Step, error)
	AddOutput(out workflow.Output) (workflow.Output, error)
	RemoveOutput(name string) error
	Clear()

	Steps() []workflow.Step
	Inputs() []string
	Outputs() []string
	Document() workflow.Document
	Output(name string) (*dataflow.Stream, error)
	Latest(name string) (*table.Table, bool)
	ToMap() map[string]*table.Table
	StepError(id string) error
	Describe() ([]StepInfo, error)
	OnChange(fn func()) func()

	Settle(ctx context.Context) error
	Pending() int
	Completions() <-chan dataflow.Completion
	Apply(c dataflow.Completion)
	Close()
}

var _ Pipeline = (*Manager)(nil)
