package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vk/wrangler/internal/graph"
	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/workflow"
)

var ErrUnknownOp = errors.New("unknown mutation")

// Mutation operations accepted by Apply.
const (
	OpAddInput        = "addInput"
	OpRemoveInput     = "removeInput"
	OpAddStep         = "addStep"
	OpRemoveStep      = "removeStep"
	OpReconfigureStep = "reconfigureStep"
	OpAddOutput       = "addOutput"
	OpRemoveOutput    = "removeOutput"
	OpClear           = "clear"
)

// Mutation is the wire form of one pipeline change.
type Mutation struct {
	Op     string           `json:"op"`
	Index  int              `json:"index,omitempty"`
	Step   *workflow.Step   `json:"step,omitempty"`
	Output *workflow.Output `json:"output,omitempty"`
	Name   string           `json:"name,omitempty"`
	// Table is the content of an input added with OpAddInput.
	Table *table.Table `json:"table,omitempty"`
}

// DecodeMutation converts a loosely typed event payload, as delivered by
// socket.io, into a Mutation.
func DecodeMutation(payload any) (Mutation, error) {
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return Mutation{}, fmt.Errorf("decode mutation: %w", err)
		}
	}
	var m Mutation
	if err := json.Unmarshal(data, &m); err != nil {
		return Mutation{}, fmt.Errorf("decode mutation: %w", err)
	}
	return m, nil
}

// Apply executes a mutation on the loop goroutine.
func (s *Session) Apply(ctx context.Context, m Mutation) error {
	return s.Do(ctx, func(p graph.Pipeline) error {
		return apply(p, m)
	})
}

func apply(p graph.Pipeline, m Mutation) error {
	switch m.Op {
	case OpAddInput:
		if m.Name == "" {
			return fmt.Errorf("%s: missing name", m.Op)
		}
		p.AddInput(m.Name, m.Table)
		return nil
	case OpRemoveInput:
		if m.Name == "" {
			return fmt.Errorf("%s: missing name", m.Op)
		}
		p.RemoveInput(m.Name)
		return nil
	case OpAddStep:
		if m.Step == nil {
			return fmt.Errorf("%s: missing step", m.Op)
		}
		_, err := p.AddStep(*m.Step)
		return err
	case OpRemoveStep:
		return p.RemoveStep(m.Index)
	case OpReconfigureStep:
		if m.Step == nil {
			return fmt.Errorf("%s: missing step", m.Op)
		}
		_, err := p.ReconfigureStep(m.Index, *m.Step)
		return err
	case OpAddOutput:
		if m.Output == nil {
			return fmt.Errorf("%s: missing output", m.Op)
		}
		_, err := p.AddOutput(*m.Output)
		return err
	case OpRemoveOutput:
		return p.RemoveOutput(m.Name)
	case OpClear:
		p.Clear()
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownOp, m.Op)
}
