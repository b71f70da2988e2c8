package session

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/graph"
	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/workflow"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("session closed")

// Snapshot is the state pushed to listeners after a change.
type Snapshot struct {
	Steps   []workflow.Step         `json:"steps"`
	Inputs  []string                `json:"inputs"`
	Outputs map[string]*table.Table `json:"outputs"`
	Errors  map[string]string       `json:"errors,omitempty"`
}

type command struct {
	fn    func(graph.Pipeline) error
	reply chan error
}

type Session struct {
	pipeline graph.Pipeline
	logger   *zap.SugaredLogger
	commands chan command
	done     chan struct{}

	mu        sync.Mutex
	listeners map[int]func(Snapshot)
	nextID    int

	// dirty is only touched on the loop goroutine.
	dirty bool
}

func New(ctx context.Context, p graph.Pipeline) *Session {
	return &Session{
		pipeline:  p,
		logger:    ctxlog.FromContext(ctx).With("component", "session"),
		commands:  make(chan command),
		done:      make(chan struct{}),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Run owns the pipeline until ctx is cancelled. It publishes an initial
// snapshot, then one after every command or completion that changed
// something.
func (s *Session) Run(ctx context.Context) error {
	stop := s.pipeline.OnChange(func() { s.dirty = true })
	defer stop()
	defer close(s.done)

	s.logger.Debugw("Session loop started.")
	s.publish()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debugw("Session loop stopped.")
			return nil
		case cmd := <-s.commands:
			cmd.reply <- cmd.fn(s.pipeline)
		case c := <-s.pipeline.Completions():
			s.pipeline.Apply(c)
		}
		if s.dirty {
			s.dirty = false
			s.publish()
		}
	}
}

// Do runs fn on the loop goroutine and returns its error.
func (s *Session) Do(ctx context.Context, fn func(graph.Pipeline) error) error {
	reply := make(chan error, 1)
	select {
	case s.commands <- command{fn: fn, reply: reply}:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.Do(ctx, func(p graph.Pipeline) error {
		snap = snapshotOf(p)
		return nil
	})
	return snap, err
}

// Subscribe registers fn for snapshots. fn runs on the loop goroutine and
// must not call back into the session. The returned function unregisters it.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) publish() {
	snap := snapshotOf(s.pipeline)
	s.mu.Lock()
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	s.logger.Debugw("Publishing snapshot.", "steps", len(snap.Steps), "outputs", len(snap.Outputs), "listeners", len(listeners))
	for _, fn := range listeners {
		fn(snap)
	}
}

func snapshotOf(p graph.Pipeline) Snapshot {
	snap := Snapshot{
		Steps:   p.Steps(),
		Inputs:  p.Inputs(),
		Outputs: p.ToMap(),
	}
	for _, step := range snap.Steps {
		if err := p.StepError(step.ID); err != nil {
			if snap.Errors == nil {
				snap.Errors = make(map[string]string)
			}
			snap.Errors[step.ID] = err.Error()
		}
	}
	return snap
}
