package dataflow

import (
	"slices"

	"github.com/vk/wrangler/internal/table"
)

// Stream is a node output. It remembers the last emitted table and replays
// it to new subscribers.
type Stream struct {
	value *table.Table
	has   bool
	subs  []*Subscription
}

// Latest returns the last emitted value. ok is false until the first
// emission.
func (s *Stream) Latest() (*table.Table, bool) {
	return s.value, s.has
}

// Subscribe registers fn for every future emission and, if the stream has
// already emitted, calls it once with the current value before returning.
func (s *Stream) Subscribe(fn func(*table.Table)) *Subscription {
	sub := &Subscription{stream: s, fn: fn}
	s.subs = append(s.subs, sub)
	if s.has {
		fn(s.value)
	}
	return sub
}

func (s *Stream) emit(t *table.Table) {
	s.value, s.has = t, true
	// Handlers may subscribe or unsubscribe while we iterate.
	for _, sub := range slices.Clone(s.subs) {
		if !sub.closed {
			sub.fn(t)
		}
	}
}

func (s *Stream) subscribers() int { return len(s.subs) }

// Subscription is the handle returned by Stream.Subscribe.
type Subscription struct {
	stream *Stream
	fn     func(*table.Table)
	closed bool
}

// Unsubscribe stops delivery. Calling it more than once is harmless.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	s.stream.subs = slices.DeleteFunc(s.stream.subs, func(other *Subscription) bool { return other == s })
}
