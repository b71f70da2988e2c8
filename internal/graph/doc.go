// Package graph keeps a declarative workflow and a live dataflow graph
// synchronized.
//
// # Why Graph Package Exists
//
// The workflow stores intent: an ordered list of steps, declared inputs and
// named outputs. The dataflow graph computes. The Manager is the only thing
// allowed to mutate either, so that the graph stays a disposable projection
// of the workflow that can be rebuilt from it at any time.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│              Manager                │
//	│  (step/input/output mutations,      │
//	│   change notification)              │
//	└───┬──────────────┬──────────────┬───┘
//	    │              │              │
//	    ▼              ▼              ▼
//	┌─────────┐  ┌───────────┐  ┌────────────┐
//	│Workflow │  │ Dataflow  │  │  Output    │
//	│ (intent)│  │  Graph    │  │  Store     │
//	└─────────┘  └─────┬─────┘  └────────────┘
//	                   ▼
//	             ┌───────────┐
//	             │ Topology  │
//	             │  Store    │
//	             └───────────┘
//
// # Wiring Rules
//
// A referenced id resolves to a live node first, then to a declared input,
// which is wrapped in a static node holding the registered table. Anything
// else fails with ErrUnknownReference before the graph or workflow changes.
//
// A step with explicit bindings binds each named slot, and the reserved
// "others" list through the variadic slot. A step without explicit bindings
// binds its default slot to the step before it, if there is one and the
// verb takes a table.
//
// Removing an auto-bound step from the middle of a chain rebinds the next
// step to the previous one when the next step is auto-bound too. Other
// gaps are left for the caller to resolve.
//
// # Notifications
//
// OnChange handlers fire after every mutation, after every emission of a
// named output and after every failed step computation. They carry no
// payload; handlers re-read Steps, ToMap or Latest.
//
// # Concurrency
//
// The Manager is owned by one goroutine. Async verbs compute elsewhere and
// land through Settle, or through Completions and Apply in an event loop.
package graph
