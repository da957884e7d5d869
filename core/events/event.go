package events

import "perkledger/core/types"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Payloader is implemented by events that can render themselves as a generic
// attribute-map payload for downstream consumers (RPC stream, audit index).
type Payloader interface {
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Raw wraps a generic attribute-map payload so it satisfies the Event
// interface. Engines that build events as attribute maps emit through this
// wrapper.
type Raw struct {
	Evt *types.Event
}

// EventType implements the Event interface.
func (r Raw) EventType() string {
	if r.Evt == nil {
		return ""
	}
	return r.Evt.Type
}

// Event implements the Payloader interface.
func (r Raw) Event() *types.Event { return r.Evt }
