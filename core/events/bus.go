package events

import (
	"sync"

	"perkledger/core/types"
)

// Sequenced couples an emitted event payload with its position in the
// ledger's event history. Sequence numbers start at 1 and never repeat.
type Sequenced struct {
	Seq uint64       `json:"seq"`
	Evt *types.Event `json:"event"`
}

// Bus is an in-process emitter that fans events out to subscribers and keeps
// a bounded backlog so late joiners can resume from a cursor.
type Bus struct {
	mu         sync.Mutex
	seq        uint64
	backlog    []Sequenced
	maxBacklog int
	subs       map[int]chan Sequenced
	nextSubID  int
}

// NewBus creates a bus retaining up to maxBacklog events for cursor replay.
func NewBus(maxBacklog int) *Bus {
	if maxBacklog <= 0 {
		maxBacklog = 1024
	}
	return &Bus{
		maxBacklog: maxBacklog,
		subs:       make(map[int]chan Sequenced),
	}
}

// Emit implements the Emitter interface. Events without a payload are
// dropped; slow subscribers miss events rather than blocking the ledger.
func (b *Bus) Emit(evt Event) {
	payloader, ok := evt.(Payloader)
	if !ok {
		return
	}
	payload := payloader.Event()
	if payload == nil {
		return
	}
	b.mu.Lock()
	b.seq++
	entry := Sequenced{Seq: b.seq, Evt: payload}
	b.backlog = append(b.backlog, entry)
	if len(b.backlog) > b.maxBacklog {
		b.backlog = b.backlog[len(b.backlog)-b.maxBacklog:]
	}
	for _, ch := range b.subs {
		select {
		case ch <- entry:
		default:
		}
	}
	b.mu.Unlock()
}

// Subscribe registers a new subscriber and returns its channel along with a
// cancel function. The channel is closed on cancel.
func (b *Bus) Subscribe(buffer int) (<-chan Sequenced, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Sequenced, buffer)
	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Backlog returns the retained events with a sequence strictly greater than
// the provided cursor, oldest first.
func (b *Bus) Backlog(afterSeq uint64) []Sequenced {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Sequenced, 0, len(b.backlog))
	for _, entry := range b.backlog {
		if entry.Seq > afterSeq {
			out = append(out, entry)
		}
	}
	return out
}

var _ Emitter = (*Bus)(nil)
