package event

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// [GUARD] Ensure compliance with the Eventer interface.
var _ Eventer = (*Event)(nil)

// Event is the envelope built fresh for every emission.
type Event struct {
	id         string
	name       Name
	priority   Priority
	occurredAt int64
	payload    Payload

	// [WIRE_CACHE]
	// Transport-specific serialized forms, keyed by transport, so that N sessions
	// sharing one event marshal it once.
	cached sync.Map
}

// New wraps payload into an envelope. The name always comes from the payload.
func New(p Payload) *Event {
	name := p.EventName()
	return &Event{
		id:         ulid.Make().String(),
		name:       name,
		priority:   PriorityOf(name),
		occurredAt: time.Now().UnixMilli(),
		payload:    p,
	}
}

func (e *Event) GetID() string         { return e.id }
func (e *Event) GetName() Name         { return e.name }
func (e *Event) GetPriority() Priority { return e.priority }
func (e *Event) GetOccurredAt() int64  { return e.occurredAt }
func (e *Event) GetPayload() Payload   { return e.payload }

func (e *Event) GetCached(key string) any {
	v, _ := e.cached.Load(key)
	return v
}

func (e *Event) SetCached(key string, v any) { e.cached.Store(key, v) }
