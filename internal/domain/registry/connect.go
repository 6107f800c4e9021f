package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
)

// Interface guard
var _ Connector = (*connect)(nil)

// [CONNECTOR] THE INTERFACE FOR EXTERNAL LAYERS (FANOUT/TRANSPORTS)
// One Connector per host session: a WebSocket, a gRPC stream or the pub/sub sink.
type Connector interface {
	GetID() uuid.UUID
	GetMetadata() model.SessionMetadata
	Send(ev event.Eventer, timeout time.Duration) bool // Thread-safe send with backpressure handling
	Recv() <-chan event.Eventer
	Done() <-chan struct{}
	Dropped() uint64
	Close() // Terminate the session and release resources
}

// [CONNECT] CONCRETE IMPLEMENTATION (UNEXPORTED TO FORCE INTERFACE USAGE)
type connect struct {
	id        uuid.UUID
	metadata  model.SessionMetadata
	createdAt time.Time
	ctx       context.Context
	cancelFn  context.CancelFunc

	// [BUFFER]
	// queue plus the one event the pump is handing to the transport never
	// exceed size. Only queued events are eligible for eviction.
	mu       sync.Mutex
	queue    []event.Eventer
	inflight int
	size     int

	notify chan struct{} // queue got an event
	space  chan struct{} // a slot was freed
	out    chan event.Eventer

	closeOnce sync.Once     // [PROTECTION]
	dropped   atomic.Uint64 // [ATOMIC_FIELD]
}

func NewConnector(ctx context.Context, meta model.SessionMetadata, bufferSize int) Connector {
	if bufferSize < 1 {
		bufferSize = 1
	}
	childCtx, cancel := context.WithCancel(ctx)
	c := &connect{
		id:        uuid.New(),
		metadata:  meta,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		queue:     make([]event.Eventer, 0, bufferSize),
		size:      bufferSize,
		notify:    make(chan struct{}, 1),
		space:     make(chan struct{}, 1),
		out:       make(chan event.Eventer),
	}
	go c.pump()
	return c
}

func (c *connect) GetID() uuid.UUID                   { return c.id }
func (c *connect) GetMetadata() model.SessionMetadata { return c.metadata }
func (c *connect) Recv() <-chan event.Eventer         { return c.out }
func (c *connect) Done() <-chan struct{}              { return c.ctx.Done() }
func (c *connect) Dropped() uint64                    { return c.dropped.Load() }

// Send attempts to push an event into the session buffer.
// If the buffer stays full for timeout, a queued event of lower priority is evicted to make room.
func (c *connect) Send(ev event.Eventer, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		// 1. [LIFECYCLE_GATE] Abort if the transport is already gone.
		if c.ctx.Err() != nil {
			return false
		}

		// 2. [PRIMARY_DELIVERY] Take a free slot if there is one.
		if c.tryEnqueue(ev) {
			return true
		}

		select {
		case <-c.ctx.Done():
			return false
		case <-c.space:
			// Wait up to timeout for space, smoothing out transient jitter.
		case <-timer.C:
			// 3. [BACKPRESSURE_THRESHOLD] Persistent slow consumer.
			return c.handleBackpressure(ev)
		}
	}
}

func (c *connect) tryEnqueue(ev event.Eventer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue)+c.inflight >= c.size {
		return false
	}
	c.queue = append(c.queue, ev)
	signal(c.notify)
	return true
}

// handleBackpressure sheds low-priority events first. A queued event is only
// removed when it is outranked by ev, so events of one kind keep their order.
func (c *connect) handleBackpressure(ev event.Eventer) bool {
	if ev.GetPriority() <= event.PriorityLow {
		c.dropped.Add(1)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The consumer may have drained the buffer meanwhile.
	if len(c.queue)+c.inflight < c.size {
		c.queue = append(c.queue, ev)
		signal(c.notify)
		return true
	}

	victim := -1
	for i, queued := range c.queue {
		p := queued.GetPriority()
		if p >= ev.GetPriority() {
			continue
		}
		if victim < 0 || p < c.queue[victim].GetPriority() {
			victim = i
		}
	}

	c.dropped.Add(1)
	if victim < 0 {
		return false
	}
	c.queue = append(c.queue[:victim], c.queue[victim+1:]...)
	c.queue = append(c.queue, ev)
	signal(c.notify)
	return true
}

// pump hands queued events to Recv in FIFO order.
func (c *connect) pump() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			select {
			case <-c.notify:
				continue
			case <-c.ctx.Done():
				return
			}
		}
		ev := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.inflight = 1
		c.mu.Unlock()

		select {
		case c.out <- ev:
		case <-c.ctx.Done():
			return
		}

		c.mu.Lock()
		c.inflight = 0
		c.mu.Unlock()
		signal(c.space)
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Close cancels the session. The output channel is never closed: a concurrent
// Send must not panic, so consumers stop on Done instead.
func (c *connect) Close() {
	c.closeOnce.Do(func() {
		c.cancelFn()
	})
}
