package bridge

import (
	"sync"
	"time"

	"github.com/webitel/push-bridge-service/internal/domain/event"
)

type job struct {
	ev  event.Eventer
	bnd *binding
	// done is closed after delivery when the emitter waits (PolicySync);
	// ok holds the outcome by then.
	done chan struct{}
	ok   *bool
	// onDrop runs on the dispatcher goroutine when the channel did not take ev.
	onDrop func()
}

type submitResult int

const (
	submitDelivered submitResult = iota // sync: delivered before the deadline
	submitQueued                        // async: accepted by the mailbox
	submitPending                       // sync: accepted, still queued at the deadline
	submitRejected                      // mailbox stayed full until the deadline
	submitClosed
)

// dispatcher is the designated goroutine. Every channel call happens inside loop.
type dispatcher struct {
	// [MAILBOX]
	// Decouples native callback threads from the host channel.
	// A single consumer keeps submission order per event kind.
	mailbox chan job

	deliver func(job) bool

	doneCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newDispatcher(size int, deliver func(job) bool) *dispatcher {
	if size < 1 {
		size = 1
	}
	d := &dispatcher{
		mailbox: make(chan job, size),
		deliver: deliver,
		doneCh:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.doneCh:
			return
		case j := <-d.mailbox:
			ok := d.deliver(j)
			if !ok && j.onDrop != nil {
				j.onDrop()
			}
			if j.done != nil {
				*j.ok = ok
				close(j.done)
			}
		}
	}
}

// submit enqueues j, waiting at most timeout for mailbox space and,
// for sync jobs, for the delivery itself.
func (d *dispatcher) submit(j job, timeout time.Duration) submitResult {
	select {
	case <-d.doneCh:
		return submitClosed
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d.mailbox <- j:
	case <-d.doneCh:
		return submitClosed
	case <-timer.C:
		return submitRejected
	}

	if j.done == nil {
		return submitQueued
	}

	select {
	case <-j.done:
		return submitDelivered
	case <-d.doneCh:
		return submitClosed
	case <-timer.C:
		return submitPending
	}
}

func (d *dispatcher) depth() int { return len(d.mailbox) }

func (d *dispatcher) stop() {
	d.stopOnce.Do(func() {
		close(d.doneCh)
	})
	d.wg.Wait()
}
