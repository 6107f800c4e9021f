package bridge

import (
	"time"

	"github.com/webitel/push-bridge-service/internal/domain/event"
)

// DropReason labels why an event never reached the channel.
type DropReason string

const (
	ReasonDetached    DropReason = "detached"
	ReasonRebound     DropReason = "rebound"
	ReasonMailboxFull DropReason = "mailbox_full"
	ReasonClosed      DropReason = "closed"
	ReasonInvalid     DropReason = "invalid"
	ReasonUnobserved  DropReason = "unobserved"
)

// Recorder receives bridge metrics. Implementations must be safe for concurrent use.
type Recorder interface {
	Emitted(name event.Name)
	Delivered(name event.Name, took time.Duration)
	Dropped(name event.Name, reason DropReason)
	Degraded(name event.Name)
	SendFailed(name event.Name)
	Listeners(name event.Name, n int)
	Attached(attached bool)
}

type nopRecorder struct{}

func (nopRecorder) Emitted(event.Name)                  {}
func (nopRecorder) Delivered(event.Name, time.Duration) {}
func (nopRecorder) Dropped(event.Name, DropReason)      {}
func (nopRecorder) Degraded(event.Name)                 {}
func (nopRecorder) SendFailed(event.Name)               {}
func (nopRecorder) Listeners(event.Name, int)           {}
func (nopRecorder) Attached(bool)                       {}
