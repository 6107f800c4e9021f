package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/webitel/push-bridge-service/internal/domain/bridge"
	"github.com/webitel/push-bridge-service/internal/domain/model"
)

var _ bridge.DisplayParker = (*DisplayController)(nil)

// Displayer is the host-facing half of foreground display control.
type Displayer interface {
	Display(notificationID string) bool
	PreventDefault(notificationID string) bool
}

// parked resolves its control exactly once, whichever of host decision,
// eviction or expiry comes first.
type parked struct {
	ctl  model.DisplayControl
	once sync.Once
}

func (p *parked) resolve(display bool) (decided bool) {
	p.once.Do(func() {
		decided = true
		if display {
			p.ctl.Display()
		} else {
			p.ctl.PreventDefault()
		}
	})
	return decided
}

// DisplayController parks will-display decisions keyed by notification id.
// [MEMORY_MANAGEMENT] Bounded LRU: an evicted or expired entry is displayed,
// matching what the platform does when nobody intervenes.
type DisplayController struct {
	cache  *expirable.LRU[string, *parked]
	logger *slog.Logger
}

func NewDisplayController(size int, ttl time.Duration, logger *slog.Logger) *DisplayController {
	c := &DisplayController{logger: logger}
	c.cache = expirable.NewLRU[string, *parked](size, c.onEvict, ttl)
	return c
}

func (c *DisplayController) onEvict(id string, p *parked) {
	if p.resolve(true) {
		c.logger.Info("PARKED_DISPLAY_RELEASED", "notification_id", id)
	}
}

// Park implements bridge.DisplayParker.
func (c *DisplayController) Park(notificationID string, ctl model.DisplayControl) {
	if notificationID == "" {
		c.logger.Warn("PARK_WITHOUT_ID", "action", "display")
		ctl.Display()
		return
	}
	if old, ok := c.cache.Peek(notificationID); ok {
		old.resolve(true)
	}
	c.cache.Add(notificationID, &parked{ctl: ctl})
}

// Display shows a parked notification. It reports false when nothing was parked
// under the id or the decision was already made.
func (c *DisplayController) Display(notificationID string) bool {
	return c.decide(notificationID, true)
}

// PreventDefault suppresses a parked notification.
func (c *DisplayController) PreventDefault(notificationID string) bool {
	return c.decide(notificationID, false)
}

func (c *DisplayController) decide(id string, display bool) bool {
	p, ok := c.cache.Peek(id)
	if !ok {
		return false
	}
	decided := p.resolve(display)
	c.cache.Remove(id)
	return decided
}

func (c *DisplayController) Len() int { return c.cache.Len() }

// Purge displays everything still parked.
func (c *DisplayController) Purge() { c.cache.Purge() }
