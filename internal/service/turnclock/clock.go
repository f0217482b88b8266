// Package turnclock expires turns that take too long. It sits outside the
// room coordinator and plays through the coordinator's public entry point.
package turnclock

import (
	"context"
	"sync"
	"time"

	"chkobba-service/pkg/logger"

	"go.uber.org/zap"
)

// Player performs the fallback move for an expired turn.
type Player interface {
	AutoPlay(ctx context.Context, code string, turn int64) error
}

type Clock struct {
	player Player

	mu      sync.Mutex
	timers  map[string]armed
	stopped bool
}

type armed struct {
	timer *time.Timer
	turn  int64
}

func New(player Player) *Clock {
	return &Clock{player: player, timers: make(map[string]armed)}
}

// TurnStarted arms the timer of a room, replacing any pending one. A
// non-positive timeout only cancels.
func (c *Clock) TurnStarted(code string, turn int64, seat int, timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked(code)
	if timeout <= 0 || c.stopped {
		return
	}
	t := time.AfterFunc(timeout, func() {
		c.fire(code, turn, seat)
	})
	c.timers[code] = armed{timer: t, turn: turn}
}

func (c *Clock) TurnsStopped(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(code)
}

// Stop cancels every timer and refuses new ones.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	for code := range c.timers {
		c.cancelLocked(code)
	}
}

// Pending reports how many rooms have an armed timer.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Clock) fire(code string, turn int64, seat int) {
	c.mu.Lock()
	if a, ok := c.timers[code]; ok && a.turn == turn {
		delete(c.timers, code)
	}
	c.mu.Unlock()

	if err := c.player.AutoPlay(context.Background(), code, turn); err != nil {
		logger.Log.Warn("auto play failed",
			zap.String("room", code),
			zap.Int64("turn", turn),
			zap.Int("seat", seat),
			zap.Error(err),
		)
	}
}

func (c *Clock) cancelLocked(code string) {
	if a, ok := c.timers[code]; ok {
		a.timer.Stop()
		delete(c.timers, code)
	}
}
