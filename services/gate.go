// ABOUTME: Request spacing gate for remote session requests
// ABOUTME: Enforces a minimum interval between requests and an optional not-before time

package services

import (
	"time"

	"github.com/markalston/steam-hour-farmer/clock"
)

// Gate decides whether a remote request may be issued now. It keeps the
// time of the last issued request and a not-before deadline; a request
// is allowed once both have been cleared. Gate is not safe for
// concurrent use; the controller only touches it from its event loop.
type Gate struct {
	clock     clock.Clock
	interval  time.Duration
	last      time.Time // zero until the first Mark
	notBefore time.Time
}

// NewGate creates a gate that allows one request per interval.
func NewGate(c clock.Clock, interval time.Duration) *Gate {
	return &Gate{clock: c, interval: interval}
}

// Allow reports whether a request may be issued now. When it may not,
// the returned duration is how long until it may.
func (g *Gate) Allow() (bool, time.Duration) {
	now := g.clock.Now()

	var wait time.Duration
	if !g.last.IsZero() {
		// Use Before so the boundary instant is allowed: at least
		// interval has elapsed at last+interval.
		if next := g.last.Add(g.interval); now.Before(next) {
			wait = next.Sub(now)
		}
	}
	if now.Before(g.notBefore) {
		if w := g.notBefore.Sub(now); w > wait {
			wait = w
		}
	}

	return wait == 0, wait
}

// Mark records that a request was issued now.
func (g *Gate) Mark() {
	g.last = g.clock.Now()
}

// DeferFor blocks requests until d from now.
func (g *Gate) DeferFor(d time.Duration) time.Time {
	g.notBefore = g.clock.Now().Add(d)
	return g.notBefore
}
