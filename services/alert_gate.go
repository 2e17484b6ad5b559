package services

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultAlertCooldown is the minimum spacing between two admitted alerts.
const DefaultAlertCooldown = 20 * time.Second

// AlertGate rate-limits alert dispatch for one monitoring session. The
// cooldown bucket is global to the session, not keyed by event type: a fire
// event inside the window of an admitted person event is suppressed the same
// as a repeat. Known limitation, kept on purpose.
type AlertGate struct {
	mu           sync.Mutex
	cooldown     time.Duration
	lastAdmitted time.Time
	prevAdmitted time.Time
}

func NewAlertGate(cooldown time.Duration) *AlertGate {
	return &AlertGate{cooldown: cooldown}
}

// Admit decides whether the event set may produce an alert at time now.
// On admission it returns the composite message (labels joined with " | ",
// order-independent) and advances the cooldown window.
func (g *AlertGate) Admit(events []string, now time.Time) (string, bool) {
	if len(events) == 0 {
		return "", false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastAdmitted.IsZero() && now.Sub(g.lastAdmitted) < g.cooldown {
		return "", false
	}

	sorted := make([]string, len(events))
	copy(sorted, events)
	sort.Strings(sorted)

	g.prevAdmitted = g.lastAdmitted
	g.lastAdmitted = now
	return strings.Join(sorted, " | "), true
}

// Rollback undoes an admission whose side effects failed (e.g. the snapshot
// could not be written), restoring the window that was open before it. A
// no-op if another admission has happened since.
func (g *AlertGate) Rollback(admitted time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastAdmitted.Equal(admitted) {
		g.lastAdmitted = g.prevAdmitted
	}
}
