// Package alert decides when a persistent posture problem becomes an alert.
//
// The notifier is a small state machine with hysteresis: issues must be
// present continuously for a minimum duration before an alert fires, and a
// cooldown enforces a minimum gap between alerts. Alerting is an edge, not a
// state; a slouch that persists straight through a cooldown window re-alerts
// without needing a fresh onset.
package alert

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/posture-data/postureguard/internal/monitoring"
	"github.com/posture-data/postureguard/internal/posture"
	"github.com/posture-data/postureguard/internal/timeutil"
)

// Default timing. BadPostureDuration is how long issues must persist before
// the first alert; Cooldown is the minimum gap between alerts.
const (
	BadPostureDuration = 5 * time.Second
	Cooldown           = 45 * time.Second
)

// Event is one fired alert.
type Event struct {
	Score   int    `json:"score"`
	Message string `json:"message"`
}

// Sink receives fired alerts. Delivery (voice, toast, log line) is the
// sink's concern.
type Sink interface {
	Notify(Event)
}

// FuncSink adapts a function to the Sink interface.
type FuncSink func(Event)

// Notify calls the wrapped function.
func (f FuncSink) Notify(e Event) { f(e) }

// LogSink writes alerts to the package logger.
type LogSink struct{}

// Notify logs the event.
func (LogSink) Notify(e Event) {
	monitoring.Logf("ALERT (score %d): %s", e.Score, e.Message)
}

// CommandSink runs an external command with the alert message appended to
// its arguments, e.g. the macOS `say` binary. The command runs detached; a
// spawn failure is logged, not propagated, since a lost alert must not stop
// monitoring.
type CommandSink struct {
	Name string
	Args []string
}

// Notify spawns the configured command.
func (c CommandSink) Notify(e Event) {
	args := append(append([]string{}, c.Args...), e.Message)
	if err := exec.Command(c.Name, args...).Start(); err != nil {
		monitoring.Logf("alert command %q failed: %v", c.Name, err)
	}
}

// Notifier tracks how long bad posture has persisted and fires alerts with
// hysteresis and cooldown. It is owned by one sampling pipeline and driven
// once per tick.
type Notifier struct {
	clock    timeutil.Clock
	sink     Sink
	badAfter time.Duration
	cooldown time.Duration

	badSince  time.Time // zero while posture is good
	lastAlert time.Time // zero until the first alert
}

// NewNotifier creates a Notifier with the default timing.
func NewNotifier(clock timeutil.Clock, sink Sink) *Notifier {
	return &Notifier{
		clock:    clock,
		sink:     sink,
		badAfter: BadPostureDuration,
		cooldown: Cooldown,
	}
}

// SetTiming overrides the hysteresis duration and cooldown.
func (n *Notifier) SetTiming(badAfter, cooldown time.Duration) {
	n.badAfter = badAfter
	n.cooldown = cooldown
}

// Observe consumes one tick's issues and smoothed score. It returns the
// fired event, or nil. Any tick with no issues cancels the accumulating
// streak outright.
func (n *Notifier) Observe(issues []posture.Issue, score int) *Event {
	if len(issues) == 0 {
		n.badSince = time.Time{}
		return nil
	}

	now := n.clock.Now()
	if n.badSince.IsZero() {
		n.badSince = now
		return nil
	}

	if now.Sub(n.badSince) <= n.badAfter {
		return nil
	}
	if !n.lastAlert.IsZero() && now.Sub(n.lastAlert) <= n.cooldown {
		return nil
	}

	// Firing stamps lastAlert only; badSince keeps running so a problem
	// that outlives the cooldown re-alerts.
	n.lastAlert = now
	first := issues[0]
	e := &Event{
		Score:   score,
		Message: fmt.Sprintf("Hey! %s", first.Advice()),
	}
	if n.sink != nil {
		n.sink.Notify(*e)
	}
	return e
}

// Reset clears both timers. Called when a monitoring session stops.
func (n *Notifier) Reset() {
	n.badSince = time.Time{}
	n.lastAlert = time.Time{}
}
