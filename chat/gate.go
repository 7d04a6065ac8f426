// Package chat implements the conversation core: the guest usage gate and
// the session controller that owns one conversation's transcript end-to-end.
package chat

import (
	"sync"

	"github.com/pkg/errors"
)

// GateState is the escalation tier of an anonymous session.
type GateState string

const (
	// GateOpen means the visitor may send freely.
	GateOpen GateState = "OPEN"
	// GateSoftPrompted means the signup nudge has fired; sending is still allowed.
	GateSoftPrompted GateState = "SOFT_PROMPTED"
	// GateHardBlocked means no further guest messages are accepted. Terminal
	// for the session; only sign-in (which retires the gate) escapes it.
	GateHardBlocked GateState = "HARD_BLOCKED"
)

// GateEvent is the escalation signal raised by a RecordMessage call.
type GateEvent string

const (
	GateEventNone GateEvent = ""
	// GateEventSoftPrompt fires exactly once, when the count first reaches
	// the soft limit: show the dismissible signup nudge.
	GateEventSoftPrompt GateEvent = "SOFT_PROMPT"
	// GateEventHardBlock fires when the count reaches the hard limit: show
	// the hard block and open the signup modal in signup mode.
	GateEventHardBlock GateEvent = "HARD_BLOCK"
)

// NudgeText is the signup prompt shown when the gate soft-prompts.
const NudgeText = "Vedyx learns with you! Sign up for unlimited access."

// ErrGateClosed is returned when a guest message is recorded or attempted
// while the gate is hard-blocked.
var ErrGateClosed = errors.New("guest message limit reached")

// Gate tracks how many messages an anonymous visitor has sent in the current
// session and decides whether another one is permitted. The count is
// monotonic: it only resets with the whole gate, on page restart or sign-in.
//
// Gate must be consulted before every guest send and never bypassed;
// RecordMessage must be called at most once per completed guest exchange,
// after the exchange, so the counter reflects messages actually sent.
type Gate struct {
	mu        sync.Mutex
	softLimit int
	hardLimit int
	count     int
	dismissed bool
}

// NewGate creates a gate with the given thresholds. Zero or inverted values
// fall back to the 3/5 defaults.
func NewGate(softLimit, hardLimit int) *Gate {
	if softLimit <= 0 {
		softLimit = 3
	}
	if hardLimit <= softLimit {
		hardLimit = softLimit + 2
	}
	return &Gate{softLimit: softLimit, hardLimit: hardLimit}
}

// CanSend reports whether another guest message is permitted. False iff the
// gate is hard-blocked.
func (g *Gate) CanSend() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count < g.hardLimit
}

// RecordMessage counts one completed guest exchange and returns the
// escalation event the new count triggers, if any. It fails with
// ErrGateClosed when called in the hard-blocked state; the count is not
// mutated in that case.
func (g *Gate) RecordMessage() (GateEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.count >= g.hardLimit {
		return GateEventNone, ErrGateClosed
	}

	g.count++
	switch {
	case g.count == g.hardLimit:
		return GateEventHardBlock, nil
	case g.count == g.softLimit:
		return GateEventSoftPrompt, nil
	default:
		return GateEventNone, nil
	}
}

// Dismiss hides the signup nudge. The state tier and count are unchanged, so
// the nudge does not re-fire.
func (g *Gate) Dismiss() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dismissed = true
}

// State returns the current escalation tier.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

func (g *Gate) stateLocked() GateState {
	switch {
	case g.count >= g.hardLimit:
		return GateHardBlocked
	case g.count >= g.softLimit:
		return GateSoftPrompted
	default:
		return GateOpen
	}
}

// Count returns the number of recorded guest exchanges.
func (g *Gate) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// PromptVisible reports whether the signup nudge should currently be shown:
// the session is soft-prompted (not yet hard-blocked) and the nudge has not
// been dismissed.
func (g *Gate) PromptVisible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked() == GateSoftPrompted && !g.dismissed
}

// Status is a point-in-time snapshot of the gate for API responses.
type Status struct {
	State         GateState `json:"state"`
	Count         int       `json:"count"`
	PromptVisible bool      `json:"promptVisible"`
}

// Snapshot returns the gate's current status.
func (g *Gate) Snapshot() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	state := g.stateLocked()
	return Status{
		State:         state,
		Count:         g.count,
		PromptVisible: state == GateSoftPrompted && !g.dismissed,
	}
}
