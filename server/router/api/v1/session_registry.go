package v1

import (
	"sync"
	"time"

	"github.com/vedyxlabs/vedyx/chat"
	"github.com/vedyxlabs/vedyx/internal/util"
)

// DefaultSessionTTL is how long an idle session is kept before the sweeper
// reclaims it.
const DefaultSessionTTL = 2 * time.Hour

type sessionEntry struct {
	controller *chat.Controller
	lastActive time.Time
}

// SessionRegistry holds live in-memory conversation sessions keyed by an
// opaque session ID. Guest transcripts exist only here; authenticated
// sessions additionally persist through their controller's store.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	onCount  func(int)
	done     chan struct{}
	stopOnce sync.Once
}

// NewSessionRegistry creates a registry whose sweeper reclaims sessions idle
// longer than ttl. onCount, when non-nil, observes the live session count
// after every change.
func NewSessionRegistry(ttl time.Duration, onCount func(int)) *SessionRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	r := &SessionRegistry{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		onCount:  onCount,
		done:     make(chan struct{}),
	}
	go r.sweep()
	return r
}

// Add registers a controller and returns its session ID.
func (r *SessionRegistry) Add(controller *chat.Controller) string {
	id := util.GenUUID()
	r.mu.Lock()
	r.sessions[id] = &sessionEntry{controller: controller, lastActive: time.Now()}
	n := len(r.sessions)
	r.mu.Unlock()
	r.notify(n)
	return id
}

// Get returns the controller for a session ID, refreshing its idle timer.
func (r *SessionRegistry) Get(id string) (*chat.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastActive = time.Now()
	return entry.controller, true
}

// Remove drops a session.
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	r.notify(n)
}

// Len returns the live session count.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Stop terminates the sweeper.
func (r *SessionRegistry) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

func (r *SessionRegistry) sweep() {
	ticker := time.NewTicker(r.ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.ttl)
			r.mu.Lock()
			for id, entry := range r.sessions {
				if entry.lastActive.Before(cutoff) {
					delete(r.sessions, id)
				}
			}
			n := len(r.sessions)
			r.mu.Unlock()
			r.notify(n)
		}
	}
}

func (r *SessionRegistry) notify(n int) {
	if r.onCount != nil {
		r.onCount(n)
	}
}
