package sessions

import (
	"sync"
	"time"
)

// Registry holds the rolling history window of every live conversation.
// Windows are bounded: appends past the limit evict the oldest entry, and a
// session idle past the timeout is reset before its next use. History is a
// working buffer for prompts, not an archive; durable knowledge lives in the
// memory index.
type Registry struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	historyLimit int
	idleTimeout  time.Duration
	now          func() time.Time
}

// NewRegistry creates a Registry. historyLimit caps entries per session
// (default 10); idleTimeout is the silence span after which a session resets
// (default 5m).
func NewRegistry(historyLimit int, idleTimeout time.Duration) *Registry {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	return &Registry{
		sessions:     make(map[string]*Session),
		historyLimit: historyLimit,
		idleTimeout:  idleTimeout,
		now:          time.Now,
	}
}

// session returns the live session for id, resetting it if stale. Callers
// hold r.mu.
func (r *Registry) session(id string) *Session {
	s, ok := r.sessions[id]
	if !ok {
		s = &Session{ID: id}
		r.sessions[id] = s
	}
	if len(s.Messages) > 0 && r.now().Sub(s.UpdatedAt) >= r.idleTimeout {
		s.Messages = nil
	}
	return s
}

// Append records a message in the conversation's window, evicting the oldest
// entry when the window is full.
func (r *Registry) Append(conversationID string, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session(conversationID)
	if msg.Ts.IsZero() {
		msg.Ts = r.now()
	}
	s.Messages = append(s.Messages, msg)
	if over := len(s.Messages) - r.historyLimit; over > 0 {
		s.Messages = append([]Message(nil), s.Messages[over:]...)
	}
	s.UpdatedAt = r.now()
}

// History returns a copy of the conversation's current window, oldest first.
// A stale session reads as empty.
func (r *Registry) History(conversationID string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session(conversationID)
	out := make([]Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// StateOf reports the lifecycle state of a conversation without mutating it.
func (r *Registry) StateOf(conversationID string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[conversationID]
	if !ok || len(s.Messages) == 0 {
		return StateFresh
	}
	if r.now().Sub(s.UpdatedAt) >= r.idleTimeout {
		return StateStale
	}
	return StateActive
}

// Clear discards the conversation's window.
func (r *Registry) Clear(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, conversationID)
}

// Conversations lists the ids of sessions currently holding history.
func (r *Registry) Conversations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id, s := range r.sessions {
		if len(s.Messages) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
