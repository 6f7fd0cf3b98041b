package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoReply is returned by WaitForReply when the wait expires before the
// requester posts again.
var ErrNoReply = errors.New("no reply received")

const historyCap = 1024

// ChannelHub is an in-memory Source backed by the gateway's connected
// clients. Incoming frames are recorded as turns; Send fans the content out
// to a registered deliverer (the WebSocket hub, a test stub).
type ChannelHub struct {
	mu      sync.Mutex
	turns   map[string][]Turn // sourceID → observed turns, oldest first
	waiters map[string][]chan Turn
	deliver func(ctx context.Context, sourceID, content string) error
}

// NewChannelHub creates an empty hub. The deliverer may be nil, in which
// case Send only records the assistant turn.
func NewChannelHub(deliver func(ctx context.Context, sourceID, content string) error) *ChannelHub {
	return &ChannelHub{
		turns:   make(map[string][]Turn),
		waiters: make(map[string][]chan Turn),
		deliver: deliver,
	}
}

// Record stores an observed turn and wakes any matching reply waiters. The
// second return reports whether a waiter consumed the turn, meaning it is a
// follow-up reply rather than a fresh request. A missing ID or timestamp is
// filled in.
func (h *ChannelHub) Record(t Turn) (Turn, bool) {
	if t.ID == "" {
		t.ID = "turn_" + uuid.New().String()[:8]
	}
	if t.At.IsZero() {
		t.At = time.Now()
	}

	h.mu.Lock()
	list := append(h.turns[t.SourceID], t)
	if len(list) > historyCap {
		list = list[len(list)-historyCap:]
	}
	h.turns[t.SourceID] = list

	key := t.SourceID + "\x00" + t.AuthorID
	waiting := h.waiters[key]
	delete(h.waiters, key)
	h.mu.Unlock()

	for _, ch := range waiting {
		ch <- t
	}
	return t, len(waiting) > 0
}

// History returns turns on sourceID since the given time, oldest first.
func (h *ChannelHub) History(_ context.Context, sourceID string, since time.Time) ([]Turn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []Turn
	for _, t := range h.turns[sourceID] {
		if t.At.After(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Send records an assistant turn and forwards it to the deliverer.
func (h *ChannelHub) Send(ctx context.Context, sourceID, content string) error {
	h.Record(Turn{
		SourceID: sourceID,
		Role:     RoleAssistant,
		Content:  content,
	})
	if h.deliver == nil {
		return nil
	}
	return h.deliver(ctx, sourceID, content)
}

// WaitForReply blocks until requesterID posts another user turn on sourceID
// or ctx expires.
func (h *ChannelHub) WaitForReply(ctx context.Context, sourceID, requesterID string) (Turn, error) {
	ch := make(chan Turn, 1)
	key := sourceID + "\x00" + requesterID

	h.mu.Lock()
	h.waiters[key] = append(h.waiters[key], ch)
	h.mu.Unlock()

	select {
	case t := <-ch:
		return t, nil
	case <-ctx.Done():
		h.mu.Lock()
		remaining := h.waiters[key][:0]
		for _, w := range h.waiters[key] {
			if w != ch {
				remaining = append(remaining, w)
			}
		}
		if len(remaining) == 0 {
			delete(h.waiters, key)
		} else {
			h.waiters[key] = remaining
		}
		h.mu.Unlock()
		return Turn{}, ErrNoReply
	}
}

var (
	_ Source      = (*ChannelHub)(nil)
	_ ReplyWaiter = (*ChannelHub)(nil)
)
