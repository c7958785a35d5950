// Package notify implements the notification synchronization engine: a
// polling loop that discovers new chat messages and pending moderation
// threads across forum sections, deduplicates them into a bounded feed, and
// tracks per-section "last seen" cursors.
//
// The engine is pure data plus callbacks. It never touches a rendering
// surface; the HTTP/WebSocket adapter under internal/api subscribes to its
// change events.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/clanhub/notifyd/internal/session"
	"github.com/clanhub/notifyd/internal/store"
)

// Engine bundles the feed, cursor tracker, scanner and poller over one
// storage backend and one session source.
type Engine struct {
	Feed    *Feed
	Cursors *Cursors
	Scanner *Scanner
	Poller  *Poller
}

// NewEngine wires the engine against the given backend. The backend choice
// (networked or local) is made exactly once, here; no component ever
// branches on backend identity.
func NewEngine(acc store.Accessor, sessions session.Provider, cfg PollerConfig, clock Clock, logger *zap.Logger) *Engine {
	feed := NewFeed(acc, clock, logger)
	cursors := NewCursors(acc, logger)
	scanner := NewScanner(acc, cursors, feed, clock, logger)
	poller := NewPoller(scanner, sessions, cfg, clock, logger)

	return &Engine{
		Feed:    feed,
		Cursors: cursors,
		Scanner: scanner,
		Poller:  poller,
	}
}

// Reset clears the feed, its persisted serialization, every section cursor
// and the moderation cursor. Diagnostic recovery, not normal operation.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.Feed.Reset(ctx); err != nil {
		return err
	}
	return e.Cursors.Reset(ctx)
}
