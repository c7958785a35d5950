package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/clanhub/notifyd/internal/store"
)

const (
	cursorsDirPath       = "notifications/cursors"
	moderationCursorPath = "notifications/moderationCursor"
)

// Cursors tracks per-section "last seen" watermarks plus the single global
// moderation watermark. A cursor suppresses notification generation for
// content the user has already seen; it is distinct from a record's read
// flag, which tracks acknowledgement of an individual notification.
//
// Cursors only advance. A write older than the stored value is ignored,
// so a clock-skewed tab cannot resurrect already-seen content.
type Cursors struct {
	mu     sync.Mutex
	seen   map[string]*int64 // nil entry value is impossible; missing key means not loaded
	mod    *int64
	store  store.Accessor
	logger *zap.Logger
}

// NewCursors creates a tracker persisting through acc. Values load lazily
// per section on first access.
func NewCursors(acc store.Accessor, logger *zap.Logger) *Cursors {
	return &Cursors{
		seen:   make(map[string]*int64),
		store:  acc,
		logger: logger,
	}
}

func cursorPath(section string) string {
	return cursorsDirPath + "/" + store.SanitizeSegment(section)
}

// LastSeen returns the watermark for section, defaulting to 0 (epoch start)
// when none was ever recorded.
func (c *Cursors) LastSeen(ctx context.Context, section string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.loadLocked(ctx, section)
}

// MarkSeen advances the watermark for section to ts. Regressions are
// ignored: the cursor is monotonic.
func (c *Cursors) MarkSeen(ctx context.Context, section string, ts int64) {
	c.mu.Lock()
	cur := c.loadLocked(ctx, section)
	if ts <= *cur {
		c.mu.Unlock()
		return
	}
	*cur = ts
	c.mu.Unlock()

	if err := c.store.Write(ctx, cursorPath(section), ts); err != nil {
		c.logger.Warn("failed to persist section cursor",
			zap.String("section", section), zap.Error(err))
	}
}

// ModerationCheckedAt returns the global moderation watermark, shared across
// all moderation queues.
func (c *Cursors) ModerationCheckedAt(ctx context.Context) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.loadModerationLocked(ctx)
}

// MarkModerationChecked advances the global moderation watermark to ts.
// Monotonic, like section cursors.
func (c *Cursors) MarkModerationChecked(ctx context.Context, ts int64) {
	c.mu.Lock()
	cur := c.loadModerationLocked(ctx)
	if ts <= *cur {
		c.mu.Unlock()
		return
	}
	*cur = ts
	c.mu.Unlock()

	if err := c.store.Write(ctx, moderationCursorPath, ts); err != nil {
		c.logger.Warn("failed to persist moderation cursor", zap.Error(err))
	}
}

// Reset zeroes every cursor, in memory and persisted. Writing an empty map
// over the cursors directory replaces the whole subtree, so even cursors
// never loaded this run are cleared. Diagnostic use, paired with Feed.Reset.
func (c *Cursors) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.seen = make(map[string]*int64)
	c.mod = nil
	c.mu.Unlock()

	var firstErr error
	if err := c.store.Write(ctx, cursorsDirPath, map[string]int64{}); err != nil {
		firstErr = err
	}
	if err := c.store.Write(ctx, moderationCursorPath, 0); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// loadLocked returns the cached watermark for section, reading it from the
// store on first access. A failed read falls back to 0 and is logged; the
// next scan may then re-notify, which is the acceptable direction of error.
func (c *Cursors) loadLocked(ctx context.Context, section string) *int64 {
	if cur, ok := c.seen[section]; ok {
		return cur
	}
	var ts int64
	if _, err := c.store.Read(ctx, cursorPath(section), &ts); err != nil {
		c.logger.Warn("failed to load section cursor",
			zap.String("section", section), zap.Error(err))
		ts = 0
	}
	c.seen[section] = &ts
	return &ts
}

func (c *Cursors) loadModerationLocked(ctx context.Context) *int64 {
	if c.mod != nil {
		return c.mod
	}
	var ts int64
	if _, err := c.store.Read(ctx, moderationCursorPath, &ts); err != nil {
		c.logger.Warn("failed to load moderation cursor", zap.Error(err))
		ts = 0
	}
	c.mod = &ts
	return c.mod
}
