package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clanhub/notifyd/internal/store"
)

const (
	// Capacity bounds the feed; insertions beyond it evict the oldest tail.
	Capacity = 50

	// popupWindow gates ephemeral popups to recent events, so a backlog
	// discovered on a cold poll does not flood the user.
	popupWindow = 10 * time.Second

	feedPath = "notifications/feed"
)

// Feed is the deduplicating notification store: an ordered, capacity-bounded,
// most-recent-first list of records with read flags. It owns persistence of
// the list and the eviction policy.
//
// A failed persist is logged and does not roll back the in-memory mutation;
// the next successful write repairs the stored copy.
type Feed struct {
	mu      sync.Mutex
	records []Record

	store  store.Accessor
	clock  Clock
	logger *zap.Logger

	onChange []func()
	onPopup  []func(Record)
}

// NewFeed creates an empty feed persisting through acc.
func NewFeed(acc store.Accessor, clock Clock, logger *zap.Logger) *Feed {
	return &Feed{
		store:  acc,
		clock:  clock,
		logger: logger,
	}
}

// OnChange registers a callback fired after every successful mutation.
// Callbacks run outside the feed lock and may call back into the feed.
func (f *Feed) OnChange(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = append(f.onChange, fn)
}

// OnPopup registers a callback fired for inserted records whose event time
// is within the popup window of the wall clock.
func (f *Feed) OnPopup(fn func(Record)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onPopup = append(f.onPopup, fn)
}

// Load replaces the in-memory list with the persisted one. Called once at
// startup; an absent stored list leaves the feed empty.
func (f *Feed) Load(ctx context.Context) error {
	var records []Record
	found, err := f.store.Read(ctx, feedPath, &records)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !found {
		f.records = nil
		return nil
	}
	if len(records) > Capacity {
		records = records[:Capacity]
	}
	f.records = records
	return nil
}

// Add inserts a candidate at the head of the feed unless a record with the
// same (kind, section, timestamp) already exists. Returns whether the
// candidate was inserted. An empty ID is assigned at insertion.
func (f *Feed) Add(ctx context.Context, rec Record) bool {
	now := f.clock.Now()

	f.mu.Lock()
	for _, existing := range f.records {
		if existing.key() == rec.key() {
			f.mu.Unlock()
			return false
		}
	}

	if rec.ID == "" {
		rec.ID = NewID(now)
	}
	f.records = append([]Record{rec}, f.records...)
	if len(f.records) > Capacity {
		f.records = f.records[:Capacity]
	}
	f.mu.Unlock()

	f.persist(ctx)

	fresh := now.UnixMilli()-rec.Timestamp <= popupWindow.Milliseconds()
	f.fireChange()
	if fresh {
		f.firePopup(rec)
	}
	return true
}

// All returns a copy of the feed, most recent first.
func (f *Feed) All() []Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Record, len(f.records))
	copy(out, f.records)
	return out
}

// UnreadCount returns the number of unread records.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.records {
		if !r.Read {
			n++
		}
	}
	return n
}

// UnreadCountForSection counts unread records for one section newer than
// since. It drives per-section badges independently of the global counter.
func (f *Feed) UnreadCountForSection(section string, since int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.records {
		if !r.Read && r.Section == section && r.Timestamp > since {
			n++
		}
	}
	return n
}

// MarkRead marks one record read. Idempotent: already-read or unknown ids
// are no-ops and report false.
func (f *Feed) MarkRead(ctx context.Context, id string) bool {
	f.mu.Lock()
	changed := false
	for i := range f.records {
		if f.records[i].ID == id && !f.records[i].Read {
			f.records[i].Read = true
			changed = true
			break
		}
	}
	f.mu.Unlock()

	if !changed {
		return false
	}
	f.persist(ctx)
	f.fireChange()
	return true
}

// MarkAllRead marks every record read.
func (f *Feed) MarkAllRead(ctx context.Context) {
	f.mu.Lock()
	for i := range f.records {
		f.records[i].Read = true
	}
	f.mu.Unlock()

	f.persist(ctx)
	f.fireChange()
}

// Reset clears the feed and its persisted serialization. Diagnostic use.
func (f *Feed) Reset(ctx context.Context) error {
	f.mu.Lock()
	f.records = nil
	f.mu.Unlock()

	err := f.store.Write(ctx, feedPath, []Record{})
	f.fireChange()
	return err
}

// persist writes the full list. Best-effort: failures are logged and the
// in-memory state is kept authoritative until the next write.
func (f *Feed) persist(ctx context.Context) {
	f.mu.Lock()
	records := make([]Record, len(f.records))
	copy(records, f.records)
	f.mu.Unlock()

	if err := f.store.Write(ctx, feedPath, records); err != nil {
		f.logger.Warn("failed to persist notification feed", zap.Error(err))
	}
}

func (f *Feed) fireChange() {
	f.mu.Lock()
	callbacks := make([]func(), len(f.onChange))
	copy(callbacks, f.onChange)
	f.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

func (f *Feed) firePopup(rec Record) {
	f.mu.Lock()
	callbacks := make([]func(Record), len(f.onPopup))
	copy(callbacks, f.onPopup)
	f.mu.Unlock()
	for _, fn := range callbacks {
		fn(rec)
	}
}
