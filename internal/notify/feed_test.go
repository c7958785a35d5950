package notify_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clanhub/notifyd/internal/notify"
)

func messageRecord(ts int64) notify.Record {
	return notify.Record{
		Kind:      notify.KindNewMessage,
		Title:     "New message from Bob",
		Body:      "hello",
		Timestamp: ts,
		Section:   "chat-generale",
	}
}

func TestFeedAddDeduplicates(t *testing.T) {
	feed, _ := newTestFeed(t, memStore(t))
	ctx := context.Background()

	require.True(t, feed.Add(ctx, messageRecord(1500)))

	// Same (kind, section, timestamp) with a different body is still the
	// same logical event.
	dup := messageRecord(1500)
	dup.Body = "different preview"
	assert.False(t, feed.Add(ctx, dup))
	assert.Len(t, feed.All(), 1)

	// A different timestamp is a new event.
	assert.True(t, feed.Add(ctx, messageRecord(1501)))
	assert.Len(t, feed.All(), 2)
}

func TestFeedCapacityEvictsOldest(t *testing.T) {
	feed, _ := newTestFeed(t, memStore(t))
	ctx := context.Background()

	for i := 1; i <= 60; i++ {
		require.True(t, feed.Add(ctx, messageRecord(int64(i))))
	}

	all := feed.All()
	require.Len(t, all, notify.Capacity)
	assert.Equal(t, int64(60), all[0].Timestamp, "newest insertion at the head")
	assert.Equal(t, int64(11), all[len(all)-1].Timestamp, "oldest ten evicted from the tail")
}

func TestFeedOrderingMostRecentFirst(t *testing.T) {
	feed, _ := newTestFeed(t, memStore(t))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.True(t, feed.Add(ctx, messageRecord(int64(i*100))))
	}

	all := feed.All()
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1].Timestamp, all[i].Timestamp)
	}
}

func TestFeedMarkRead(t *testing.T) {
	feed, _ := newTestFeed(t, memStore(t))
	ctx := context.Background()

	require.True(t, feed.Add(ctx, messageRecord(100)))
	id := feed.All()[0].ID

	assert.Equal(t, 1, feed.UnreadCount())
	assert.True(t, feed.MarkRead(ctx, id))
	assert.Equal(t, 0, feed.UnreadCount())

	// Idempotent: already read and unknown ids are no-ops.
	assert.False(t, feed.MarkRead(ctx, id))
	assert.False(t, feed.MarkRead(ctx, "no-such-id"))
	assert.True(t, feed.All()[0].Read, "marking read never un-reads")
}

func TestFeedMarkAllRead(t *testing.T) {
	feed, _ := newTestFeed(t, memStore(t))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.True(t, feed.Add(ctx, messageRecord(int64(i))))
	}
	require.True(t, feed.MarkRead(ctx, feed.All()[2].ID))

	feed.MarkAllRead(ctx)
	assert.Equal(t, 0, feed.UnreadCount())
	for _, rec := range feed.All() {
		assert.True(t, rec.Read)
	}
}

func TestFeedUnreadCountForSection(t *testing.T) {
	feed, _ := newTestFeed(t, memStore(t))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec := messageRecord(int64(i * 100))
		require.True(t, feed.Add(ctx, rec))
	}
	other := messageRecord(250)
	other.Section = "chat-clan"
	require.True(t, feed.Add(ctx, other))

	assert.Equal(t, 3, feed.UnreadCountForSection("chat-generale", 0))
	assert.Equal(t, 1, feed.UnreadCountForSection("chat-generale", 200))
	assert.Equal(t, 1, feed.UnreadCountForSection("chat-clan", 0))

	// Head of the feed is the last insert, the chat-clan record.
	require.True(t, feed.MarkRead(ctx, feed.All()[0].ID))
	assert.Equal(t, 0, feed.UnreadCountForSection("chat-clan", 0))
}

func TestFeedChangeCallback(t *testing.T) {
	feed, _ := newTestFeed(t, memStore(t))
	ctx := context.Background()

	changes := 0
	feed.OnChange(func() { changes++ })

	require.True(t, feed.Add(ctx, messageRecord(100)))
	assert.Equal(t, 1, changes)

	// A deduplicated add is not a mutation.
	require.False(t, feed.Add(ctx, messageRecord(100)))
	assert.Equal(t, 1, changes)

	feed.MarkRead(ctx, feed.All()[0].ID)
	assert.Equal(t, 2, changes)
}

func TestFeedPopupRecencyGate(t *testing.T) {
	feed, clock := newTestFeed(t, memStore(t))
	ctx := context.Background()

	var popups []notify.Record
	feed.OnPopup(func(rec notify.Record) { popups = append(popups, rec) })

	// Backlog discovered on a cold poll: by the time the event is added,
	// half a minute has passed, so no popup.
	stale := messageRecord(clock.Now().UnixMilli())
	clock.Advance(30 * time.Second)
	require.True(t, feed.Add(ctx, stale))
	assert.Empty(t, popups)

	// Fresh event within the window pops.
	fresh := messageRecord(clock.Now().UnixMilli())
	clock.Advance(5 * time.Second)
	require.True(t, feed.Add(ctx, fresh))
	require.Len(t, popups, 1)
	assert.Equal(t, fresh.Timestamp, popups[0].Timestamp)
}

func TestFeedSurvivesPersistFailure(t *testing.T) {
	feed, _ := newTestFeed(t, brokenWrites{Accessor: memStore(t)})
	ctx := context.Background()

	changes := 0
	feed.OnChange(func() { changes++ })

	// A failed persist does not roll back the in-memory mutation.
	require.True(t, feed.Add(ctx, messageRecord(100)))
	assert.Len(t, feed.All(), 1)
	assert.Equal(t, 1, changes)
}

func TestFeedLoadRoundTrip(t *testing.T) {
	acc := memStore(t)
	ctx := context.Background()

	first, _ := newTestFeed(t, acc)
	require.True(t, first.Add(ctx, messageRecord(100)))
	require.True(t, first.Add(ctx, messageRecord(200)))
	require.True(t, first.MarkRead(ctx, first.All()[0].ID))

	second, _ := newTestFeed(t, acc)
	require.NoError(t, second.Load(ctx))

	assert.Equal(t, first.All(), second.All())
	assert.Equal(t, 1, second.UnreadCount())
}

func TestFeedReset(t *testing.T) {
	acc := memStore(t)
	ctx := context.Background()

	feed, _ := newTestFeed(t, acc)
	for i := 1; i <= 5; i++ {
		require.True(t, feed.Add(ctx, messageRecord(int64(i))))
	}

	require.NoError(t, feed.Reset(ctx))
	assert.Empty(t, feed.All())

	reloaded, _ := newTestFeed(t, acc)
	require.NoError(t, reloaded.Load(ctx))
	assert.Empty(t, reloaded.All(), "reset clears the persisted list too")
}

func TestPreviewTruncation(t *testing.T) {
	long := "Hello world this message is definitely longer than fifty characters for truncation test"
	got := notify.Preview(long)
	assert.Equal(t, fmt.Sprintf("%s…", long[:50]), got)
	assert.Equal(t, 51, len([]rune(got)))

	short := "short message"
	assert.Equal(t, short, notify.Preview(short))

	exactly := "1234567890123456789012345678901234567890123456789-"
	assert.Equal(t, exactly, notify.Preview(exactly))
}
