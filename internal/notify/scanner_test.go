package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clanhub/notifyd/internal/notify"
	"github.com/clanhub/notifyd/internal/store"
	"github.com/clanhub/notifyd/internal/testutil"
)

type scannerFixture struct {
	feed    *notify.Feed
	cursors *notify.Cursors
	scanner *notify.Scanner
	clock   *testutil.ManualClock
}

func newScannerFixture(t *testing.T, acc store.Accessor) *scannerFixture {
	t.Helper()
	logger := zap.NewNop()
	clock := testutil.NewManualClock(baseTime())
	feed := notify.NewFeed(acc, clock, logger)
	cursors := notify.NewCursors(acc, logger)
	return &scannerFixture{
		feed:    feed,
		cursors: cursors,
		scanner: notify.NewScanner(acc, cursors, feed, clock, logger),
		clock:   clock,
	}
}

const longMessage = "Hello world this message is definitely longer than fifty characters for truncation test"

func TestScanChatProducesNotification(t *testing.T) {
	acc := memStore(t)
	fx := newScannerFixture(t, acc)
	ctx := context.Background()

	fx.cursors.MarkSeen(ctx, "chat-generale", 1000)
	seed(t, acc, "messages/chat-generale/m1", chatMessage(1500, "u2", "Bob", longMessage))

	fx.scanner.ScanChat(ctx, memberSession(), "chat-generale", false)

	all := fx.feed.All()
	require.Len(t, all, 1)
	rec := all[0]
	assert.Equal(t, notify.KindNewMessage, rec.Kind)
	assert.Equal(t, "chat-generale", rec.Section)
	assert.Equal(t, int64(1500), rec.Timestamp)
	assert.Equal(t, "New message from Bob", rec.Title)
	assert.Equal(t, longMessage[:50]+"…", rec.Body)
	assert.False(t, rec.Read)
}

func TestScanChatIgnoresOwnMessages(t *testing.T) {
	acc := memStore(t)
	fx := newScannerFixture(t, acc)
	ctx := context.Background()

	fx.cursors.MarkSeen(ctx, "chat-generale", 1000)
	seed(t, acc, "messages/chat-generale/m1", chatMessage(1500, "u1", "Alice", "talking to myself"))

	fx.scanner.ScanChat(ctx, memberSession(), "chat-generale", false)

	assert.Empty(t, fx.feed.All())
}

func TestScanChatIgnoresSeenMessages(t *testing.T) {
	acc := memStore(t)
	fx := newScannerFixture(t, acc)
	ctx := context.Background()

	fx.cursors.MarkSeen(ctx, "chat-generale", 1500)
	seed(t, acc, "messages/chat-generale/m1", chatMessage(1500, "u2", "Bob", "at the cursor"))
	seed(t, acc, "messages/chat-generale/m2", chatMessage(1200, "u3", "Carl", "behind the cursor"))

	fx.scanner.ScanChat(ctx, memberSession(), "chat-generale", false)

	assert.Empty(t, fx.feed.All(), "only strictly newer messages notify")
}

func TestScanChatDoesNotAdvanceCursor(t *testing.T) {
	acc := memStore(t)
	fx := newScannerFixture(t, acc)
	ctx := context.Background()

	fx.cursors.MarkSeen(ctx, "chat-generale", 1000)
	seed(t, acc, "messages/chat-generale/m1", chatMessage(1500, "u2", "Bob", "hi"))

	fx.scanner.ScanChat(ctx, memberSession(), "chat-generale", false)

	// Scanning is read-only; only navigation marks a section seen.
	assert.Equal(t, int64(1000), fx.cursors.LastSeen(ctx, "chat-generale"))
}

func TestScanChatClanlessSkipsClanSection(t *testing.T) {
	acc := memStore(t)
	fx := newScannerFixture(t, acc)
	ctx := context.Background()

	fx.scanner.ScanChat(ctx, memberSession(), "chat-clan", true)

	assert.Empty(t, fx.feed.All())
}

func TestScanChatClanScopedPath(t *testing.T) {
	acc := memStore(t)
	fx := newScannerFixture(t, acc)
	ctx := context.Background()

	seed(t, acc, "messages/clan/I Guerrieri/chat-clan/m1", chatMessage(500, "u2", "Bob", "clan talk"))

	fx.scanner.ScanChat(ctx, clanSession(), "chat-clan", true)

	all := fx.feed.All()
	require.Len(t, all, 1)
	assert.Equal(t, "chat-clan", all[0].Section)
}

func TestScanChatSkipsMalformedEntries(t *testing.T) {
	acc := memStore(t)
	fx := newScannerFixture(t, acc)
	ctx := context.Background()

	seed(t, acc, "messages/chat-generale/m1", map[string]any{"authorId": "u2", "message": "no timestamp"})
	seed(t, acc, "messages/chat-generale/m2", map[string]any{"timestamp": 500, "message": "no author"})
	seed(t, acc, "messages/chat-generale/m3", chatMessage(550, "u2", "Bob", ""))
	seed(t, acc, "messages/chat-generale/m4", chatMessage(600, "u2", "Bob", "fine"))

	fx.scanner.ScanChat(ctx, memberSession(), "chat-generale", false)

	require.Len(t, fx.feed.All(), 1)
	assert.Equal(t, int64(600), fx.feed.All()[0].Timestamp)
}

func TestScanChatFailureDoesNotAffectOtherSections(t *testing.T) {
	acc := memStore(t)
	broken := brokenPath{Accessor: acc, path: "messages/chat-generale"}
	fx := newScannerFixture(t, broken)
	ctx := context.Background()

	seed(t, acc, "messages/clan/I Guerrieri/chat-clan/m1", chatMessage(500, "u2", "Bob", "still works"))

	sess := clanSession()
	fx.scanner.ScanChat(ctx, sess, "chat-generale", false)
	fx.scanner.ScanChat(ctx, sess, "chat-clan", true)

	require.Len(t, fx.feed.All(), 1)
	assert.Equal(t, "chat-clan", fx.feed.All()[0].Section)
}

func TestScanModerationPendingThread(t *testing.T) {
	acc := memStore(t)
	fx := newScannerFixture(t, acc)
	ctx := context.Background()

	seed(t, acc, "threads/clan/I Guerrieri/proposte/t1", pendingThread(500, "u2", "New tournament", "pending"))
	seed(t, acc, "threads/clan/I Guerrieri/proposte/t2", pendingThread(600, "u3", "Approved already", "approved"))

	fx.scanner.ScanModeration(ctx, moderatorSession(), []string{"proposte"})

	all := fx.feed.All()
	require.Len(t, all, 1)
	rec := all[0]
	assert.Equal(t, notify.KindPendingModeration, rec.Kind)
	assert.Equal(t, "proposte", rec.Section)
	assert.Equal(t, int64(500), rec.Timestamp)
	assert.Equal(t, "New tournament", rec.Body)
	assert.Equal(t, "t1", rec.Extra["threadId"])
	assert.Equal(t, "proposte", rec.Extra["subsection"])

	// Finding new pending threads advances the shared gate to "now".
	assert.Equal(t, baseMillis, fx.cursors.ModerationCheckedAt(ctx))
}

func TestScanModerationDedupAcrossPasses(t *testing.T) {
	acc := memStore(t)
	fx := newScannerFixture(t, acc)
	ctx := context.Background()

	// A thread submitted just after the scanner's wall clock: the first
	// pass advances the gate to "now", which is still older than the
	// thread, so the second pass sees the same candidate again and dedup
	// must absorb it.
	seed(t, acc, "threads/clan/I Guerrieri/proposte/t1",
		pendingThread(baseMillis+5000, "u2", "Racing the poller", "pending"))

	fx.scanner.ScanModeration(ctx, moderatorSession(), []string{"proposte"})
	fx.scanner.ScanModeration(ctx, moderatorSession(), []string{"proposte"})

	assert.Len(t, fx.feed.All(), 1)
}

func TestScanModerationRespectsGate(t *testing.T) {
	acc := memStore(t)
	fx := newScannerFixture(t, acc)
	ctx := context.Background()

	fx.cursors.MarkModerationChecked(ctx, 1000)
	seed(t, acc, "threads/clan/I Guerrieri/proposte/t1", pendingThread(900, "u2", "Old news", "pending"))

	fx.scanner.ScanModeration(ctx, moderatorSession(), []string{"proposte"})

	assert.Empty(t, fx.feed.All())
	// No new pending items: the gate stays put.
	assert.Equal(t, int64(1000), fx.cursors.ModerationCheckedAt(ctx))
}

func TestScanModerationQueueFailureIsolated(t *testing.T) {
	acc := memStore(t)
	broken := brokenPath{Accessor: acc, path: "threads/clan/I Guerrieri/proposte"}
	fx := newScannerFixture(t, broken)
	ctx := context.Background()

	seed(t, acc, "threads/clan/I Guerrieri/eventi/t1", pendingThread(500, "u2", "Clan war", "pending"))

	fx.scanner.ScanModeration(ctx, moderatorSession(), []string{"proposte", "eventi"})

	require.Len(t, fx.feed.All(), 1)
	assert.Equal(t, "eventi", fx.feed.All()[0].Section)
}
