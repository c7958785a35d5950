package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clanhub/notifyd/internal/notify"
	"github.com/clanhub/notifyd/internal/session"
	"github.com/clanhub/notifyd/internal/store"
	"github.com/clanhub/notifyd/internal/testutil"
)

// baseMillis is an arbitrary fixed "now" for deterministic timestamps.
const baseMillis = int64(1_700_000_000_000)

func baseTime() time.Time {
	return time.UnixMilli(baseMillis)
}

func memStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestFeed(t *testing.T, acc store.Accessor) (*notify.Feed, *testutil.ManualClock) {
	t.Helper()
	clock := testutil.NewManualClock(baseTime())
	return notify.NewFeed(acc, clock, zap.NewNop()), clock
}

// brokenWrites wraps an Accessor and fails every write, for exercising the
// best-effort persistence policy.
type brokenWrites struct {
	store.Accessor
}

func (b brokenWrites) Write(ctx context.Context, path string, value any) error {
	return errors.New("disk on fire")
}

// brokenPath wraps an Accessor and fails reads of one specific path.
type brokenPath struct {
	store.Accessor
	path string
}

func (b brokenPath) ReadAll(ctx context.Context, path string) ([]store.Entry, error) {
	if path == b.path {
		return nil, errors.New("backend hiccup")
	}
	return b.Accessor.ReadAll(ctx, path)
}

func memberSession() session.Session {
	return session.Session{UserID: "u1", Username: "Alice", Clan: session.ClanNone, Role: session.RoleMember}
}

func clanSession() session.Session {
	return session.Session{UserID: "u1", Username: "Alice", Clan: "I Guerrieri", Role: session.RoleMember}
}

func moderatorSession() session.Session {
	return session.Session{UserID: "u1", Username: "Alice", Clan: "I Guerrieri", Role: session.RoleModerator}
}

func chatMessage(ts int64, authorID, author, message string) map[string]any {
	return map[string]any{
		"timestamp": ts,
		"authorId":  authorID,
		"author":    author,
		"message":   message,
	}
}

func pendingThread(createdAt int64, authorID, title, status string) map[string]any {
	return map[string]any{
		"createdAt": createdAt,
		"authorId":  authorID,
		"title":     title,
		"status":    status,
	}
}

func seed(t *testing.T, acc store.Accessor, path string, value map[string]any) {
	t.Helper()
	require.NoError(t, acc.Write(context.Background(), path, value))
}
