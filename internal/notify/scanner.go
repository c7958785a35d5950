package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/clanhub/notifyd/internal/session"
	"github.com/clanhub/notifyd/internal/store"
)

// Data types under which the forum stores scannable content.
const (
	messagesDataType = "messages"
	threadsDataType  = "threads"
)

// Scanner discovers notification-worthy events in one section at a time:
// chat messages newer than the section cursor, and pending moderation
// threads newer than the global moderation cursor.
//
// Scanning is read-only with respect to section cursors; only user
// navigation advances those. The moderation cursor is the one exception,
// advanced after a scan that surfaced new pending threads.
type Scanner struct {
	store   store.Accessor
	cursors *Cursors
	feed    *Feed
	clock   Clock
	logger  *zap.Logger
}

// NewScanner creates a scanner feeding discovered events into feed.
func NewScanner(acc store.Accessor, cursors *Cursors, feed *Feed, clock Clock, logger *zap.Logger) *Scanner {
	return &Scanner{
		store:   acc,
		cursors: cursors,
		feed:    feed,
		clock:   clock,
		logger:  logger,
	}
}

// ScanChat scans one chat section for messages newer than its cursor that
// were not authored by the current user. Failures are logged and swallowed;
// the next tick retries.
func (s *Scanner) ScanChat(ctx context.Context, sess session.Session, section string, clanScoped bool) {
	path, err := s.chatPath(sess, section, clanScoped)
	if errors.Is(err, store.ErrPathUnavailable) {
		s.logger.Debug("skipping clan chat scan, no clan", zap.String("section", section))
		return
	}

	cursor := s.cursors.LastSeen(ctx, section)
	entries, err := s.store.ReadAll(ctx, path)
	if err != nil {
		s.logger.Warn("chat scan failed", zap.String("section", section), zap.Error(err))
		return
	}

	for _, entry := range entries {
		ts, ok := fieldInt64(entry.Value, "timestamp")
		if !ok || ts <= cursor {
			continue
		}
		authorID := fieldString(entry.Value, "authorId")
		if authorID == "" || authorID == sess.UserID {
			continue
		}
		message := fieldString(entry.Value, "message")
		if message == "" {
			continue
		}

		author := fieldString(entry.Value, "author")
		s.feed.Add(ctx, Record{
			Kind:      KindNewMessage,
			Title:     fmt.Sprintf("New message from %s", author),
			Body:      Preview(message),
			Timestamp: ts,
			Section:   section,
		})
	}
}

// ScanModeration sweeps the clan's moderation queues for pending threads
// newer than the global moderation cursor. When at least one new pending
// thread was found the cursor advances to now (not to the newest item): a
// thread submitted mid-scan may be seen twice, which dedup absorbs.
func (s *Scanner) ScanModeration(ctx context.Context, sess session.Session, sections []string) {
	checked := s.cursors.ModerationCheckedAt(ctx)
	found := false

	for _, section := range sections {
		path, err := store.ClanSectionPath(threadsDataType, sess.ClanKey(), section)
		if errors.Is(err, store.ErrPathUnavailable) {
			s.logger.Debug("skipping moderation scan, no clan")
			return
		}

		entries, err := s.store.ReadAll(ctx, path)
		if err != nil {
			// One queue failing must not abort the others.
			s.logger.Warn("moderation scan failed", zap.String("section", section), zap.Error(err))
			continue
		}

		for _, entry := range entries {
			if fieldString(entry.Value, "status") != "pending" {
				continue
			}
			createdAt, ok := fieldInt64(entry.Value, "createdAt")
			if !ok || createdAt <= checked {
				continue
			}
			if authorID := fieldString(entry.Value, "authorId"); authorID == "" || authorID == sess.UserID {
				continue
			}

			found = true
			s.feed.Add(ctx, Record{
				Kind:      KindPendingModeration,
				Title:     "Thread awaiting approval",
				Body:      fieldString(entry.Value, "title"),
				Timestamp: createdAt,
				Section:   section,
				Extra: map[string]string{
					"threadId":   entry.Key,
					"subsection": section,
				},
			})
		}
	}

	if found {
		s.cursors.MarkModerationChecked(ctx, s.clock.Now().UnixMilli())
	}
}

func (s *Scanner) chatPath(sess session.Session, section string, clanScoped bool) (string, error) {
	if clanScoped {
		return store.ClanSectionPath(messagesDataType, sess.ClanKey(), section)
	}
	return store.SectionPath(messagesDataType, section), nil
}

// fieldInt64 reads an integer field from a decoded JSON record. Numbers
// arrive as float64 from encoding/json.
func fieldInt64(record map[string]any, key string) (int64, bool) {
	switch v := record[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func fieldString(record map[string]any, key string) string {
	v, _ := record[key].(string)
	return v
}
