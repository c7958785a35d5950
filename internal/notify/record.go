package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification by the event that produced it.
type Kind string

const (
	// KindNewMessage is a chat message from another user.
	KindNewMessage Kind = "new_message"
	// KindPendingModeration is a thread waiting in a clan moderation queue.
	KindPendingModeration Kind = "pending_moderation"
)

// previewLimit bounds the body preview of message notifications.
const previewLimit = 50

// Record is one entry in the notification feed.
//
// ID is unique but not the identity used for deduplication: two records are
// the same logical event when kind, section and timestamp all match.
type Record struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Timestamp int64             `json:"timestamp"` // event time, epoch ms, producer-assigned
	Section   string            `json:"section"`
	Read      bool              `json:"read"`
	Extra     map[string]string `json:"extra,omitempty"`
}

type dedupKey struct {
	kind      Kind
	section   string
	timestamp int64
}

func (r Record) key() dedupKey {
	return dedupKey{kind: r.Kind, section: r.Section, timestamp: r.Timestamp}
}

// NewID generates a feed-unique record id: millisecond timestamp plus a
// random suffix, so ids stay roughly sortable in logs.
func NewID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// Preview truncates a message body to the bounded preview length, appending
// an ellipsis when content was cut.
func Preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLimit {
		return body
	}
	return string(runes[:previewLimit]) + "…"
}
