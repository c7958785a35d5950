package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clanhub/notifyd/internal/notify"
	"github.com/clanhub/notifyd/pkg/response"
)

// NotificationHandler exposes the feed to the notification panel and badge
// renderer.
type NotificationHandler struct {
	engine *notify.Engine
	logger *zap.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(engine *notify.Engine, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{engine: engine, logger: logger}
}

// List returns the full feed, most recent first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.engine.Feed.All())
}

// UnreadCount returns the global unread counter.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]int{"count": h.engine.Feed.UnreadCount()})
}

// SectionUnreadCount returns the unread count for one section. With no
// explicit "since" the section's own cursor is used, which is what badge
// rendering wants.
func (h *NotificationHandler) SectionUnreadCount(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid since timestamp")
			return
		}
		since = parsed
	} else {
		since = h.engine.Cursors.LastSeen(r.Context(), section)
	}

	response.OK(w, map[string]int{"count": h.engine.Feed.UnreadCountForSection(section, since)})
}

// MarkRead marks one notification read. Idempotent; unknown ids are fine.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "missing notification id")
		return
	}
	h.engine.Feed.MarkRead(r.Context(), id)
	response.OK(w, map[string]string{"status": "success"})
}

// MarkAllRead marks the whole feed read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	h.engine.Feed.MarkAllRead(r.Context())
	response.OK(w, map[string]string{"status": "success"})
}

// Reset wipes the feed and every cursor. Diagnostic recovery endpoint.
func (h *NotificationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reset(r.Context()); err != nil {
		h.logger.Error("failed to reset notification state", zap.Error(err))
		response.InternalError(w, "failed to reset notification state")
		return
	}
	response.OK(w, map[string]string{"status": "success"})
}
