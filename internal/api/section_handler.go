package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clanhub/notifyd/internal/middleware"
	"github.com/clanhub/notifyd/internal/notify"
	"github.com/clanhub/notifyd/pkg/response"
)

// SectionHandler consumes the "section visited" event from the presentation
// layer and advances that section's cursor.
type SectionHandler struct {
	engine *notify.Engine
	clock  notify.Clock
	logger *zap.Logger
}

// NewSectionHandler creates a new section handler.
func NewSectionHandler(engine *notify.Engine, clock notify.Clock, logger *zap.Logger) *SectionHandler {
	return &SectionHandler{engine: engine, clock: clock, logger: logger}
}

// Visit marks a section as seen. An optional body timestamp lets the client
// pin the watermark to the newest content it rendered; otherwise now is
// used. Regressions are ignored by the tracker either way.
func (h *SectionHandler) Visit(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	if section == "" {
		response.BadRequest(w, "missing section")
		return
	}

	ts := h.clock.Now().UnixMilli()
	if r.Body != nil && r.ContentLength > 0 {
		var req struct {
			Timestamp int64 `json:"timestamp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
		if req.Timestamp > 0 {
			ts = req.Timestamp
		}
	}

	h.engine.Cursors.MarkSeen(r.Context(), section, ts)
	if sess, ok := middleware.GetSession(r.Context()); ok {
		h.logger.Debug("section visited",
			zap.String("section", section),
			zap.String("user_id", sess.UserID),
			zap.Int64("timestamp", ts))
	}
	response.OK(w, map[string]any{"section": section, "lastSeen": h.engine.Cursors.LastSeen(r.Context(), section)})
}
