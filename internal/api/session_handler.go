package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/clanhub/notifyd/internal/auth"
	"github.com/clanhub/notifyd/internal/session"
	"github.com/clanhub/notifyd/pkg/response"
)

// SessionHandler installs and clears the session the engine polls under.
// Tokens are issued by the forum's auth service; this daemon only consumes
// them.
type SessionHandler struct {
	manager *auth.Manager
	holder  *session.Holder
	logger  *zap.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(manager *auth.Manager, holder *session.Holder, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{manager: manager, holder: holder, logger: logger}
}

// Open validates a session token and makes it the active session.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		response.BadRequest(w, "missing token")
		return
	}

	claims, err := h.manager.Validate(req.Token)
	if err != nil {
		response.Unauthorized(w, "invalid token")
		return
	}

	sess := claims.Session()
	h.holder.Set(sess)
	h.logger.Info("session opened",
		zap.String("user", sess.Username),
		zap.String("clan", sess.Clan),
		zap.String("role", string(sess.Role)),
	)
	response.OK(w, map[string]string{
		"userId":   sess.UserID,
		"username": sess.Username,
		"clan":     sess.Clan,
		"role":     string(sess.Role),
	})
}

// Close drops the active session; subsequent scan passes become no-ops.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.holder.Clear()
	h.logger.Info("session closed")
	response.NoContent(w)
}
