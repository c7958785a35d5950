package session

import "sync"

// ClanNone is the sentinel clan name carried by users who belong to no clan.
const ClanNone = "Nessuno"

// Role is a forum privilege level. The ladder is ordered: each role implies
// every role below it.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleLeader    Role = "leader"
	RoleAdmin     Role = "admin"
)

var roleRank = map[Role]int{
	RoleMember:    0,
	RoleModerator: 1,
	RoleLeader:    2,
	RoleAdmin:     3,
}

// AtLeast reports whether r carries the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// Session is the explicit context for one authenticated forum user. It is
// constructed at session start and replaced wholesale at login/logout; the
// engine never reads ambient identity state.
type Session struct {
	UserID   string
	Username string
	Clan     string
	Role     Role
}

// HasClan reports whether the user belongs to a clan.
func (s Session) HasClan() bool {
	return s.Clan != "" && s.Clan != ClanNone
}

// ClanKey returns the clan name for path resolution, or "" when the user is
// clanless so that clan-scoped paths resolve as unavailable.
func (s Session) ClanKey() string {
	if !s.HasClan() {
		return ""
	}
	return s.Clan
}

// CanModerate reports whether the user may see clan moderation queues.
func (s Session) CanModerate() bool {
	return s.Role.AtLeast(RoleModerator)
}

// Provider supplies the current session, if any, to the engine.
type Provider interface {
	Current() (Session, bool)
}

// Holder is the mutable Provider used by the daemon: set on login, cleared on
// logout. Safe for concurrent use.
type Holder struct {
	mu   sync.RWMutex
	sess *Session
}

// NewHolder returns an empty Holder (no active session).
func NewHolder() *Holder {
	return &Holder{}
}

// Set replaces the active session.
func (h *Holder) Set(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess = &s
}

// Clear drops the active session.
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess = nil
}

// Current returns the active session and whether one is set.
func (h *Holder) Current() (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.sess == nil {
		return Session{}, false
	}
	return *h.sess, true
}
