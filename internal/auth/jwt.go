package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clanhub/notifyd/internal/session"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims are the forum session claims carried in a token: enough to rebuild
// the explicit session context the engine polls under.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Clan     string `json:"clan"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Session rebuilds the session context from the claims.
func (c *Claims) Session() session.Session {
	return session.Session{
		UserID:   c.UserID,
		Username: c.Username,
		Clan:     c.Clan,
		Role:     session.Role(c.Role),
	}
}

// Manager signs and validates session tokens.
type Manager struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewManager creates a token manager with the given HMAC secret.
func NewManager(secret string, expiry time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		expiry: expiry,
		issuer: "notifyd",
	}
}

// Generate creates a signed session token for sess.
func (m *Manager) Generate(sess session.Session) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   sess.UserID,
		Username: sess.Username,
		Clan:     sess.Clan,
		Role:     string(sess.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   sess.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and verifies a session token.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
