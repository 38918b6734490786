// Package session keeps onboarding state across the SSO round-trip in a
// signed, short-lived cookie.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "onboarding_session"

var (
	ErrNoSession      = errors.New("no onboarding session")
	ErrInvalidSession = errors.New("invalid onboarding session")
)

// Claims carries the token being completed, the OAuth state and the
// verification bypass decided when the flow started.
type Claims struct {
	TokenID string `json:"tid"`
	State   string `json:"state"`
	Bypass  bool   `json:"bypass,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	expiry time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(secret string, expiry time.Duration, secure bool) *Manager {
	return &Manager{
		secret: []byte(secret),
		expiry: expiry,
		secure: secure,
		now:    time.Now,
	}
}

func (m *Manager) Set(w http.ResponseWriter, tokenID, state string, bypass bool) error {
	now := m.now()
	claims := Claims{
		TokenID: tokenID,
		State:   state,
		Bypass:  bypass,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/onboarding",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.expiry.Seconds()),
	})
	return nil
}

func (m *Manager) Get(r *http.Request) (*Claims, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	return claims, nil
}

func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/onboarding",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
