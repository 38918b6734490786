package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newManager() *Manager {
	m := NewManager("0123456789abcdef0123456789abcdef", 15*time.Minute, true)
	m.now = func() time.Time { return t0 }
	return m
}

// roundTrip returns a request carrying the cookies set on w.
func roundTrip(w *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/onboarding/callback", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSetGet(t *testing.T) {
	m := newManager()
	w := httptest.NewRecorder()
	require.NoError(t, m.Set(w, "token-1", "state-1", true))

	cookie := w.Result().Cookies()[0]
	assert.Equal(t, CookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)

	claims, err := m.Get(roundTrip(w))
	require.NoError(t, err)
	assert.Equal(t, "token-1", claims.TokenID)
	assert.Equal(t, "state-1", claims.State)
	assert.True(t, claims.Bypass)
}

func TestGet_Missing(t *testing.T) {
	_, err := newManager().Get(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestGet_Expired(t *testing.T) {
	m := newManager()
	w := httptest.NewRecorder()
	require.NoError(t, m.Set(w, "token-1", "state-1", false))

	m.now = func() time.Time { return t0.Add(16 * time.Minute) }
	_, err := m.Get(roundTrip(w))
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestGet_WrongSecret(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, newManager().Set(w, "token-1", "state-1", true))

	other := NewManager("another-secret-another-secret-xx", 15*time.Minute, true)
	other.now = func() time.Time { return t0 }
	_, err := other.Get(roundTrip(w))
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestClear(t *testing.T) {
	w := httptest.NewRecorder()
	newManager().Clear(w)

	cookie := w.Result().Cookies()[0]
	assert.Equal(t, CookieName, cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}
