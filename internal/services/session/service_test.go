package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deepgram/studio/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	t.Cleanup(config.SetJWTSecret([]byte("test-secret")))

	store := NewMemoryStore()
	return NewServiceWithStore(store, time.Hour), store
}

func issueCookie(t *testing.T, svc *Service) (*http.Cookie, *SessionClaims) {
	t.Helper()
	rec := httptest.NewRecorder()
	claims, err := svc.CreateSession(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0], claims
}

func TestCreateSessionSetsCookie(t *testing.T) {
	svc, store := newTestService(t)

	cookie, claims := issueCookie(t, svc)

	assert.Equal(t, config.GetSessionCookieName(), cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, claims.SessionID)

	stored, err := store.Get(context.Background(), claims.SessionID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, claims.SessionID, stored.SessionID)
}

func TestValidateSession(t *testing.T) {
	svc, _ := newTestService(t)
	cookie, claims := issueCookie(t, svc)

	t.Run("no cookie", func(t *testing.T) {
		got, err := svc.ValidateSession(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)

		got, err := svc.ValidateSession(req)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, claims.SessionID, got.SessionID)
	})

	t.Run("tampered cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value + "x"})

		got, err := svc.ValidateSession(req)
		assert.Error(t, err)
		assert.Nil(t, got)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &SessionClaims{SessionID: claims.SessionID})
		signed, err := token.SignedString([]byte("other-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: signed})

		got, err := svc.ValidateSession(req)
		assert.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestEnsureSession(t *testing.T) {
	svc, _ := newTestService(t)
	cookie, claims := issueCookie(t, svc)

	t.Run("reuses valid session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()

		got, err := svc.EnsureSession(rec, req)
		require.NoError(t, err)
		assert.Equal(t, claims.SessionID, got.SessionID)
		assert.Empty(t, rec.Result().Cookies(), "no new cookie for a valid session")
	})

	t.Run("issues session for invalid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: "garbage"})
		rec := httptest.NewRecorder()

		got, err := svc.EnsureSession(rec, req)
		require.NoError(t, err)
		assert.NotEqual(t, claims.SessionID, got.SessionID)
		assert.Len(t, rec.Result().Cookies(), 1)
	})
}

func TestClearSession(t *testing.T) {
	svc, store := newTestService(t)
	cookie, claims := issueCookie(t, svc)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	svc.ClearSession(rec, req)

	stored, err := store.Get(context.Background(), claims.SessionID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)

	// the old cookie no longer validates
	got, err := svc.ValidateSession(req)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	expired := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		SessionID:        "old",
	}
	require.NoError(t, store.Set(context.Background(), "old", expired))

	got, err := store.Get(context.Background(), "old")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func expiredClaims(id string, at time.Time) *SessionClaims {
	return &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(at)},
		SessionID:        id,
	}
}

func TestMemoryStoreGetDropsExpired(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "old", expiredClaims("old", time.Now().Add(-time.Minute))))
	require.Equal(t, 1, store.Len())

	got, err := store.Get(context.Background(), "old")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreSweepsOnInterval(t *testing.T) {
	store := NewMemoryStore()
	clock := time.Now()
	store.now = func() time.Time { return clock }
	store.lastSweep = clock

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(context.Background(), id, expiredClaims(id, clock.Add(time.Second))))
	}
	require.Equal(t, 3, store.Len())

	clock = clock.Add(memorySweepInterval)
	live := expiredClaims("live", clock.Add(time.Hour))
	require.NoError(t, store.Set(context.Background(), "live", live))

	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreBoundedUnderCookielessTraffic(t *testing.T) {
	t.Cleanup(config.SetJWTSecret([]byte("test-secret")))
	store := NewMemoryStore()
	svc := NewServiceWithStore(store, time.Millisecond)

	clock := time.Now()
	store.now = func() time.Time { return clock }
	store.lastSweep = clock

	for i := 0; i < 10000; i++ {
		_, err := svc.EnsureSession(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
	}

	clock = clock.Add(memorySweepInterval + time.Second)
	_, err := svc.EnsureSession(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.LessOrEqual(t, store.Len(), 1)
}

func TestCookieSecureOnlyOverHTTPS(t *testing.T) {
	svc, _ := newTestService(t)
	svc.secure = true

	issue := func(r *http.Request) *http.Cookie {
		rec := httptest.NewRecorder()
		_, err := svc.CreateSession(rec, r)
		require.NoError(t, err)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		return cookies[0]
	}

	assert.False(t, issue(httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil)).Secure)
	assert.True(t, issue(httptest.NewRequest(http.MethodGet, "https://studio.example/", nil)).Secure)

	proxied := httptest.NewRequest(http.MethodGet, "/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	assert.True(t, issue(proxied).Secure)

	svc.secure = false
	assert.False(t, issue(httptest.NewRequest(http.MethodGet, "https://studio.example/", nil)).Secure)
}
