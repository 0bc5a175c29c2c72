package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/deepgram/studio/internal/config"
	"github.com/deepgram/studio/internal/infrastructure/redis"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix = "studio:session:"

	// expired entries are swept at least this often, and whenever the map
	// doubles past minSweepSize
	memorySweepInterval = time.Minute
	minSweepSize        = 1024
)

type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

type SessionStore interface {
	Set(ctx context.Context, sessionID string, claims *SessionClaims) error
	// Get returns nil claims without error for unknown sessions
	Get(ctx context.Context, sessionID string) (*SessionClaims, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	redisService *redis.Service
	lifetime     time.Duration
}

type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*SessionClaims
	lastSweep time.Time
	sweepAt   int
	now       func() time.Time
}

type Service struct {
	store    SessionStore
	lifetime time.Duration
	secure   bool
}

// NewService stores claims in Redis when it is reachable, otherwise in memory
func NewService(redisService *redis.Service) *Service {
	lifetime := config.GetSessionLifetime()

	var store SessionStore
	if redisService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisService.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory session store")
			store = NewMemoryStore()
		} else {
			log.Info().Msg("Using Redis session store")
			store = &RedisStore{redisService: redisService, lifetime: lifetime}
		}
	} else {
		log.Info().Msg("Using in-memory session store")
		store = NewMemoryStore()
	}

	return NewServiceWithStore(store, lifetime)
}

func NewServiceWithStore(store SessionStore, lifetime time.Duration) *Service {
	return &Service{
		store:    store,
		lifetime: lifetime,
		secure:   config.GetSessionCookieSecure(),
	}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*SessionClaims),
		lastSweep: time.Now(),
		sweepAt:   minSweepSize,
		now:       time.Now,
	}
}

// Redis Store implementation
func (rs *RedisStore) Set(ctx context.Context, sessionID string, claims *SessionClaims) error {
	data, err := json.Marshal(claims)
	if err != nil {
		return err
	}

	return rs.redisService.Set(ctx, keyPrefix+sessionID, string(data), rs.lifetime)
}

func (rs *RedisStore) Get(ctx context.Context, sessionID string) (*SessionClaims, error) {
	data, err := rs.redisService.Get(ctx, keyPrefix+sessionID)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var claims SessionClaims
	if err := json.Unmarshal([]byte(data), &claims); err != nil {
		return nil, err
	}

	return &claims, nil
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, keyPrefix+sessionID)
}

// Memory Store implementation
func (ms *MemoryStore) Set(ctx context.Context, sessionID string, claims *SessionClaims) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[sessionID] = claims

	now := ms.now()
	if now.Sub(ms.lastSweep) >= memorySweepInterval || len(ms.sessions) >= ms.sweepAt {
		ms.sweep(now)
	}
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, sessionID string) (*SessionClaims, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	claims, exists := ms.sessions[sessionID]
	if !exists {
		return nil, nil
	}
	if expired(claims, ms.now()) {
		delete(ms.sessions, sessionID)
		return nil, nil
	}
	return claims, nil
}

// Len returns the number of stored sessions, expired or not
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.sessions)
}

// sweep must be called with mu held
func (ms *MemoryStore) sweep(now time.Time) {
	for id, claims := range ms.sessions {
		if expired(claims, now) {
			delete(ms.sessions, id)
		}
	}
	ms.lastSweep = now
	ms.sweepAt = max(minSweepSize, 2*len(ms.sessions))
}

func expired(claims *SessionClaims, now time.Time) bool {
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}

func (ms *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, sessionID)
	return nil
}

// CreateSession issues a new session cookie and records its claims
func (s *Service) CreateSession(w http.ResponseWriter, r *http.Request) (*SessionClaims, error) {
	ctx := r.Context()
	now := time.Now()
	sessionID := uuid.New().String()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sessionID,
		},
		SessionID: sessionID,
	}

	if err := s.store.Set(ctx, sessionID, claims); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(config.GetJWTSecret())
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    signedToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureFor(r),
		SameSite: http.SameSiteStrictMode,
		Expires:  now.Add(s.lifetime),
	})

	return claims, nil
}

// ValidateSession returns the claims of a valid session cookie, or nil when
// the request carries none
func (s *Service) ValidateSession(r *http.Request) (*SessionClaims, error) {
	cookie, err := r.Cookie(config.GetSessionCookieName())
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	claims, err := parseToken(cookie.Value)
	if err != nil {
		return nil, err
	}

	// Verify session exists in store
	storedClaims, err := s.store.Get(r.Context(), claims.SessionID)
	if err != nil {
		return nil, err
	}
	if storedClaims == nil {
		return nil, nil
	}

	return claims, nil
}

// EnsureSession returns the current session, issuing a new cookie when the
// request has no valid one
func (s *Service) EnsureSession(w http.ResponseWriter, r *http.Request) (*SessionClaims, error) {
	claims, err := s.ValidateSession(r)
	if err != nil {
		log.Debug().Err(err).Msg("Discarding invalid session cookie")
	}
	if claims != nil {
		return claims, nil
	}

	return s.CreateSession(w, r)
}

// ClearSession removes the session cookie and from storage
func (s *Service) ClearSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(config.GetSessionCookieName()); err == nil {
		if claims, err := parseToken(cookie.Value); err == nil {
			_ = s.store.Delete(r.Context(), claims.SessionID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureFor(r),
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}

// secureFor marks the cookie Secure only when the request itself arrived over
// https. Clients drop Secure cookies received over plain http.
func (s *Service) secureFor(r *http.Request) bool {
	if !s.secure {
		return false
	}
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func parseToken(value string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.GetJWTSecret(), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid session token")
	}

	return claims, nil
}
