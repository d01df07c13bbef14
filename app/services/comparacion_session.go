package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nemaec/obra-erp/utils"
	"github.com/redis/go-redis/v9"
)

// ErrSesionNoEncontrada is returned when a comparison session expired or
// never existed
var ErrSesionNoEncontrada = errors.New("sesion de comparacion no encontrada o expirada")

// ComparacionSesion is the pending state between change detection and
// version confirmation, addressed by an opaque token
type ComparacionSesion struct {
	Token              string               `json:"token"`
	ComisariaID        uint                 `json:"comisaria_id"`
	NombreVersion      string               `json:"nombre_version"`
	DescripcionCambios *string              `json:"descripcion_cambios,omitempty"`
	MonitorResponsable string               `json:"monitor_responsable"`
	Partidas           []PartidaRecord      `json:"partidas"`
	Advertencias       []string             `json:"advertencias,omitempty"`
	Resultado          ComparacionResultado `json:"resultado"`
	CreadaEn           time.Time            `json:"creada_en"`
}

// NuevoTokenSesion returns a fresh opaque session token
func NuevoTokenSesion() string {
	return uuid.New().String()
}

// SessionStore keeps pending comparison sessions alive for a bounded time
type SessionStore interface {
	Save(ctx context.Context, sesion *ComparacionSesion) error
	Get(ctx context.Context, token string) (*ComparacionSesion, error)
	Delete(ctx context.Context, token string) error
}

// RedisSessionStore persists sessions in redis with a TTL, so pending
// comparisons survive process restarts and expire on their own
type RedisSessionStore struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore creates a redis-backed session store. A non-positive
// ttl falls back to the default session TTL.
func NewRedisSessionStore(rc *redis.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = utils.ComparisonSessionTTL
	}
	return &RedisSessionStore{rc: rc, prefix: prefix, ttl: ttl}
}

func (s *RedisSessionStore) key(token string) string {
	return fmt.Sprintf("%scomparacion:%s", s.prefix, token)
}

// Save stores the session under its token
func (s *RedisSessionStore) Save(ctx context.Context, sesion *ComparacionSesion) error {
	bs, err := json.Marshal(sesion)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.rc.Set(ctx, s.key(sesion.Token), bs, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get retrieves a live session by token
func (s *RedisSessionStore) Get(ctx context.Context, token string) (*ComparacionSesion, error) {
	bs, err := s.rc.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSesionNoEncontrada
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sesion ComparacionSesion
	if err := json.Unmarshal(bs, &sesion); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sesion, nil
}

// Delete discards a session after confirmation or cancellation
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.rc.Del(ctx, s.key(token)).Err()
}

type memoryEntry struct {
	sesion    *ComparacionSesion
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory. Used in tests and in
// single-node deployments without redis.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySessionStore creates an in-memory session store. A non-positive
// ttl falls back to the default session TTL.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = utils.ComparisonSessionTTL
	}
	return &MemorySessionStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     utils.UTCNow,
	}
}

// Save stores the session under its token
func (s *MemorySessionStore) Save(ctx context.Context, sesion *ComparacionSesion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sesion.Token] = memoryEntry{
		sesion:    sesion,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Get retrieves a live session by token, purging it if expired
func (s *MemorySessionStore) Get(ctx context.Context, token string) (*ComparacionSesion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return nil, ErrSesionNoEncontrada
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, token)
		return nil, ErrSesionNoEncontrada
	}
	return entry.sesion, nil
}

// Delete discards a session
func (s *MemorySessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}
