package auth

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"grant-portal/internal/common/config"
	"grant-portal/internal/common/database"
)

// ErrNoSession is returned by a TokenStore holding no session.
var ErrNoSession = stderrors.New("no session")

// TokenStore persists the current session.
type TokenStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// NewTokenStore builds the store selected by cfg.Session.Store. redis may
// be nil unless the redis store is selected.
func NewTokenStore(cfg *config.Config, redis *database.RedisClient) (TokenStore, error) {
	switch cfg.Session.Store {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		path, err := expandHome(cfg.Session.File)
		if err != nil {
			return nil, err
		}
		return NewFileStore(path), nil
	case "redis":
		if redis == nil {
			return nil, fmt.Errorf("redis client is required for the redis session store")
		}
		return NewRedisStore(redis, cfg.Session.KeyPrefix), nil
	}
	return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ==========================
// Memory
// ==========================

type MemoryStore struct {
	mu      sync.Mutex
	session *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, ErrNoSession
	}
	s := *m.session
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	m.session = &c
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// ==========================
// File
// ==========================

// FileStore keeps the session as JSON in a file readable only by the owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if stderrors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}
	if s.Token == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

func (f *FileStore) Save(_ context.Context, s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ==========================
// Redis
// ==========================

// RedisStore keeps the session under "<prefix>:current". The key expires
// with the token when the token carries an exp claim.
type RedisStore struct {
	client *database.RedisClient
	key    string
	now    func() time.Time
}

func NewRedisStore(client *database.RedisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "grant-portal:session"
	}
	return &RedisStore{client: client, key: prefix + ":current", now: time.Now}
}

func (r *RedisStore) Load(ctx context.Context) (*Session, error) {
	var s Session
	err := r.client.GetJSON(ctx, r.key, &s)
	if stderrors.Is(err, database.ErrCacheMiss) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	var ttl time.Duration
	if !s.ExpiresAt.IsZero() {
		ttl = s.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return r.Clear(ctx)
		}
	}
	return r.client.SetJSON(ctx, r.key, s, ttl)
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key)
}
