package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/woodsintl/woodsreport/internal/config"
)

// Store persists the session record as string key/value pairs.
type Store interface {
	// Get returns the value for key. ok is false when the key is unset.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	// Delete removes keys. Deleting an unset key is not an error.
	Delete(keys ...string) error
	// Keys returns the stored keys starting with prefix, sorted.
	Keys(prefix string) ([]string, error)
}

// MemoryStore is a Store that lives as long as the process.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return matchPrefix(mapKeys(s.values), prefix), nil
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// matchPrefix returns the sorted members of keys that start with prefix.
func matchPrefix(keys []string, prefix string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// settingsBackend is the part of config.Store a SettingsStore needs.
type settingsBackend interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSettings(ctx context.Context, keys ...string) error
	ListSettings(ctx context.Context, prefix string) (map[string]string, error)
}

// SettingsStore keeps the session record in the settings table of the local
// state database.
type SettingsStore struct {
	backend settingsBackend
	timeout time.Duration
}

// NewSettingsStore wraps a config.Store.
func NewSettingsStore(store *config.Store) *SettingsStore {
	return &SettingsStore{backend: store, timeout: 5 * time.Second}
}

func (s *SettingsStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *SettingsStore) Get(key string) (string, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	v, err := s.backend.GetSetting(ctx, key)
	if errors.Is(err, config.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SettingsStore) Set(key, value string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.backend.SetSetting(ctx, key, value)
}

func (s *SettingsStore) Delete(keys ...string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.backend.DeleteSettings(ctx, keys...)
}

func (s *SettingsStore) Keys(prefix string) ([]string, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	settings, err := s.backend.ListSettings(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return matchPrefix(mapKeys(settings), prefix), nil
}

// record is the decoded form of the two persisted keys.
type record struct {
	user         User
	lastActivity time.Time
}

// errMalformed marks a persisted record that cannot be restored.
var errMalformed = errors.New("malformed session record")

// loadRecord reads both keys. It returns (nil, nil) when neither is set and
// errMalformed when only one is set or either fails to decode.
func loadRecord(s Store) (*record, error) {
	rawUser, hasUser, err := s.Get(UserKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", UserKey, err)
	}
	rawLast, hasLast, err := s.Get(LastActivityKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", LastActivityKey, err)
	}
	if !hasUser && !hasLast {
		return nil, nil
	}
	if !hasUser || !hasLast {
		return nil, errMalformed
	}

	var u User
	if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if !u.IsAuthenticated {
		return nil, errMalformed
	}
	ms, err := strconv.ParseInt(rawLast, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return &record{user: u, lastActivity: time.UnixMilli(ms)}, nil
}

func saveUser(s Store, u User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.Set(UserKey, string(b))
}

func saveLastActivity(s Store, t time.Time) error {
	return s.Set(LastActivityKey, strconv.FormatInt(t.UnixMilli(), 10))
}

// clearRecord removes every session key, including ones this version no
// longer writes.
func clearRecord(s Store) error {
	keys, err := s.Keys(KeyPrefix)
	if err != nil {
		return fmt.Errorf("list session keys: %w", err)
	}
	return s.Delete(append(keys, UserKey, LastActivityKey)...)
}
