package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tokenarena/arenakit"
)

const preferenceKeyPrefix = "arenakit:pref:wallet:" // wallet kind by user key

// PreferenceStore provides Redis-based persistence for wallet kind
// preferences. It implements the arenakit.PreferenceStore interface.
type PreferenceStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ arenakit.PreferenceStore = (*PreferenceStore)(nil)

// PreferenceStoreOption configures a PreferenceStore.
type PreferenceStoreOption func(*PreferenceStore)

// WithPreferenceKeyPrefix sets a custom prefix for all Redis keys.
func WithPreferenceKeyPrefix(prefix string) PreferenceStoreOption {
	return func(s *PreferenceStore) {
		s.keyPrefix = prefix
	}
}

// NewPreferenceStore creates a new Redis-based preference store.
func NewPreferenceStore(client redis.UniversalClient, opts ...PreferenceStoreOption) *PreferenceStore {
	s := &PreferenceStore{
		client: client,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PreferenceStore) key(user string) string {
	key := preferenceKeyPrefix + user
	if s.keyPrefix != "" {
		return s.keyPrefix + ":" + key
	}
	return key
}

// GetWalletKind returns the persisted wallet kind for a user key.
func (s *PreferenceStore) GetWalletKind(ctx context.Context, user string) (arenakit.WalletKind, bool, error) {
	value, err := s.client.Get(ctx, s.key(user)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get wallet kind for %s: %w", user, err)
	}
	return arenakit.WalletKind(value), true, nil
}

// SetWalletKind persists the wallet kind for a user key.
func (s *PreferenceStore) SetWalletKind(ctx context.Context, user string, kind arenakit.WalletKind) error {
	if err := s.client.Set(ctx, s.key(user), string(kind), 0).Err(); err != nil {
		return fmt.Errorf("failed to set wallet kind for %s: %w", user, err)
	}
	return nil
}
