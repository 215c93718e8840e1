package config

import "time"

type StoreConfig interface {
	GetSessionKeyPrefix() string
	GetIndexKeyPrefix() string
	GetDefaultSessionTTL() time.Duration
	GetStateIndexTTL() time.Duration
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetSessionKeyPrefix() string {
	return GetEnv("SESSION_KEY_PREFIX", "idp:session:")
}

func (Store) GetIndexKeyPrefix() string {
	return GetEnv("INDEX_KEY_PREFIX", "idp:session:idx")
}

// GetDefaultSessionTTL is the body TTL applied when a session carries no tokens yet.
func (Store) GetDefaultSessionTTL() time.Duration {
	return 1 * time.Hour
}

// GetStateIndexTTL bounds the lifetime of the state index; state values have no
// expiry of their own so a conservative fixed window is applied.
func (Store) GetStateIndexTTL() time.Duration {
	return 10 * time.Minute
}
