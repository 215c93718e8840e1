// Package redisrepo persists authorization sessions in Redis: one JSON body
// per session plus up to five secondary index entries mapping token values to
// the session id, each with its own TTL.
package redisrepo

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/authcove/go-idp-sessions/sessions"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultKeyPrefix addresses session bodies.
	DefaultKeyPrefix = "idp:session:"
	// DefaultIndexPrefix addresses secondary index entries.
	DefaultIndexPrefix = "idp:session:idx"

	// DefaultSessionTTL applies to a session body that carries no tokens yet.
	DefaultSessionTTL = 1 * time.Hour
	// DefaultStateTTL bounds the state index; state values carry no expiry of
	// their own, so a conservative fixed window is applied.
	DefaultStateTTL = 10 * time.Minute

	// minTTL is the floor applied to every computed TTL. A just-expired value
	// still gets a valid positive expiry instead of a non-positive duration
	// being sent to the store.
	minTTL = 1 * time.Second
)

var _ sessions.Repo = (*Repo)(nil)

// Repo is the Redis-backed session store.
//
// Redis only guarantees per-key atomicity, and body + index mutation here is
// a sequence of independent commands. Two concurrent Saves of the same
// session id can interleave and leave a mix of old and new index entries;
// callers needing strict consistency must serialize saves per session id.
type Repo struct {
	client     redis.UniversalClient
	codec      *sessions.Codec
	keyPrefix  string
	idxPrefix  string
	defaultTTL time.Duration
	stateTTL   time.Duration
	nowTime    func() time.Time
}

// Option defines a function type to modify the Repo instance.
type Option func(*Repo)

// WithKeyPrefix overrides the session body key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(r *Repo) { r.keyPrefix = prefix }
}

// WithIndexPrefix overrides the secondary index key prefix.
func WithIndexPrefix(prefix string) Option {
	return func(r *Repo) { r.idxPrefix = prefix }
}

// WithDefaultTTL overrides the body TTL for token-less sessions.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(r *Repo) { r.defaultTTL = ttl }
}

// WithStateTTL overrides the fixed state index TTL.
func WithStateTTL(ttl time.Duration) Option {
	return func(r *Repo) { r.stateTTL = ttl }
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Repo) { r.nowTime = nowFunc }
}

// New initializes a Redis-backed session repository.
func New(client redis.UniversalClient, codec *sessions.Codec, options ...Option) (*Repo, error) {
	if client == nil {
		return nil, errors.New("[redisrepo New] redis client is required")
	}
	if codec == nil {
		return nil, errors.New("[redisrepo New] codec is required")
	}

	r := &Repo{
		client:     client,
		codec:      codec,
		keyPrefix:  DefaultKeyPrefix,
		idxPrefix:  DefaultIndexPrefix,
		defaultTTL: DefaultSessionTTL,
		stateTTL:   DefaultStateTTL,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Ping checks store connectivity (health check).
func (r *Repo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Save stores the session body and rebuilds its secondary indexes. Indexes
// derived from the previously stored version are deleted first, so rotated
// token values never leave a dangling pointer to the new body.
func (r *Repo) Save(ctx context.Context, session *sessions.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session id cannot be empty")
	}

	r.deletePreviousIndexes(ctx, session.ID)

	data, err := r.codec.Serialize(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := r.client.Set(ctx, r.bodyKey(session.ID), data, r.bodyTTL(session)).Err(); err != nil {
		return fmt.Errorf("failed to store session body: %w", err)
	}

	now := r.nowTime()
	for _, token := range session.IndexableTokens() {
		key := r.indexKey(token.Type, token.Value)
		ttl := r.indexTTL(token, now)
		if ttl <= 0 {
			// Token already expired: make sure no stale entry survives.
			if err := r.client.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("failed to delete expired %s index: %w", token.Type, err)
			}
			continue
		}
		if err := r.client.Set(ctx, key, session.ID, ttl).Err(); err != nil {
			return fmt.Errorf("failed to store %s index: %w", token.Type, err)
		}
	}
	return nil
}

// Delete removes the session body and all index entries derived from the
// session's current tokens.
func (r *Repo) Delete(ctx context.Context, session *sessions.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}

	keys := []string{r.bodyKey(session.ID)}
	for _, token := range session.IndexableTokens() {
		keys = append(keys, r.indexKey(token.Type, token.Value))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// GetByID fetches and decodes the session body. Absence and decode failures
// both yield (nil, nil); a corrupted record must not break lookups.
func (r *Repo) GetByID(ctx context.Context, id string) (*sessions.Session, error) {
	data, err := r.client.Get(ctx, r.bodyKey(id)).Bytes()
	if err != nil {
		if goerrors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session body: %w", err)
	}
	return r.decode(ctx, id, data)
}

// GetByToken resolves a token value to its session through the secondary
// indexes. An empty tokenType probes every index kind in the fixed order
// state, code, access, refresh, id_token and uses the first hit.
func (r *Repo) GetByToken(ctx context.Context, tokenValue string, tokenType sessions.TokenType) (*sessions.Session, error) {
	probe := []sessions.TokenType{tokenType}
	if tokenType == "" {
		probe = sessions.TokenTypeProbeOrder
	}

	for _, t := range probe {
		key := r.indexKey(t, tokenValue)
		id, err := r.client.Get(ctx, key).Result()
		if err != nil {
			if goerrors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to get %s index: %w", t, err)
		}
		return r.resolveIndex(ctx, key, id)
	}
	return nil, nil
}

// resolveIndex loads the body an index entry points at. A missing body while
// the index still exists is the dangling-index condition: the entry is
// lazily deleted and the lookup reports absent.
func (r *Repo) resolveIndex(ctx context.Context, indexKey, id string) (*sessions.Session, error) {
	data, err := r.client.Get(ctx, r.bodyKey(id)).Bytes()
	if err != nil {
		if goerrors.Is(err, redis.Nil) {
			log.Debug().Str("indexKey", indexKey).Str("sessionID", id).Msg("dangling session index, deleting")
			if delErr := r.client.Del(ctx, indexKey).Err(); delErr != nil {
				log.Warn().Err(delErr).Str("indexKey", indexKey).Msg("failed to delete dangling session index")
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session body: %w", err)
	}
	return r.decode(ctx, id, data)
}

// decode degrades DecodeErrors to absent. Failures of the external lookup
// capabilities (registered client, accounts) propagate.
func (r *Repo) decode(ctx context.Context, id string, data []byte) (*sessions.Session, error) {
	session, err := r.codec.Deserialize(ctx, data)
	if err != nil {
		var decodeErr *sessions.DecodeError
		if goerrors.As(err, &decodeErr) {
			log.Warn().Err(err).Str("sessionID", id).Msg("failed to decode stored session, treating as absent")
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// deletePreviousIndexes removes every index entry derived from the currently
// stored version of the session, if one exists. A body that no longer
// decodes is logged and skipped; its indexes will age out via their TTLs.
func (r *Repo) deletePreviousIndexes(ctx context.Context, id string) {
	data, err := r.client.Get(ctx, r.bodyKey(id)).Bytes()
	if err != nil {
		if !goerrors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("sessionID", id).Msg("failed to load previous session before save")
		}
		return
	}
	previous, err := r.codec.Deserialize(ctx, data)
	if err != nil {
		log.Warn().Err(err).Str("sessionID", id).Msg("failed to decode previous session, skipping index cleanup")
		return
	}

	keys := make([]string, 0, 5)
	for _, token := range previous.IndexableTokens() {
		keys = append(keys, r.indexKey(token.Type, token.Value))
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Str("sessionID", id).Msg("failed to delete previous session indexes")
	}
}

// bodyTTL is the time until the latest-expiring token the session holds,
// floored at one second, or the default when the session carries no token
// expiry at all. The body never outlives its longest-lived token by less
// than the index entries do.
func (r *Repo) bodyTTL(session *sessions.Session) time.Duration {
	latest := session.LatestTokenExpiry()
	if latest.IsZero() {
		return r.defaultTTL
	}
	return floorTTL(latest.Sub(r.nowTime()))
}

// indexTTL returns the entry's TTL, or a non-positive duration when the
// token is already expired and the entry should be deleted instead.
func (r *Repo) indexTTL(token sessions.IndexableToken, now time.Time) time.Duration {
	if token.Type == sessions.TokenTypeState {
		return r.stateTTL
	}
	if token.ExpiresAt == nil {
		return r.defaultTTL
	}
	remaining := token.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return remaining
	}
	return floorTTL(remaining)
}

func floorTTL(d time.Duration) time.Duration {
	if d < minTTL {
		return minTTL
	}
	return d
}
