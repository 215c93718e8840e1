package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	"github.com/authcove/go-idp-sessions/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type indexEntry struct {
	sessionID string
	expiresAt time.Time
}

// FakeSessionRepo is a map-backed session repository with the same index and
// TTL semantics as the Redis store, for consumers' tests.
type FakeSessionRepo struct {
	bodies     map[string]*sessions.Session
	bodyExpiry map[string]time.Time
	indexes    map[sessions.TokenType]map[string]indexEntry // token type -> token value -> entry
	defaultTTL time.Duration
	stateTTL   time.Duration
	nowTime    func() time.Time
	lock       sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	r := &FakeSessionRepo{
		bodies:     make(map[string]*sessions.Session),
		bodyExpiry: make(map[string]time.Time),
		indexes:    make(map[sessions.TokenType]map[string]indexEntry),
		defaultTTL: time.Hour,
		stateTTL:   10 * time.Minute,
		nowTime:    time.Now,
	}
	for _, t := range sessions.TokenTypeProbeOrder {
		r.indexes[t] = make(map[string]indexEntry)
	}
	return r
}

// SetNowTime overrides the clock (primarily for testing TTL behaviour)
func (r *FakeSessionRepo) SetNowTime(nowFunc func() time.Time) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.nowTime = nowFunc
}

func (r *FakeSessionRepo) Save(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	now := r.nowTime()
	if previous, ok := r.bodies[session.ID]; ok {
		for _, token := range previous.IndexableTokens() {
			delete(r.indexes[token.Type], token.Value)
		}
	}

	r.bodies[session.ID] = session
	bodyTTL := r.defaultTTL
	if latest := session.LatestTokenExpiry(); !latest.IsZero() {
		bodyTTL = latest.Sub(now)
		if bodyTTL < time.Second {
			bodyTTL = time.Second
		}
	}
	r.bodyExpiry[session.ID] = now.Add(bodyTTL)

	for _, token := range session.IndexableTokens() {
		expiresAt := now.Add(r.defaultTTL)
		switch {
		case token.Type == sessions.TokenTypeState:
			expiresAt = now.Add(r.stateTTL)
		case token.ExpiresAt != nil:
			if !token.ExpiresAt.After(now) {
				delete(r.indexes[token.Type], token.Value)
				continue
			}
			expiresAt = *token.ExpiresAt
		}
		r.indexes[token.Type][token.Value] = indexEntry{sessionID: session.ID, expiresAt: expiresAt}
	}
	return nil
}

func (r *FakeSessionRepo) Delete(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.bodies, session.ID)
	delete(r.bodyExpiry, session.ID)
	for _, token := range session.IndexableTokens() {
		delete(r.indexes[token.Type], token.Value)
	}
	return nil
}

func (r *FakeSessionRepo) GetByID(_ context.Context, id string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.liveBody(id), nil
}

func (r *FakeSessionRepo) GetByToken(_ context.Context, tokenValue string, tokenType sessions.TokenType) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	probe := []sessions.TokenType{tokenType}
	if tokenType == "" {
		probe = sessions.TokenTypeProbeOrder
	}
	now := r.nowTime()
	for _, t := range probe {
		entry, ok := r.indexes[t][tokenValue]
		if !ok || !entry.expiresAt.After(now) {
			continue
		}
		return r.liveBody(entry.sessionID), nil
	}
	return nil, nil
}

func (r *FakeSessionRepo) liveBody(id string) *sessions.Session {
	session, ok := r.bodies[id]
	if !ok || !r.bodyExpiry[id].After(r.nowTime()) {
		return nil
	}
	return session
}
