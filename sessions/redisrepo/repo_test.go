package redisrepo_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	fakeaccountrepo "github.com/authcove/go-idp-sessions/accounts/repofake"
	"github.com/authcove/go-idp-sessions/clients"
	fakeclientrepo "github.com/authcove/go-idp-sessions/clients/fakerepo"
	"github.com/authcove/go-idp-sessions/identity"
	"github.com/authcove/go-idp-sessions/sessions"
	"github.com/authcove/go-idp-sessions/sessions/redisrepo"
)

const testClientID = "test-client-1"

// testNow anchors every TTL computation in the suite.
var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testFixture struct {
	mr   *miniredis.Miniredis
	repo *redisrepo.Repo
}

func setupTestFixture(t *testing.T, options ...redisrepo.Option) *testFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	clientRepo := fakeclientrepo.NewFakeClientRepo()
	clientRepo.Upsert(&clients.Client{
		ID:     testClientID,
		Type:   clients.ClientTypeConfidential,
		Scopes: []string{"openid", "profile"},
	})

	reconstructor, err := identity.NewReconstructor(identity.DefaultChain(), fakeaccountrepo.NewFakeAccountRepo())
	require.NoError(t, err)
	coercer, err := sessions.NewCoercer(reconstructor)
	require.NoError(t, err)
	codec, err := sessions.NewCodec(clientRepo, coercer)
	require.NoError(t, err)

	options = append([]redisrepo.Option{redisrepo.WithNowTime(func() time.Time { return testNow })}, options...)
	repo, err := redisrepo.New(client, codec, options...)
	require.NoError(t, err)

	return &testFixture{mr: mr, repo: repo}
}

func newSession(id string) *sessions.Session {
	return &sessions.Session{
		ID:            id,
		ClientID:      testClientID,
		PrincipalName: "jo",
		GrantType:     sessions.GrantAuthorizationCode,
	}
}

func tokenExpiring(value string, expiresAt time.Time) *sessions.Token {
	return &sessions.Token{Value: value, ExpiresAt: &expiresAt}
}

func accessTokenExpiring(value string, expiresAt time.Time) *sessions.AccessToken {
	return &sessions.AccessToken{
		Token:     sessions.Token{Value: value, ExpiresAt: &expiresAt},
		TokenType: sessions.DefaultTokenType,
		Scopes:    []string{"openid"},
	}
}

func bodyKey(id string) string {
	return redisrepo.DefaultKeyPrefix + id
}

func stateKey(state string) string {
	return fmt.Sprintf("%s:%s:%s", redisrepo.DefaultIndexPrefix, sessions.TokenTypeState, state)
}

func hashedIndexKey(tokenType sessions.TokenType, value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%s:%s:%s", redisrepo.DefaultIndexPrefix, tokenType, hex.EncodeToString(sum[:]))
}

func TestSaveStoresBodyAndHashedAccessIndex(t *testing.T) {
	f := setupTestFixture(t)

	session := newSession("sess-1")
	session.AccessToken = accessTokenExpiring("at-1", testNow.Add(time.Hour))
	require.NoError(t, f.repo.Save(context.Background(), session))

	require.True(t, f.mr.Exists(bodyKey("sess-1")))
	require.Equal(t, time.Hour, f.mr.TTL(bodyKey("sess-1")))

	idx := hashedIndexKey(sessions.TokenTypeAccess, "at-1")
	require.True(t, f.mr.Exists(idx))
	require.Equal(t, "sess-1", mustGet(t, f.mr, idx))
	require.Equal(t, time.Hour, f.mr.TTL(idx))

	// Exactly one index entry plus the body.
	require.Len(t, f.mr.Keys(), 2)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	value, err := mr.Get(key)
	require.NoError(t, err)
	return value
}

func TestSaveWithoutTokensUsesDefaultBodyTTL(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.repo.Save(context.Background(), newSession("sess-1")))
	require.Equal(t, redisrepo.DefaultSessionTTL, f.mr.TTL(bodyKey("sess-1")))
	require.Len(t, f.mr.Keys(), 1)
}

func TestSaveStateIndexIsRawWithFixedTTL(t *testing.T) {
	f := setupTestFixture(t)

	session := newSession("sess-1")
	session.State = "xyz-state"
	require.NoError(t, f.repo.Save(context.Background(), session))

	require.True(t, f.mr.Exists(stateKey("xyz-state")))
	require.Equal(t, "sess-1", mustGet(t, f.mr, stateKey("xyz-state")))
	require.Equal(t, redisrepo.DefaultStateTTL, f.mr.TTL(stateKey("xyz-state")))
}

func TestSaveRotatesIndexes(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	session := newSession("sess-1")
	session.AccessToken = accessTokenExpiring("at-old", testNow.Add(time.Hour))
	require.NoError(t, f.repo.Save(ctx, session))

	session.AccessToken = accessTokenExpiring("at-new", testNow.Add(time.Hour))
	require.NoError(t, f.repo.Save(ctx, session))

	require.False(t, f.mr.Exists(hashedIndexKey(sessions.TokenTypeAccess, "at-old")))
	require.True(t, f.mr.Exists(hashedIndexKey(sessions.TokenTypeAccess, "at-new")))

	stale, err := f.repo.GetByToken(ctx, "at-old", sessions.TokenTypeAccess)
	require.NoError(t, err)
	require.Nil(t, stale)

	current, err := f.repo.GetByToken(ctx, "at-new", sessions.TokenTypeAccess)
	require.NoError(t, err)
	require.NotNil(t, current)
	require.Equal(t, "sess-1", current.ID)
}

func TestSaveDeletesIndexForExpiredToken(t *testing.T) {
	f := setupTestFixture(t)

	// A stale entry from a previous lifetime of the same token value.
	staleKey := hashedIndexKey(sessions.TokenTypeAccess, "at-expired")
	require.NoError(t, f.mr.Set(staleKey, "sess-ancient"))

	session := newSession("sess-1")
	session.AccessToken = accessTokenExpiring("at-expired", testNow.Add(-time.Minute))
	require.NoError(t, f.repo.Save(context.Background(), session))

	require.False(t, f.mr.Exists(staleKey))
	// An all-expired session body dies at the TTL floor.
	require.Equal(t, time.Second, f.mr.TTL(bodyKey("sess-1")))
}

func TestGetByTokenProbesStateBeforeAccess(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	stateSession := newSession("sess-state")
	stateSession.State = "shared-value"
	require.NoError(t, f.repo.Save(ctx, stateSession))

	accessSession := newSession("sess-access")
	accessSession.AccessToken = accessTokenExpiring("shared-value", testNow.Add(time.Hour))
	require.NoError(t, f.repo.Save(ctx, accessSession))

	untyped, err := f.repo.GetByToken(ctx, "shared-value", "")
	require.NoError(t, err)
	require.NotNil(t, untyped)
	require.Equal(t, "sess-state", untyped.ID)

	typed, err := f.repo.GetByToken(ctx, "shared-value", sessions.TokenTypeAccess)
	require.NoError(t, err)
	require.NotNil(t, typed)
	require.Equal(t, "sess-access", typed.ID)
}

func TestGetByTokenDeletesDanglingIndex(t *testing.T) {
	f := setupTestFixture(t)

	dangling := hashedIndexKey(sessions.TokenTypeRefresh, "rt-ghost")
	require.NoError(t, f.mr.Set(dangling, "sess-gone"))

	session, err := f.repo.GetByToken(context.Background(), "rt-ghost", sessions.TokenTypeRefresh)
	require.NoError(t, err)
	require.Nil(t, session)
	require.False(t, f.mr.Exists(dangling))
}

func TestGetByTokenAbsent(t *testing.T) {
	f := setupTestFixture(t)

	session, err := f.repo.GetByToken(context.Background(), "nope", "")
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestGetByIDAbsent(t *testing.T) {
	f := setupTestFixture(t)

	session, err := f.repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestGetByIDCorruptBodyReportsAbsent(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.mr.Set(bodyKey("sess-1"), "{not a session"))

	session, err := f.repo.GetByID(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestGetByIDUnknownClientPropagates(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	session := newSession("sess-1")
	session.ClientID = "unregistered-client"
	require.NoError(t, f.repo.Save(ctx, session))

	_, err := f.repo.GetByID(ctx, "sess-1")
	require.ErrorIs(t, err, sessions.ErrMissingRegisteredClient)
}

func TestDeleteRemovesBodyAndAllIndexes(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	session := newSession("sess-1")
	session.State = "xyz-state"
	session.AuthorizationCode = tokenExpiring("code-1", testNow.Add(5*time.Minute))
	session.AccessToken = accessTokenExpiring("at-1", testNow.Add(time.Hour))
	session.RefreshToken = tokenExpiring("rt-1", testNow.Add(24*time.Hour))
	session.IDToken = tokenExpiring("idt-1", testNow.Add(time.Hour))
	require.NoError(t, f.repo.Save(ctx, session))
	require.Len(t, f.mr.Keys(), 6)

	require.NoError(t, f.repo.Delete(ctx, session))
	require.Empty(t, f.mr.Keys())
}

func TestBodyTTLTracksLatestTokenExpiry(t *testing.T) {
	f := setupTestFixture(t)

	session := newSession("sess-1")
	session.AccessToken = accessTokenExpiring("at-1", testNow.Add(time.Hour))
	session.RefreshToken = tokenExpiring("rt-1", testNow.Add(24*time.Hour))
	require.NoError(t, f.repo.Save(context.Background(), session))

	require.Equal(t, 24*time.Hour, f.mr.TTL(bodyKey("sess-1")))
	require.Equal(t, time.Hour, f.mr.TTL(hashedIndexKey(sessions.TokenTypeAccess, "at-1")))
	require.Equal(t, 24*time.Hour, f.mr.TTL(hashedIndexKey(sessions.TokenTypeRefresh, "rt-1")))
}

func TestConcurrentSavesSameIDLeaveConsistentBody(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	saveErrs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			session := newSession("sess-1")
			session.AccessToken = accessTokenExpiring(fmt.Sprintf("at-%d", n), testNow.Add(time.Hour))
			saveErrs[n] = f.repo.Save(ctx, session)
		}(i)
	}
	wg.Wait()
	require.NoError(t, saveErrs[0])
	require.NoError(t, saveErrs[1])

	// Interleaved index writes are tolerated; the body itself must hold one
	// of the two versions and resolve by id.
	stored, err := f.repo.GetByID(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.AccessToken)
	require.Contains(t, []string{"at-0", "at-1"}, stored.AccessToken.Value)
}

func TestRoundTripThroughStore(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	session := newSession("sess-1")
	session.State = "xyz-state"
	session.AuthorizationCode = tokenExpiring("code-1", testNow.Add(5*time.Minute))
	session.SetAttribute(sessions.AttrAuthorizationRequest, &sessions.AuthorizationRequest{
		AuthorizationURI: "https://idp.example.org/authorize",
		ClientID:         testClientID,
		State:            "xyz-state",
		Scopes:           []string{"openid"},
	})
	require.NoError(t, f.repo.Save(ctx, session))

	stored, err := f.repo.GetByToken(ctx, "code-1", sessions.TokenTypeCode)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, session.ID, stored.ID)
	require.Equal(t, session.GrantType, stored.GrantType)

	req, ok := stored.AuthorizationRequest()
	require.True(t, ok)
	require.Equal(t, "https://idp.example.org/authorize", req.AuthorizationURI)
	require.Equal(t, []string{"openid"}, req.Scopes)
}
