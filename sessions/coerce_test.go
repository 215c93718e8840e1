package sessions_test

import (
	"context"
	"testing"

	"github.com/authcove/go-idp-sessions/sessions"
	"github.com/stretchr/testify/require"
)

func TestCoerceLeavesAbsentKeysAbsent(t *testing.T) {
	f := setupTestFixture(t)

	attrs := map[string]any{"custom": "value"}
	coerced, outcomes, err := f.coercer.Coerce(context.Background(), testClientID, attrs)
	require.NoError(t, err)
	require.Equal(t, attrs, coerced)
	require.Empty(t, outcomes)
}

func TestCoerceNilAttributes(t *testing.T) {
	f := setupTestFixture(t)

	coerced, outcomes, err := f.coercer.Coerce(context.Background(), testClientID, nil)
	require.NoError(t, err)
	require.Nil(t, coerced)
	require.Empty(t, outcomes)
}

func TestCoercePassesTypedValuesThrough(t *testing.T) {
	f := setupTestFixture(t)

	req := &sessions.AuthorizationRequest{AuthorizationURI: "https://idp.example.org/authorize", ClientID: testClientID}
	principal := &sessions.BasicPrincipal{Account: &accountFixture}
	attrs := map[string]any{
		sessions.AttrAuthorizationRequest: req,
		sessions.AttrPrincipal:            principal,
	}

	coerced, outcomes, err := f.coercer.Coerce(context.Background(), testClientID, attrs)
	require.NoError(t, err)
	require.Same(t, req, coerced[sessions.AttrAuthorizationRequest])
	require.Same(t, principal, coerced[sessions.AttrPrincipal])
	require.Equal(t, sessions.CoercionPassed, outcomes[sessions.AttrAuthorizationRequest])
	require.Equal(t, sessions.CoercionPassed, outcomes[sessions.AttrPrincipal])
}

func TestCoerceReconstructsAuthorizationRequest(t *testing.T) {
	f := setupTestFixture(t)

	attrs := map[string]any{
		sessions.AttrAuthorizationRequest: map[string]any{
			"authorizationUri":     "https://idp.example.org/authorize",
			"clientId":             testClientID,
			"redirectUri":          testRedirectURI,
			"scopes":               []any{"openid", "profile"},
			"state":                testState,
			"additionalParameters": map[string]any{"prompt": "consent"},
		},
	}

	coerced, outcomes, err := f.coercer.Coerce(context.Background(), testClientID, attrs)
	require.NoError(t, err)
	require.Equal(t, sessions.CoercionReconstructed, outcomes[sessions.AttrAuthorizationRequest])

	req, ok := coerced[sessions.AttrAuthorizationRequest].(*sessions.AuthorizationRequest)
	require.True(t, ok)
	require.Equal(t, "https://idp.example.org/authorize", req.AuthorizationURI)
	require.Equal(t, testClientID, req.ClientID)
	require.Equal(t, []string{"openid", "profile"}, req.Scopes)
	require.Equal(t, map[string]any{"prompt": "consent"}, req.AdditionalParameters)
}

func TestCoerceDropsAuthorizationRequestMissingRequiredFields(t *testing.T) {
	f := setupTestFixture(t)

	attrs := map[string]any{
		sessions.AttrAuthorizationRequest: map[string]any{
			"redirectUri": testRedirectURI, // no authorizationUri, no clientId
		},
	}

	coerced, outcomes, err := f.coercer.Coerce(context.Background(), testClientID, attrs)
	require.NoError(t, err)
	require.Equal(t, sessions.CoercionDropped, outcomes[sessions.AttrAuthorizationRequest])
	require.NotContains(t, coerced, sessions.AttrAuthorizationRequest)
}

func TestCoerceDropsUnexpectedShapes(t *testing.T) {
	f := setupTestFixture(t)

	attrs := map[string]any{
		sessions.AttrAuthorizationRequest: 42,
		sessions.AttrPrincipal:            "not-a-principal",
	}

	coerced, outcomes, err := f.coercer.Coerce(context.Background(), testClientID, attrs)
	require.NoError(t, err)
	require.Equal(t, sessions.CoercionDropped, outcomes[sessions.AttrAuthorizationRequest])
	require.Equal(t, sessions.CoercionDropped, outcomes[sessions.AttrPrincipal])
	require.Empty(t, coerced)
}

func TestCoerceReconstructsBasicPrincipalFromNestedAccount(t *testing.T) {
	f := setupTestFixture(t)

	attrs := map[string]any{
		sessions.AttrPrincipal: map[string]any{
			"kind": "basic",
			"principal": map[string]any{
				"account": map[string]any{
					"id":             "acc-1",
					"login_id":       "jo@x.com",
					"email":          "jo@x.com",
					"status":         "active",
					"email_verified": true,
				},
			},
			"authorities": []any{"ROLE_USER", map[string]any{"authority": "ROLE_ADMIN"}, 42},
		},
	}

	coerced, outcomes, err := f.coercer.Coerce(context.Background(), testClientID, attrs)
	require.NoError(t, err)
	require.Equal(t, sessions.CoercionReconstructed, outcomes[sessions.AttrPrincipal])

	basic, ok := coerced[sessions.AttrPrincipal].(*sessions.BasicPrincipal)
	require.True(t, ok)
	require.Equal(t, "acc-1", basic.Account.ID)
	require.True(t, basic.Account.EmailVerified)
	// Bare strings and {authority: ...} maps are accepted; the 42 is skipped.
	require.Equal(t, []string{"ROLE_USER", "ROLE_ADMIN"}, basic.Authorities)
}

func TestCoerceDelegatesSsoClaimsToReconstructor(t *testing.T) {
	f := setupTestFixture(t)

	attrs := map[string]any{
		sessions.AttrPrincipal: map[string]any{
			"kind": "sso",
			"principal": map[string]any{
				"iss":   "https://accounts.google.com",
				"sub":   "g1",
				"email": "a@x.com",
			},
			"authorities": []any{"ROLE_USER"},
		},
	}

	coerced, outcomes, err := f.coercer.Coerce(context.Background(), testClientID, attrs)
	require.NoError(t, err)
	require.Equal(t, sessions.CoercionReconstructed, outcomes[sessions.AttrPrincipal])

	sso, ok := coerced[sessions.AttrPrincipal].(*sessions.SsoPrincipal)
	require.True(t, ok)
	require.Equal(t, "sso_g1", sso.Account.ID)
	require.Equal(t, "a@x.com", sso.Account.Email)
	require.Equal(t, []string{"ROLE_USER"}, sso.Authorities)
	require.Equal(t, 1, f.accountRepo.UpsertCount())
}

func TestCoercePropagatesIdentityExtractionFailure(t *testing.T) {
	f := setupTestFixture(t)

	attrs := map[string]any{
		sessions.AttrPrincipal: map[string]any{
			"principal": map[string]any{"locale": "en"},
		},
	}

	_, _, err := f.coercer.Coerce(context.Background(), testClientID, attrs)
	require.Error(t, err)
}

func TestCoerceDoesNotMutateInput(t *testing.T) {
	f := setupTestFixture(t)

	attrs := map[string]any{
		sessions.AttrAuthorizationRequest: map[string]any{"redirectUri": testRedirectURI},
	}

	_, _, err := f.coercer.Coerce(context.Background(), testClientID, attrs)
	require.NoError(t, err)
	require.Contains(t, attrs, sessions.AttrAuthorizationRequest)
}
