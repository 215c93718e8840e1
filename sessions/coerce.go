package sessions

import (
	"context"
	"maps"

	"github.com/authcove/go-idp-sessions/accounts"
	"github.com/authcove/go-idp-sessions/identity"
	"github.com/authcove/go-idp-sessions/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CoercionOutcome reports what happened to one well-known attribute during
// coercion, so callers and tests can tell "dropped" from "reconstructed"
// without inspecting logs.
type CoercionOutcome int

const (
	// CoercionPassed: the attribute was already in its typed shape.
	CoercionPassed CoercionOutcome = iota
	// CoercionReconstructed: the attribute was rebuilt from its generic
	// post-serialization shape.
	CoercionReconstructed
	// CoercionDropped: the attribute could not be reconstructed and was
	// removed from the map.
	CoercionDropped
)

// Coercer restores the two well-known session attributes from the generic
// map shape a JSON round trip produces. Coercion is best-effort: a value
// that cannot be reconstructed is dropped, never fatal. Identity extraction
// failures and account-store failures do propagate.
type Coercer struct {
	identities *identity.Reconstructor
}

// NewCoercer initializes a Coercer with the identity reconstructor used for
// SSO principals.
func NewCoercer(reconstructor *identity.Reconstructor) (*Coercer, error) {
	if reconstructor == nil {
		return nil, errors.New("[NewCoercer] reconstructor is required")
	}
	return &Coercer{identities: reconstructor}, nil
}

// Coerce returns a copy of the attribute map with the well-known attributes
// restored to typed form, plus the per-attribute outcomes. Absent keys are
// left absent.
func (c *Coercer) Coerce(ctx context.Context, clientID string, attributes map[string]any) (map[string]any, map[string]CoercionOutcome, error) {
	if attributes == nil {
		return nil, nil, nil
	}
	coerced := maps.Clone(attributes)
	outcomes := make(map[string]CoercionOutcome)

	if raw, ok := coerced[AttrAuthorizationRequest]; ok {
		outcomes[AttrAuthorizationRequest] = c.coerceAuthorizationRequest(coerced, raw)
	}
	if raw, ok := coerced[AttrPrincipal]; ok {
		outcome, err := c.coercePrincipal(ctx, clientID, coerced, raw)
		if err != nil {
			return nil, nil, err
		}
		outcomes[AttrPrincipal] = outcome
	}
	return coerced, outcomes, nil
}

func (c *Coercer) coerceAuthorizationRequest(attributes map[string]any, raw any) CoercionOutcome {
	switch v := raw.(type) {
	case *AuthorizationRequest:
		return CoercionPassed
	case map[string]any:
		req := reconstructAuthorizationRequest(v)
		if req == nil {
			return dropAttribute(attributes, AttrAuthorizationRequest, "missing authorizationUri or clientId")
		}
		attributes[AttrAuthorizationRequest] = req
		return CoercionReconstructed
	default:
		return dropAttribute(attributes, AttrAuthorizationRequest, "unexpected shape")
	}
}

// reconstructAuthorizationRequest requires authorizationUri and clientId;
// everything else defaults to empty.
func reconstructAuthorizationRequest(m map[string]any) *AuthorizationRequest {
	authorizationURI := utils.StringValue(m, "authorizationUri")
	clientID := utils.StringValue(m, "clientId")
	if authorizationURI == "" || clientID == "" {
		return nil
	}
	req := &AuthorizationRequest{
		AuthorizationURI:     authorizationURI,
		ClientID:             clientID,
		RedirectURI:          utils.StringValue(m, "redirectUri"),
		State:                utils.StringValue(m, "state"),
		AdditionalParameters: utils.MapValue(m, "additionalParameters"),
		Attributes:           utils.MapValue(m, "attributes"),
	}
	if scopes, ok := m["scopes"].([]any); ok {
		req.Scopes = utils.ToStringSlice(scopes)
	}
	return req
}

func (c *Coercer) coercePrincipal(ctx context.Context, clientID string, attributes map[string]any, raw any) (CoercionOutcome, error) {
	switch v := raw.(type) {
	case Principal:
		return CoercionPassed, nil
	case map[string]any:
		principal, err := c.reconstructPrincipal(ctx, clientID, v)
		if err != nil {
			return CoercionDropped, err
		}
		if principal == nil {
			return dropAttribute(attributes, AttrPrincipal, "unreconstructable principal shape"), nil
		}
		attributes[AttrPrincipal] = principal
		return CoercionReconstructed, nil
	default:
		return dropAttribute(attributes, AttrPrincipal, "unexpected shape"), nil
	}
}

// reconstructPrincipal distinguishes the two source shapes: a nested
// principal.account map is a password-authenticated account rebuilt directly
// from its fields; any other map is SSO identity claims delegated to the
// identity reconstructor.
func (c *Coercer) reconstructPrincipal(ctx context.Context, clientID string, m map[string]any) (Principal, error) {
	authorities := extractAuthorities(m["authorities"])
	details := utils.MapValue(m, "details")
	principalMap := utils.MapValue(m, "principal")

	if accountMap := utils.MapValue(principalMap, "account"); accountMap != nil {
		return &BasicPrincipal{
			Account:     reconstructAccount(accountMap),
			Authorities: authorities,
			Details:     details,
		}, nil
	}

	claims := principalMap
	if claims == nil {
		claims = m
	}
	if len(claims) == 0 {
		return nil, nil
	}
	account, err := c.identities.FindOrCreateAccount(ctx, clientID, claims)
	if err != nil {
		return nil, err
	}
	return &SsoPrincipal{
		Account:     account,
		Claims:      claims,
		Authorities: authorities,
		Details:     details,
	}, nil
}

func reconstructAccount(m map[string]any) *accounts.Account {
	account := &accounts.Account{
		ID:          utils.StringValue(m, "id"),
		ClientID:    utils.StringValue(m, "client_id"),
		LoginID:     utils.StringValue(m, "login_id"),
		Email:       utils.StringValue(m, "email"),
		DisplayName: utils.StringValue(m, "display_name"),
		Status:      accounts.Status(utils.StringValue(m, "status")),
	}
	if verified, ok := m["email_verified"].(bool); ok {
		account.EmailVerified = verified
	}
	return account
}

// extractAuthorities accepts a collection holding either bare strings or
// {authority: string} maps; unrecognized entries are skipped.
func extractAuthorities(raw any) []string {
	collection, ok := raw.([]any)
	if !ok {
		return nil
	}
	authorities := make([]string, 0, len(collection))
	for _, entry := range collection {
		switch v := entry.(type) {
		case string:
			authorities = append(authorities, v)
		case map[string]any:
			if authority := utils.StringValue(v, "authority"); authority != "" {
				authorities = append(authorities, authority)
			}
		}
	}
	if len(authorities) == 0 {
		return nil
	}
	return authorities
}

func dropAttribute(attributes map[string]any, key, reason string) CoercionOutcome {
	log.Warn().Str("attribute", key).Str("reason", reason).Msg("dropping unreconstructable session attribute")
	delete(attributes, key)
	return CoercionDropped
}
