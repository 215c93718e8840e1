package identity

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
)

// ClaimsExtractor verifies a raw OIDC ID token and expands it into the
// generic claims map the extractor chain consumes. Sessions persisted during
// an SSO login sometimes survive with only the provider's raw id_token; this
// turns that back into usable identity claims.
type ClaimsExtractor struct {
	verifier *oidc.IDTokenVerifier
}

// NewClaimsExtractor discovers the issuer's keys over the network.
func NewClaimsExtractor(ctx context.Context, issuer, clientID string) (*ClaimsExtractor, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[NewClaimsExtractor] provider discovery failed")
	}
	return &ClaimsExtractor{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// NewClaimsExtractorWithKeySet builds an extractor around a caller-supplied
// key set (primarily for testing and air-gapped deployments).
func NewClaimsExtractorWithKeySet(issuer string, keySet oidc.KeySet, cfg *oidc.Config) *ClaimsExtractor {
	return &ClaimsExtractor{
		verifier: oidc.NewVerifier(issuer, keySet, cfg),
	}
}

// Claims verifies the raw ID token and returns its claims.
func (ce *ClaimsExtractor) Claims(ctx context.Context, rawIDToken string) (map[string]any, error) {
	idToken, err := ce.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}
	claims := map[string]any{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}
	return claims, nil
}
