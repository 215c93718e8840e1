package identity

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/authcove/go-idp-sessions/accounts"
	interrors "github.com/authcove/go-idp-sessions/internal/errors"
	"github.com/pkg/errors"
)

// syntheticIDPrefix marks accounts synthesized from SSO claims, keeping them
// out of the namespace of registration-created account ids.
const syntheticIDPrefix = "sso_"

// ExtractionError is raised when no extractor in the chain, including the
// fallback, can produce an identifier. It names the available claim keys so
// the unrecognised provider shape can be diagnosed.
type ExtractionError struct {
	ClaimKeys []string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no identity extractor produced a user id from claims with keys %v", e.ClaimKeys)
}

// Reconstructor finds-or-creates a durable account record from a generic
// identity-claims map, using a ranked extractor chain for the identifier.
type Reconstructor struct {
	chain           *Chain
	accounts        accounts.Repo
	claimsExtractor *ClaimsExtractor
	nowTime         func() time.Time
}

// ReconstructorOption defines a function type to modify the Reconstructor instance.
type ReconstructorOption func(*Reconstructor)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ReconstructorOption {
	return func(r *Reconstructor) {
		r.nowTime = nowFunc
	}
}

// WithClaimsExtractor enables expansion of a raw id_token claim into a full
// claims map before extraction.
func WithClaimsExtractor(ce *ClaimsExtractor) ReconstructorOption {
	return func(r *Reconstructor) {
		r.claimsExtractor = ce
	}
}

// NewReconstructor initializes a Reconstructor with the given chain and
// account repository.
func NewReconstructor(chain *Chain, accountRepo accounts.Repo, options ...ReconstructorOption) (*Reconstructor, error) {
	if chain == nil {
		return nil, errors.New("[NewReconstructor] chain is required")
	}
	if accountRepo == nil {
		return nil, errors.New("[NewReconstructor] account repo is required")
	}

	r := &Reconstructor{
		chain:    chain,
		accounts: accountRepo,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// FindOrCreateAccount resolves the claims map to a durable account:
// by (client, email) first to preserve identity continuity across logins,
// then by synthetic id, synthesizing and persisting a minimal account when
// neither lookup hits.
func (r *Reconstructor) FindOrCreateAccount(ctx context.Context, clientID string, claims map[string]any) (*accounts.Account, error) {
	claims, err := r.expandIDToken(ctx, claims)
	if err != nil {
		return nil, err
	}

	email := stringClaim(claims, "email")
	if email != "" {
		account, err := r.accounts.GetByEmail(ctx, clientID, email)
		if err != nil {
			return nil, interrors.Wrapf(err, "account lookup by email")
		}
		if account != nil {
			return account, nil
		}
	}

	userID := r.chain.ExtractUserID(claims)
	if userID == "" {
		return nil, &ExtractionError{ClaimKeys: claimKeys(claims)}
	}
	syntheticID := syntheticIDPrefix + userID

	account, err := r.accounts.GetByID(ctx, syntheticID)
	if err != nil {
		return nil, interrors.Wrapf(err, "account lookup by id")
	}
	if account != nil {
		return account, nil
	}

	account = &accounts.Account{
		ID:            syntheticID,
		ClientID:      clientID,
		LoginID:       loginID(claims, email),
		Email:         email,
		DisplayName:   displayName(claims, userID),
		Status:        accounts.StatusActive,
		EmailVerified: email != "",
		CreatedAt:     r.nowTime(),
	}
	if err := r.accounts.Upsert(ctx, account); err != nil {
		return nil, interrors.Wrapf(err, "persist synthesized account")
	}
	return account, nil
}

// expandIDToken replaces a claims map that carries only a raw id_token with
// the verified claims of that token, when a claims extractor is configured.
func (r *Reconstructor) expandIDToken(ctx context.Context, claims map[string]any) (map[string]any, error) {
	raw := stringClaim(claims, "id_token")
	if raw == "" || r.claimsExtractor == nil {
		return claims, nil
	}
	expanded, err := r.claimsExtractor.Claims(ctx, raw)
	if err != nil {
		return nil, interrors.Wrapf(err, "verify id_token claim")
	}
	return expanded, nil
}

func loginID(claims map[string]any, email string) string {
	if email != "" {
		return email
	}
	return providerID(claims) + "@sso.fallback"
}

// providerID names the issuing provider for synthetic logins, derived from
// the issuer host when one is present.
func providerID(claims map[string]any) string {
	iss := issuerClaim(claims)
	if iss == "" {
		return "sso"
	}
	if u, err := url.Parse(iss); err == nil && u.Host != "" {
		return u.Host
	}
	return iss
}

func displayName(claims map[string]any, userID string) string {
	for _, key := range []string{"name", "preferred_username", "login", "email"} {
		if v := stringClaim(claims, key); v != "" {
			return v
		}
	}
	return userID
}

func claimKeys(claims map[string]any) []string {
	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
