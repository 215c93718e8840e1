package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// DefaultTokenType is the access-token type label applied when none is set.
const DefaultTokenType = "Bearer"

// Token is one issued credential embedded in a session. The value is treated
// as a secret: it is stored in the session body but never appears in
// plaintext in index keys.
type Token struct {
	Value     string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
	Metadata  map[string]any
}

// AccessToken additionally carries the token-type label and granted scopes.
type AccessToken struct {
	Token
	TokenType string
	Scopes    []string
}

// Expired reports whether the token's expiry hint is in the past.
func (t *Token) Expired(now time.Time) bool {
	exp := t.ExpiryHint()
	return exp != nil && !exp.After(now)
}

var unverifiedParser = jwt.NewParser()

// ExpiryHint returns the token's expiry. When no explicit expiry was
// recorded but the value parses as a JWT with an exp claim, that claim is
// used instead; access and ID tokens issued by this system are JWTs, so this
// covers callers that omit expiry metadata.
func (t *Token) ExpiryHint() *time.Time {
	if t.ExpiresAt != nil {
		return t.ExpiresAt
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(t.Value, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	exp := claims.ExpiresAt.Time
	return &exp
}

// OAuth2Token converts the session's access and refresh entries into an
// oauth2.Token for handing to golang.org/x/oauth2 plumbing. Returns nil when
// the session has no access token.
func (s *Session) OAuth2Token() *oauth2.Token {
	if s.AccessToken == nil {
		return nil
	}
	tokenType := s.AccessToken.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	token := &oauth2.Token{
		AccessToken: s.AccessToken.Value,
		TokenType:   tokenType,
	}
	if exp := s.AccessToken.ExpiryHint(); exp != nil {
		token.Expiry = *exp
	}
	if s.RefreshToken != nil {
		token.RefreshToken = s.RefreshToken.Value
	}
	return token
}
