// Package sessions defines the authorization session record, its storage
// codec, and the attribute coercion that survives the JSON round trip.
package sessions

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Well-known attribute keys. A session's attribute map may carry at most one
// value under each.
const (
	AttrAuthorizationRequest = "authorization_request"
	AttrPrincipal            = "principal"
)

// GrantType identifies the authorization grant that produced a session.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantClientCredentials GrantType = "client_credentials"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantDeviceCode        GrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// Session is a stored OAuth2 authorization record: who consented to what,
// with which tokens. The identifier is assigned by the caller and globally
// unique. Tokens are added and rotated across saves as the grant progresses.
type Session struct {
	ID            string         // Globally unique identifier, assigned by caller
	ClientID      string         // Registered client reference, resolved externally
	PrincipalName string         // Name of the authenticated principal
	GrantType     GrantType      // Grant that produced this session
	Attributes    map[string]any // Generic attribute map; see Attr* keys
	State         string         // Optional state value from the authorization request

	AuthorizationCode *Token
	AccessToken       *AccessToken
	RefreshToken      *Token
	IDToken           *Token
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.New().String()
}

// SetAttribute stores an attribute value, allocating the map on first use.
func (s *Session) SetAttribute(key string, value any) {
	if s.Attributes == nil {
		s.Attributes = make(map[string]any)
	}
	s.Attributes[key] = value
}

// AuthorizationRequest returns the typed authorization-request attribute, if
// the session carries one.
func (s *Session) AuthorizationRequest() (*AuthorizationRequest, bool) {
	req, ok := s.Attributes[AttrAuthorizationRequest].(*AuthorizationRequest)
	return req, ok
}

// Principal returns the typed principal attribute, if the session carries one.
func (s *Session) Principal() (Principal, bool) {
	p, ok := s.Attributes[AttrPrincipal].(Principal)
	return p, ok
}

// CloneAttributes returns a shallow defensive copy of the attribute map.
func (s *Session) CloneAttributes() map[string]any {
	if s.Attributes == nil {
		return nil
	}
	return maps.Clone(s.Attributes)
}

// LatestTokenExpiry returns the latest expiry hint among the session's
// tokens, or the zero time when no token carries one.
func (s *Session) LatestTokenExpiry() time.Time {
	var latest time.Time
	for _, t := range s.tokenEntries() {
		if t == nil {
			continue
		}
		if exp := t.ExpiryHint(); exp != nil && exp.After(latest) {
			latest = *exp
		}
	}
	return latest
}

// IndexableToken is one value the store derives a secondary index from.
type IndexableToken struct {
	Type      TokenType
	Value     string
	ExpiresAt *time.Time // nil when the value has no expiry of its own
}

// IndexableTokens lists the state value and every non-nil token entry, in
// index probe order.
func (s *Session) IndexableTokens() []IndexableToken {
	indexable := make([]IndexableToken, 0, 5)
	if s.State != "" {
		indexable = append(indexable, IndexableToken{Type: TokenTypeState, Value: s.State})
	}
	for tokenType, t := range map[TokenType]*Token{
		TokenTypeCode:    s.AuthorizationCode,
		TokenTypeRefresh: s.RefreshToken,
		TokenTypeIDToken: s.IDToken,
	} {
		if t != nil {
			indexable = append(indexable, IndexableToken{Type: tokenType, Value: t.Value, ExpiresAt: t.ExpiryHint()})
		}
	}
	if s.AccessToken != nil {
		indexable = append(indexable, IndexableToken{
			Type:      TokenTypeAccess,
			Value:     s.AccessToken.Value,
			ExpiresAt: s.AccessToken.ExpiryHint(),
		})
	}
	return indexable
}

func (s *Session) tokenEntries() []*Token {
	entries := []*Token{s.AuthorizationCode, s.RefreshToken, s.IDToken}
	if s.AccessToken != nil {
		entries = append(entries, &s.AccessToken.Token)
	}
	return entries
}
