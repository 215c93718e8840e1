package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/authcove/go-idp-sessions/clients"
	"github.com/authcove/go-idp-sessions/internal/utils"
	"github.com/pkg/errors"
)

// Wire schema for the stored session document. Field names are the contract.
type sessionDoc struct {
	ID                     string          `json:"id"`
	RegisteredClientID     string          `json:"registeredClientId"`
	PrincipalName          string          `json:"principalName"`
	AuthorizationGrantType string          `json:"authorizationGrantType"`
	Attributes             map[string]any  `json:"attributes"`
	State                  *string         `json:"state"`
	AuthorizationCode      *tokenDoc       `json:"authorizationCode"`
	AccessToken            *accessTokenDoc `json:"accessToken"`
	RefreshToken           *tokenDoc       `json:"refreshToken"`
	OidcIDToken            *tokenDoc       `json:"oidcIdToken"`
}

type tokenDoc struct {
	TokenValue string         `json:"tokenValue"`
	IssuedAt   *time.Time     `json:"issuedAt"`
	ExpiresAt  *time.Time     `json:"expiresAt"`
	Metadata   map[string]any `json:"metadata"`
}

type accessTokenDoc struct {
	tokenDoc
	TokenType string   `json:"tokenType"`
	Scopes    []string `json:"scopes"`
}

// Codec converts a session to and from the single-JSON-document storage
// representation, invoking attribute coercion on the decode path.
type Codec struct {
	clients clients.Repo
	coercer *Coercer
}

// NewCodec initializes a Codec with the client-registration lookup and the
// attribute coercer.
func NewCodec(clientRepo clients.Repo, coercer *Coercer) (*Codec, error) {
	if clientRepo == nil {
		return nil, errors.New("[NewCodec] client repo is required")
	}
	if coercer == nil {
		return nil, errors.New("[NewCodec] coercer is required")
	}
	return &Codec{clients: clientRepo, coercer: coercer}, nil
}

// Serialize maps the session into the wire schema. The attribute map is
// defensively copied.
func (c *Codec) Serialize(session *Session) ([]byte, error) {
	doc := sessionDoc{
		ID:                     session.ID,
		RegisteredClientID:     session.ClientID,
		PrincipalName:          session.PrincipalName,
		AuthorizationGrantType: string(session.GrantType),
		Attributes:             session.CloneAttributes(),
		AuthorizationCode:      encodeToken(session.AuthorizationCode),
		RefreshToken:           encodeToken(session.RefreshToken),
		OidcIDToken:            encodeToken(session.IDToken),
	}
	if session.State != "" {
		doc.State = utils.Ptr(session.State)
	}
	if session.AccessToken != nil {
		tokenType := session.AccessToken.TokenType
		if tokenType == "" {
			tokenType = DefaultTokenType
		}
		doc.AccessToken = &accessTokenDoc{
			tokenDoc:  *encodeToken(&session.AccessToken.Token),
			TokenType: tokenType,
			Scopes:    session.AccessToken.Scopes,
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

// Deserialize parses the document, coerces the attribute map, and reassembles
// the session. Parse and structural failures return a DecodeError; a missing
// registered client is a fatal precondition failure.
func (c *Codec) Deserialize(ctx context.Context, document []byte) (*Session, error) {
	if strings.TrimSpace(string(document)) == "" {
		return nil, newDecodeError(document, errors.New("blank document"))
	}

	var doc sessionDoc
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, newDecodeError(document, err)
	}
	if doc.ID == "" || doc.RegisteredClientID == "" {
		return nil, newDecodeError(document, errors.New("missing id or registeredClientId"))
	}

	client, err := c.clients.Get(ctx, doc.RegisteredClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve registered client: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingRegisteredClient, doc.RegisteredClientID)
	}

	attributes, _, err := c.coercer.Coerce(ctx, doc.RegisteredClientID, doc.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to coerce session attributes: %w", err)
	}

	session := &Session{
		ID:                doc.ID,
		ClientID:          doc.RegisteredClientID,
		PrincipalName:     doc.PrincipalName,
		GrantType:         GrantType(doc.AuthorizationGrantType),
		Attributes:        attributes,
		State:             utils.Value(doc.State),
		AuthorizationCode: decodeToken(doc.AuthorizationCode),
		RefreshToken:      decodeToken(doc.RefreshToken),
		IDToken:           decodeToken(doc.OidcIDToken),
	}
	if doc.AccessToken != nil {
		tokenType := doc.AccessToken.TokenType
		if tokenType == "" {
			tokenType = DefaultTokenType
		}
		session.AccessToken = &AccessToken{
			Token:     *decodeToken(&doc.AccessToken.tokenDoc),
			TokenType: tokenType,
			Scopes:    doc.AccessToken.Scopes,
		}
	}
	return session, nil
}

func encodeToken(t *Token) *tokenDoc {
	if t == nil {
		return nil
	}
	return &tokenDoc{
		TokenValue: t.Value,
		IssuedAt:   t.IssuedAt,
		ExpiresAt:  t.ExpiresAt,
		Metadata:   t.Metadata,
	}
}

func decodeToken(doc *tokenDoc) *Token {
	if doc == nil {
		return nil
	}
	return &Token{
		Value:     doc.TokenValue,
		IssuedAt:  doc.IssuedAt,
		ExpiresAt: doc.ExpiresAt,
		Metadata:  doc.Metadata,
	}
}
