package sessions

import "context"

// TokenType names one of the secondary indexes a session's tokens derive.
type TokenType string

const (
	TokenTypeState   TokenType = "state"
	TokenTypeCode    TokenType = "code"
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
	TokenTypeIDToken TokenType = "id_token"
)

// TokenTypeProbeOrder is the fixed order an untyped token lookup probes the
// indexes in.
var TokenTypeProbeOrder = []TokenType{
	TokenTypeState,
	TokenTypeCode,
	TokenTypeAccess,
	TokenTypeRefresh,
	TokenTypeIDToken,
}

// Repo defines the interface for session persistence. Absence is not an
// error: lookups return (nil, nil) when nothing matches. A single corrupted
// record degrades to absent on lookups rather than failing the caller.
type Repo interface {
	// Save persists the session body and rebuilds its secondary indexes,
	// removing any indexes a previously stored version derived.
	Save(ctx context.Context, session *Session) error

	// Delete removes the session body and all indexes derived from the
	// session's current tokens.
	Delete(ctx context.Context, session *Session) error

	// GetByID retrieves a session by its identifier.
	GetByID(ctx context.Context, id string) (*Session, error)

	// GetByToken retrieves the session holding the given token value. When
	// tokenType is empty, indexes are probed in TokenTypeProbeOrder and the
	// first hit wins.
	GetByToken(ctx context.Context, tokenValue string, tokenType TokenType) (*Session, error)
}
