package redisrepo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/authcove/go-idp-sessions/sessions"
)

// bodyKey addresses the session document itself.
func (r *Repo) bodyKey(id string) string {
	return r.keyPrefix + id
}

// indexKey addresses one secondary index entry. Token values never appear in
// plaintext in a key: only their one-way hash does, to bound exposure if the
// key space leaks. The state value is not a credential and is kept raw.
func (r *Repo) indexKey(tokenType sessions.TokenType, value string) string {
	if tokenType == sessions.TokenTypeState {
		return fmt.Sprintf("%s:%s:%s", r.idxPrefix, tokenType, value)
	}
	return fmt.Sprintf("%s:%s:%s", r.idxPrefix, tokenType, hashToken(value))
}

func hashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
