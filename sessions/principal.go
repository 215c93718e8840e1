package sessions

import (
	"encoding/json"

	"github.com/authcove/go-idp-sessions/accounts"
)

// PrincipalKind is the explicit discriminant written to the wire format, so
// decode never has to guess the variant from the map shape.
type PrincipalKind string

const (
	PrincipalKindBasic PrincipalKind = "basic" // Password-authenticated account
	PrincipalKindSSO   PrincipalKind = "sso"   // Provider-authenticated identity
)

// Principal is the closed principal variant a session may carry under
// AttrPrincipal: either a BasicPrincipal backed by a concrete account record,
// or an SsoPrincipal backed by an account resolved through the identity
// reconstructor.
type Principal interface {
	Kind() PrincipalKind
	Name() string
	GrantedAuthorities() []string
}

// BasicPrincipal is a principal backed by a password-authenticated account
// record already known to the system.
type BasicPrincipal struct {
	Account     *accounts.Account
	Authorities []string
	Details     map[string]any // Optional transport details (remote addr, session cookie id)
}

func (*BasicPrincipal) Kind() PrincipalKind { return PrincipalKindBasic }

func (p *BasicPrincipal) Name() string {
	if p.Account == nil {
		return ""
	}
	if p.Account.LoginID != "" {
		return p.Account.LoginID
	}
	return p.Account.Email
}

func (p *BasicPrincipal) GrantedAuthorities() []string { return p.Authorities }

// MarshalJSON writes the tagged wire shape with the account nested under
// principal.account.
func (p *BasicPrincipal) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"kind": PrincipalKindBasic,
		"principal": map[string]any{
			"account": p.Account,
		},
		"authorities": p.Authorities,
		"details":     p.Details,
	})
}

// SsoPrincipal is a principal backed by an account resolved or created from
// provider identity claims.
type SsoPrincipal struct {
	Account     *accounts.Account
	Claims      map[string]any // Provider identity claims the account was resolved from
	Authorities []string
	Details     map[string]any
}

func (*SsoPrincipal) Kind() PrincipalKind { return PrincipalKindSSO }

func (p *SsoPrincipal) Name() string {
	if p.Account != nil && p.Account.LoginID != "" {
		return p.Account.LoginID
	}
	if sub, ok := p.Claims["sub"].(string); ok {
		return sub
	}
	return ""
}

func (p *SsoPrincipal) GrantedAuthorities() []string { return p.Authorities }

// MarshalJSON writes the tagged wire shape with the raw claims under
// principal. The resolved account is not serialized: it is resynthesized from
// the claims on decode.
func (p *SsoPrincipal) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"kind":        PrincipalKindSSO,
		"principal":   p.Claims,
		"authorities": p.Authorities,
		"details":     p.Details,
	})
}

var (
	_ Principal = (*BasicPrincipal)(nil)
	_ Principal = (*SsoPrincipal)(nil)
)
