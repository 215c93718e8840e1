package sessions

// AuthorizationRequest is the descriptor of the authorization request that
// began the session's grant.
type AuthorizationRequest struct {
	AuthorizationURI     string         `json:"authorizationUri"`
	ClientID             string         `json:"clientId"`
	RedirectURI          string         `json:"redirectUri,omitempty"`
	Scopes               []string       `json:"scopes,omitempty"`
	State                string         `json:"state,omitempty"`
	AdditionalParameters map[string]any `json:"additionalParameters,omitempty"`
	Attributes           map[string]any `json:"attributes,omitempty"`
}
