package identity

import "strings"

// Priorities for the built-in extractors. Provider-specific extractors run
// before the generic OIDC one; the fallback always runs last.
const (
	PriorityGoogle   = 10
	PriorityGitHub   = 20
	PriorityOIDC     = 50
	PriorityFallback = 1000
)

// GoogleExtractor recognises Google-issued claims and prefers the sub claim,
// falling back to email.
type GoogleExtractor struct{}

func (GoogleExtractor) CanHandle(claims map[string]any) bool {
	return strings.Contains(issuerClaim(claims), "accounts.google.com")
}

func (GoogleExtractor) ExtractUserID(claims map[string]any) string {
	if sub := stringClaim(claims, "sub"); sub != "" {
		return sub
	}
	return stringClaim(claims, "email")
}

func (GoogleExtractor) Priority() int { return PriorityGoogle }

// GitHubExtractor recognises GitHub claims by issuer or by the login+id pair
// GitHub's user API returns, and prefers the numeric id over the login, since
// logins can be renamed.
type GitHubExtractor struct{}

func (GitHubExtractor) CanHandle(claims map[string]any) bool {
	if strings.Contains(issuerClaim(claims), "github.com") {
		return true
	}
	return stringClaim(claims, "login") != "" && stringClaim(claims, "id") != ""
}

func (GitHubExtractor) ExtractUserID(claims map[string]any) string {
	if id := stringClaim(claims, "id"); id != "" {
		return id
	}
	return stringClaim(claims, "login")
}

func (GitHubExtractor) Priority() int { return PriorityGitHub }

// OIDCExtractor handles any standard OIDC claim set carrying iss + sub.
type OIDCExtractor struct{}

func (OIDCExtractor) CanHandle(claims map[string]any) bool {
	return issuerClaim(claims) != "" && stringClaim(claims, "sub") != ""
}

func (OIDCExtractor) ExtractUserID(claims map[string]any) string {
	return stringClaim(claims, "sub")
}

func (OIDCExtractor) Priority() int { return PriorityOIDC }

// FallbackExtractor is the safety net tried last. It accepts any claim shape
// and walks the common identifier claims in preference order, skipping blanks.
type FallbackExtractor struct{}

func (FallbackExtractor) CanHandle(map[string]any) bool { return true }

func (FallbackExtractor) ExtractUserID(claims map[string]any) string {
	for _, key := range []string{"sub", "id", "username", "name", "email"} {
		if v := stringClaim(claims, key); v != "" {
			return v
		}
	}
	return ""
}

func (FallbackExtractor) Priority() int { return PriorityFallback }
