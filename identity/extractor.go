// Package identity resynthesizes durable account records from the generic
// identity-claims maps that survive a session storage round trip.
package identity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Extractor pulls a stable user identifier out of a provider-specific
// identity-claims map. Lower priority values are consulted first.
type Extractor interface {
	// CanHandle reports whether the extractor recognises the claim shape
	CanHandle(claims map[string]any) bool

	// ExtractUserID returns the stable identifier, or "" when none is found
	ExtractUserID(claims map[string]any) string

	// Priority orders extractors within a chain; lower is tried first
	Priority() int
}

// Chain is a ranked set of extractors. Ranking is computed once at
// construction; extraction tries each member in order and returns the first
// non-empty result.
type Chain struct {
	extractors []Extractor
}

// NewChain sorts the given extractors ascending by priority. The sort is
// stable, so extractors sharing a priority keep their registration order.
func NewChain(extractors ...Extractor) *Chain {
	sorted := make([]Extractor, len(extractors))
	copy(sorted, extractors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &Chain{extractors: sorted}
}

// DefaultChain returns the chain used when no custom extractors are
// registered: the known providers plus the catch-all fallback.
func DefaultChain() *Chain {
	return NewChain(
		GoogleExtractor{},
		GitHubExtractor{},
		OIDCExtractor{},
		FallbackExtractor{},
	)
}

// ExtractUserID returns the first non-empty identifier produced by a member
// that can handle the claims, or "" when no member produces one.
func (c *Chain) ExtractUserID(claims map[string]any) string {
	for _, e := range c.extractors {
		if !e.CanHandle(claims) {
			continue
		}
		if id := e.ExtractUserID(claims); id != "" {
			return id
		}
	}
	return ""
}

// stringClaim reads a claim as a string. JSON numbers (GitHub user ids and the
// like) are rendered without a fractional part.
func stringClaim(claims map[string]any, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

// issuerClaim returns the iss claim, if any.
func issuerClaim(claims map[string]any) string {
	return stringClaim(claims, "iss")
}
