package clients

import "context"

// Repo is the injected client-registration lookup. Get returns (nil, nil)
// when no client is registered under the id.
type Repo interface {
	Get(ctx context.Context, clientID string) (*Client, error)
}
