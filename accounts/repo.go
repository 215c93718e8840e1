package accounts

import "context"

// Repo defines the externally-owned account lookup/save capability.
// Lookups return (nil, nil) when no account matches; errors are reserved for
// store failures.
type Repo interface {
	// GetByEmail retrieves an account by client and email
	GetByEmail(ctx context.Context, clientID, email string) (*Account, error)

	// GetByID retrieves an account by its identifier
	GetByID(ctx context.Context, id string) (*Account, error)

	// Upsert creates or updates an account
	Upsert(ctx context.Context, account *Account) error
}
