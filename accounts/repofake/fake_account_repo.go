package fakeaccountrepo

import (
	"context"
	"sync"

	"github.com/authcove/go-idp-sessions/accounts"
	"github.com/google/uuid"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

type FakeAccountRepo struct {
	accounts map[string]*accounts.Account
	emailIds map[string]string // "clientID|email" to account id
	upserts  int
	lock     sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*accounts.Account),
		emailIds: make(map[string]string),
	}
}

func (ar *FakeAccountRepo) Upsert(_ context.Context, account *accounts.Account) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	ar.accounts[account.ID] = account
	if account.Email != "" {
		ar.emailIds[emailKey(account.ClientID, account.Email)] = account.ID
	}
	ar.upserts++
	return nil
}

func (ar *FakeAccountRepo) GetByEmail(_ context.Context, clientID, email string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	id, ok := ar.emailIds[emailKey(clientID, email)]
	if !ok {
		return nil, nil
	}
	return ar.accounts[id], nil
}

func (ar *FakeAccountRepo) GetByID(_ context.Context, id string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	account, ok := ar.accounts[id]
	if !ok {
		return nil, nil
	}
	return account, nil
}

// UpsertCount reports how many times Upsert was called, for duplicate-creation
// assertions in tests.
func (ar *FakeAccountRepo) UpsertCount() int {
	ar.lock.RLock()
	defer ar.lock.RUnlock()
	return ar.upserts
}

func emailKey(clientID, email string) string {
	return clientID + "|" + email
}
