package fakeclientrepo

import (
	"context"
	"sync"

	"github.com/authcove/go-idp-sessions/clients"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

type FakeClientRepo struct {
	clients map[string]*clients.Client
	lock    sync.RWMutex
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		clients: make(map[string]*clients.Client),
	}
}

func (cr *FakeClientRepo) Upsert(client *clients.Client) {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	cr.clients[client.ID] = client
}

func (cr *FakeClientRepo) Get(_ context.Context, clientID string) (*clients.Client, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	client, ok := cr.clients[clientID]
	if !ok {
		return nil, nil
	}
	return client, nil
}
