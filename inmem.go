package usersvc

import (
	"context"
	"sync"
	"time"
)

type accountRepository struct {
	mu       sync.RWMutex
	accounts map[ID]*Account
}

// NewAccountRepository returns an in-memory AccountRepository that enforces
// the same username uniqueness as the Mongo unique index.
func NewAccountRepository() AccountRepository {
	return &accountRepository{accounts: map[ID]*Account{}}
}

func (repo *accountRepository) Create(_ context.Context, acc *Account) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, v := range repo.accounts {
		if v.Username == acc.Username {
			return ErrDuplicate
		}
	}

	acc.ID = nextID()
	acc.CreatedAt = time.Now().UTC()
	stored := *acc
	repo.accounts[acc.ID] = &stored
	return nil
}

func (repo *accountRepository) FindByID(_ context.Context, id ID) (*Account, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if a, ok := repo.accounts[id]; ok {
		found := *a
		return &found, nil
	}
	return nil, ErrNotFound
}

func (repo *accountRepository) FindByName(_ context.Context, username string) (*Account, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, v := range repo.accounts {
		if v.Username == username {
			found := *v
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (repo *accountRepository) UpdatePassword(_ context.Context, id ID, hash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	a, ok := repo.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.Password = hash
	return nil
}

func (repo *accountRepository) IncrementFollowers(_ context.Context, id ID, delta int) (*Account, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	a, ok := repo.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.FollowerCount += delta
	updated := *a
	return &updated, nil
}

type edge struct {
	subscriber, subscribedTo ID
}

type subscriptionRepository struct {
	mu    sync.Mutex
	edges map[edge]Subscription
}

// NewSubscriptionRepository returns an in-memory SubscriptionRepository keyed
// by the ordered (subscriber, subscribed-to) pair.
func NewSubscriptionRepository() SubscriptionRepository {
	return &subscriptionRepository{edges: map[edge]Subscription{}}
}

func (repo *subscriptionRepository) Create(_ context.Context, s *Subscription) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	k := edge{s.SubscriberID, s.SubscribedToID}
	if _, ok := repo.edges[k]; ok {
		return ErrDuplicate
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	repo.edges[k] = *s
	return nil
}

func (repo *subscriptionRepository) Delete(_ context.Context, subscriberID, subscribedToID ID) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	k := edge{subscriberID, subscribedToID}
	if _, ok := repo.edges[k]; !ok {
		return ErrNotFound
	}
	delete(repo.edges, k)
	return nil
}
