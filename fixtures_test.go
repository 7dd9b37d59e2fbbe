package usersvc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jimiolaniyan/usersvc/auth"
)

const (
	testPassword = "Valid1@password"
	testSecret   = "test-secret"
)

type recordedEvent struct {
	name     string
	from, to ID
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *eventRecorder) record(name string, from, to ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{name: name, from: from, to: to})
}

func (e *eventRecorder) AccountRegistered(_ context.Context, id ID, _ string) {
	e.record("registered", id, "")
}

func (e *eventRecorder) PasswordChanged(_ context.Context, id ID) { e.record("password", id, "") }

func (e *eventRecorder) Subscribed(_ context.Context, from, to ID) { e.record("subscribed", from, to) }

func (e *eventRecorder) Unsubscribed(_ context.Context, from, to ID) {
	e.record("unsubscribed", from, to)
}

func (e *eventRecorder) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, ev := range e.events {
		out = append(out, ev.name)
	}
	return out
}

func newTestTokens() *auth.Tokens {
	return auth.NewTokens([]byte(testSecret), time.Hour)
}

func newTestService(events Events) *service {
	svc := NewService(NewAccountRepository(), NewSubscriptionRepository(), auth.NewBcryptHasher(4), newTestTokens(), events)
	return svc.(*service)
}

// registerAccount creates an account and returns its id and token.
func registerAccount(svc Service, username string) (ID, string) {
	s, err := svc.Register(context.Background(), Credentials{Username: username, Password: testPassword})
	if err != nil {
		panic(err)
	}
	return s.User.ID, s.Token
}

func followerCount(svc *service, id ID) int {
	a, err := svc.accounts.FindByID(context.Background(), id)
	if err != nil {
		return -1
	}
	return a.FollowerCount
}

func edgeCount(svc *service) int {
	repo := svc.subscriptions.(*subscriptionRepository)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return len(repo.edges)
}

var errStore = errors.New("store unavailable")

// failingAccounts fails every call with errStore.
type failingAccounts struct{}

func (failingAccounts) Create(context.Context, *Account) error { return errStore }
func (failingAccounts) FindByID(context.Context, ID) (*Account, error) {
	return nil, errStore
}
func (failingAccounts) FindByName(context.Context, string) (*Account, error) {
	return nil, errStore
}
func (failingAccounts) UpdatePassword(context.Context, ID, string) error { return errStore }
func (failingAccounts) IncrementFollowers(context.Context, ID, int) (*Account, error) {
	return nil, errStore
}

// racingAccounts misses every lookup but rejects every insert as a duplicate,
// as happens when two registrations for one username interleave.
type racingAccounts struct {
	AccountRepository
}

func (racingAccounts) FindByName(context.Context, string) (*Account, error) {
	return nil, ErrNotFound
}
func (racingAccounts) Create(context.Context, *Account) error { return ErrDuplicate }
