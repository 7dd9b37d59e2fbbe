package usersvc

import (
	"context"
	"errors"
	"time"

	"github.com/rs/xid"
)

type ID string

// Account is a registered user. Password holds the digest, never the plain
// text. FollowerCount is maintained incrementally by subscription
// transitions.
type Account struct {
	ID            ID
	Username      string
	Password      string
	FollowerCount int
	CreatedAt     time.Time
}

// Subscription is a directed subscriber -> subscribed-to edge.
type Subscription struct {
	SubscriberID   ID
	SubscribedToID ID
	CreatedAt      time.Time
}

// AccountRepository stores accounts. Create assigns the account's ID and
// CreatedAt and returns ErrDuplicate when the username is taken.
type AccountRepository interface {
	Create(ctx context.Context, acc *Account) error
	FindByID(ctx context.Context, id ID) (*Account, error)
	FindByName(ctx context.Context, username string) (*Account, error)
	UpdatePassword(ctx context.Context, id ID, hash string) error
	IncrementFollowers(ctx context.Context, id ID, delta int) (*Account, error)
}

// SubscriptionRepository stores edges. Create returns ErrDuplicate for an
// existing pair; Delete returns ErrNotFound when no edge matched.
type SubscriptionRepository interface {
	Create(ctx context.Context, s *Subscription) error
	Delete(ctx context.Context, subscriberID, subscribedToID ID) error
}

var (
	ErrInvalidID         = errors.New("invalid user ID format")
	ErrNotFound          = errors.New("user not found")
	ErrExistingUsername  = errors.New("username already exists")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSubscribeSelf     = errors.New("cannot subscribe to itself")
	ErrUnsubscribeSelf   = errors.New("cannot unsubscribe from itself")
	ErrTargetNotFound    = errors.New("target does not exist")
	ErrAlreadySubscribed = errors.New("already subscribed")
	ErrNotSubscribed     = errors.New("not subscribed")

	// ErrDuplicate is returned by repositories when a uniqueness constraint
	// rejects a write.
	ErrDuplicate = errors.New("duplicate key")
)

func nextID() ID {
	return ID(xid.New().String())
}

//IsValidID checks if a given id is valid based on the xid library definition of a valid id
// this method should change if we ever change our uid generation library
func IsValidID(id string) bool {
	if _, err := xid.FromString(id); err != nil {
		return false
	}
	return true
}
