package usersvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()

	a := &Account{Username: "a@b.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, a))

	found, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	found.FollowerCount = 99

	again, err := repo.FindByName(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 0, again.FollowerCount)
}

func TestAccountRepository_UniqueUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()

	require.NoError(t, repo.Create(ctx, &Account{Username: "a@b.com"}))
	assert.ErrorIs(t, repo.Create(ctx, &Account{Username: "a@b.com"}), ErrDuplicate)
}

func TestAccountRepository_MissingAccount(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()

	_, err := repo.FindByID(ctx, nextID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, nextID(), "h"), ErrNotFound)
	_, err = repo.IncrementFollowers(ctx, nextID(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscriptionRepository_EdgesAreDirected(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository()
	a, b := nextID(), nextID()

	require.NoError(t, repo.Create(ctx, &Subscription{SubscriberID: a, SubscribedToID: b}))
	assert.ErrorIs(t, repo.Create(ctx, &Subscription{SubscriberID: a, SubscribedToID: b}), ErrDuplicate)
	assert.NoError(t, repo.Create(ctx, &Subscription{SubscriberID: b, SubscribedToID: a}))

	assert.NoError(t, repo.Delete(ctx, a, b))
	assert.ErrorIs(t, repo.Delete(ctx, a, b), ErrNotFound)
	assert.NoError(t, repo.Delete(ctx, b, a))
}
