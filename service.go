package usersvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jimiolaniyan/usersvc/auth"
	"github.com/jimiolaniyan/usersvc/logger"
	"github.com/jimiolaniyan/usersvc/metrics"
)

type Service interface {
	Register(ctx context.Context, req Credentials) (Session, error)
	Login(ctx context.Context, req Credentials) (string, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) (Session, error)
	GetAccount(ctx context.Context, id string) (Profile, error)
	Subscribe(ctx context.Context, subscriberID, targetID string) (Profile, error)
	Unsubscribe(ctx context.Context, subscriberID, targetID string) error
}

// TokenIssuer signs the identity handed out after a successful credential
// check.
type TokenIssuer interface {
	Issue(id, username string) (string, error)
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	Username    string `json:"username"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// AccountRef is the public identity of an account.
type AccountRef struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
}

type Session struct {
	Token string
	User  AccountRef
}

type Profile struct {
	ID            ID     `json:"id"`
	Username      string `json:"username"`
	FollowerCount int    `json:"followerCount"`
}

type service struct {
	accounts      AccountRepository
	subscriptions SubscriptionRepository
	hasher        auth.Hasher
	tokens        TokenIssuer
	events        Events
}

// NewService wires the account operations. A nil events sink discards events.
func NewService(accounts AccountRepository, subscriptions SubscriptionRepository, hasher auth.Hasher, tokens TokenIssuer, events Events) Service {
	if events == nil {
		events = NopEvents{}
	}
	return &service{accounts: accounts, subscriptions: subscriptions, hasher: hasher, tokens: tokens, events: events}
}

func (svc *service) Register(ctx context.Context, req Credentials) (Session, error) {
	if _, err := svc.accounts.FindByName(ctx, req.Username); err == nil {
		return Session{}, ErrExistingUsername
	} else if !errors.Is(err, ErrNotFound) {
		return Session{}, fmt.Errorf("find account: %w", err)
	}

	hash, err := svc.hasher.Hash(req.Password)
	if err != nil {
		return Session{}, err
	}

	acc := &Account{Username: req.Username, Password: hash}
	if err := svc.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Session{}, ErrExistingUsername
		}
		return Session{}, fmt.Errorf("error saving account: %w", err)
	}

	token, err := svc.tokens.Issue(string(acc.ID), acc.Username)
	if err != nil {
		return Session{}, err
	}

	metrics.UsersRegistered.Inc()
	svc.events.AccountRegistered(ctx, acc.ID, acc.Username)

	return Session{Token: token, User: AccountRef{ID: acc.ID, Username: acc.Username}}, nil
}

func (svc *service) Login(ctx context.Context, req Credentials) (string, error) {
	acc, err := svc.verifyCredentials(ctx, req.Username, req.Password)
	if err != nil {
		return "", err
	}
	return svc.tokens.Issue(string(acc.ID), acc.Username)
}

// ChangePassword does not compare the new password with the old one; repeats
// are accepted.
func (svc *service) ChangePassword(ctx context.Context, req ChangePasswordRequest) (Session, error) {
	acc, err := svc.verifyCredentials(ctx, req.Username, req.OldPassword)
	if err != nil {
		return Session{}, err
	}

	hash, err := svc.hasher.Hash(req.NewPassword)
	if err != nil {
		return Session{}, err
	}

	if err := svc.accounts.UpdatePassword(ctx, acc.ID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("update password: %w", err)
	}

	token, err := svc.tokens.Issue(string(acc.ID), acc.Username)
	if err != nil {
		return Session{}, err
	}

	svc.events.PasswordChanged(ctx, acc.ID)

	return Session{Token: token, User: AccountRef{ID: acc.ID, Username: acc.Username}}, nil
}

func (svc *service) verifyCredentials(ctx context.Context, username, password string) (*Account, error) {
	acc, err := svc.accounts.FindByName(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if !svc.hasher.Compare(acc.Password, password) {
		return nil, ErrUnauthorized
	}
	return acc, nil
}

func (svc *service) GetAccount(ctx context.Context, id string) (Profile, error) {
	if !IsValidID(id) {
		return Profile{}, ErrInvalidID
	}

	acc, err := svc.accounts.FindByID(ctx, ID(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("find account: %w", err)
	}

	return profileFromAccount(acc), nil
}

// Subscribe creates the subscriber -> target edge, then increments the
// target's follower count. The two writes are not atomic.
func (svc *service) Subscribe(ctx context.Context, subscriberID, targetID string) (Profile, error) {
	if !IsValidID(targetID) {
		return Profile{}, ErrInvalidID
	}
	if subscriberID == targetID {
		return Profile{}, ErrSubscribeSelf
	}

	if _, err := svc.accounts.FindByID(ctx, ID(targetID)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, ErrTargetNotFound
		}
		return Profile{}, fmt.Errorf("find target: %w", err)
	}

	s := &Subscription{SubscriberID: ID(subscriberID), SubscribedToID: ID(targetID), CreatedAt: time.Now().UTC()}
	if err := svc.subscriptions.Create(ctx, s); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Profile{}, ErrAlreadySubscribed
		}
		return Profile{}, fmt.Errorf("create subscription: %w", err)
	}

	target, err := svc.accounts.IncrementFollowers(ctx, ID(targetID), 1)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, ErrTargetNotFound
		}
		return Profile{}, fmt.Errorf("increment followers: %w", err)
	}

	metrics.Subscriptions.WithLabelValues(metrics.ActionSubscribe).Inc()
	svc.events.Subscribed(ctx, s.SubscriberID, s.SubscribedToID)

	return profileFromAccount(target), nil
}

// Unsubscribe deletes the edge, then decrements the target's follower count.
// A count that drops below zero is reported, not clamped.
func (svc *service) Unsubscribe(ctx context.Context, subscriberID, targetID string) error {
	if !IsValidID(targetID) {
		return ErrInvalidID
	}
	if subscriberID == targetID {
		return ErrUnsubscribeSelf
	}

	if err := svc.subscriptions.Delete(ctx, ID(subscriberID), ID(targetID)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotSubscribed
		}
		return fmt.Errorf("delete subscription: %w", err)
	}

	log := logger.FromContext(ctx)
	target, err := svc.accounts.IncrementFollowers(ctx, ID(targetID), -1)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warn("unsubscribed from missing account", "subscriber_id", subscriberID, "target_id", targetID)
	case err != nil:
		return fmt.Errorf("decrement followers: %w", err)
	case target.FollowerCount < 0:
		metrics.FollowerCountAnomalies.Inc()
		log.Error("follower count below zero", "target_id", targetID, "follower_count", target.FollowerCount)
	}

	metrics.Subscriptions.WithLabelValues(metrics.ActionUnsubscribe).Inc()
	svc.events.Unsubscribed(ctx, ID(subscriberID), ID(targetID))

	return nil
}

func profileFromAccount(a *Account) Profile {
	return Profile{ID: a.ID, Username: a.Username, FollowerCount: a.FollowerCount}
}
