// Package events publishes account and subscription changes to NATS
// JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/jimiolaniyan/usersvc"
	"github.com/jimiolaniyan/usersvc/logger"
)

const (
	StreamName     = "USERS"
	SubjectPattern = "users.>"
)

const (
	SubjectAccountRegistered   = "users.account.registered"
	SubjectPasswordChanged     = "users.account.password_changed"
	SubjectSubscriptionCreated = "users.subscription.created"
	SubjectSubscriptionDeleted = "users.subscription.deleted"
)

const publishTimeout = 2 * time.Second

type AccountRegistered struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

type PasswordChanged struct {
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type SubscriptionChanged struct {
	SubscriberID   string    `json:"subscriber_id"`
	SubscribedToID string    `json:"subscribed_to_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher implements usersvc.Events. Publish failures are logged and never
// reach the caller.
type Publisher struct {
	js streamPublisher
	nc *nats.Conn
}

var _ usersvc.Events = (*Publisher)(nil)

// Connect dials url and makes sure the USERS stream exists.
func Connect(ctx context.Context, url string) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("usersvc"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPattern},
		Storage:  jetstream.FileStorage,
		Replicas: 1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return &Publisher{js: js, nc: nc}, nil
}

func newPublisher(js streamPublisher) *Publisher {
	return &Publisher{js: js}
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

func (p *Publisher) AccountRegistered(ctx context.Context, id usersvc.ID, username string) {
	p.publish(ctx, SubjectAccountRegistered, AccountRegistered{
		UserID: string(id), Username: username, OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) PasswordChanged(ctx context.Context, id usersvc.ID) {
	p.publish(ctx, SubjectPasswordChanged, PasswordChanged{UserID: string(id), OccurredAt: time.Now().UTC()})
}

func (p *Publisher) Subscribed(ctx context.Context, subscriberID, subscribedToID usersvc.ID) {
	p.publish(ctx, SubjectSubscriptionCreated, SubscriptionChanged{
		SubscriberID: string(subscriberID), SubscribedToID: string(subscribedToID), OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) Unsubscribed(ctx context.Context, subscriberID, subscribedToID usersvc.ID) {
	p.publish(ctx, SubjectSubscriptionDeleted, SubscriptionChanged{
		SubscriberID: string(subscriberID), SubscribedToID: string(subscribedToID), OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, event interface{}) {
	log := logger.FromContext(ctx)

	data, err := json.Marshal(event)
	if err != nil {
		log.Error("marshal event", "subject", subject, "error", err)
		return
	}

	// the request context may already be cancelled once the response is out
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ack, err := p.js.Publish(ctx, subject, data)
	if err != nil {
		log.Error("publish event", "subject", subject, "error", err)
		return
	}
	log.Debug("event published", "subject", subject, "seq", ack.Sequence)
}
