package usersvc

import "context"

// Events receives notifications of completed state changes. Implementations
// must not fail the operation that produced the event.
type Events interface {
	AccountRegistered(ctx context.Context, id ID, username string)
	PasswordChanged(ctx context.Context, id ID)
	Subscribed(ctx context.Context, subscriberID, subscribedToID ID)
	Unsubscribed(ctx context.Context, subscriberID, subscribedToID ID)
}

// NopEvents discards every event.
type NopEvents struct{}

func (NopEvents) AccountRegistered(context.Context, ID, string) {}
func (NopEvents) PasswordChanged(context.Context, ID)           {}
func (NopEvents) Subscribed(context.Context, ID, ID)            {}
func (NopEvents) Unsubscribed(context.Context, ID, ID)          {}
