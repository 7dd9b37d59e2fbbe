package usersvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoAccountRepository struct {
	collection *mongo.Collection
}

type dbAccount struct {
	ID            ID        `bson:"_id"`
	Username      string    `bson:"username"`
	Password      string    `bson:"password"`
	FollowerCount int       `bson:"followerCount"`
	CreatedAt     time.Time `bson:"createdAt"`
}

// NewMongoAccountRepository returns an AccountRepository backed by c. It
// ensures the unique username index exists.
func NewMongoAccountRepository(ctx context.Context, c *mongo.Collection) (AccountRepository, error) {
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create username index: %w", err)
	}
	return &mongoAccountRepository{collection: c}, nil
}

func (m *mongoAccountRepository) Create(ctx context.Context, acc *Account) error {
	acc.ID = nextID()
	acc.CreatedAt = time.Now().UTC()

	dba := dbAccountFromAccount(acc)
	if _, err := m.collection.InsertOne(ctx, &dba); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (m *mongoAccountRepository) FindByID(ctx context.Context, id ID) (*Account, error) {
	return m.findAccountBy(ctx, "_id", string(id))
}

func (m *mongoAccountRepository) FindByName(ctx context.Context, username string) (*Account, error) {
	return m.findAccountBy(ctx, "username", username)
}

func (m *mongoAccountRepository) findAccountBy(ctx context.Context, key string, val string) (*Account, error) {
	var dba dbAccount
	err := m.collection.FindOne(ctx, bson.M{key: val}).Decode(&dba)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	acc := accountFromDBAccount(dba)
	return &acc, nil
}

func (m *mongoAccountRepository) UpdatePassword(ctx context.Context, id ID, hash string) error {
	res, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": hash}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *mongoAccountRepository) IncrementFollowers(ctx context.Context, id ID, delta int) (*Account, error) {
	var dba dbAccount
	err := m.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"followerCount": delta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&dba)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	acc := accountFromDBAccount(dba)
	return &acc, nil
}

func dbAccountFromAccount(a *Account) dbAccount {
	return dbAccount{a.ID, a.Username, a.Password, a.FollowerCount, a.CreatedAt}
}

func accountFromDBAccount(a dbAccount) Account {
	return Account{a.ID, a.Username, a.Password, a.FollowerCount, a.CreatedAt}
}

type mongoSubscriptionRepository struct {
	collection *mongo.Collection
}

type dbSubscription struct {
	SubscriberID   ID        `bson:"subscriberId"`
	SubscribedToID ID        `bson:"subscribedToId"`
	CreatedAt      time.Time `bson:"createdAt"`
}

// NewMongoSubscriptionRepository returns a SubscriptionRepository backed by
// c. It ensures the unique (subscriberId, subscribedToId) index exists.
func NewMongoSubscriptionRepository(ctx context.Context, c *mongo.Collection) (SubscriptionRepository, error) {
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "subscriberId", Value: 1}, {Key: "subscribedToId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription index: %w", err)
	}
	return &mongoSubscriptionRepository{collection: c}, nil
}

func (m *mongoSubscriptionRepository) Create(ctx context.Context, s *Subscription) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	dbs := dbSubscription{s.SubscriberID, s.SubscribedToID, s.CreatedAt}
	if _, err := m.collection.InsertOne(ctx, &dbs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (m *mongoSubscriptionRepository) Delete(ctx context.Context, subscriberID, subscribedToID ID) error {
	res, err := m.collection.DeleteOne(ctx, bson.M{"subscriberId": subscriberID, "subscribedToId": subscribedToID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
