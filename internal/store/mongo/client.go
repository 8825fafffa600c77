// Package mongo implements the store contracts on MongoDB. Numeric ids
// come from a counters collection so they stay small, monotonic and
// >= 1 the way the rest of the system expects.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	users    *mongo.Collection
	groups   *mongo.Collection
	members  *mongo.Collection
	messages *mongo.Collection
	tags     *mongo.Collection
	filters  *mongo.Collection
	counters *mongo.Collection
}

func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func NewStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	s := &Store{
		users:    db.Collection("users"),
		groups:   db.Collection("groups"),
		members:  db.Collection("memberships"),
		messages: db.Collection("messages"),
		tags:     db.Collection("hashtags"),
		filters:  db.Collection("filters"),
		counters: db.Collection("counters"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureIndexes creates the unique tag index GetOrCreate's race recovery
// depends on. CreateOne is a no-op when the index already exists.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.tags.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tag", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
