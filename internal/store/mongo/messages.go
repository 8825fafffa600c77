package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

func (s *Store) Save(ctx context.Context, m *models.Message) error {
	if m.ID == 0 {
		id, err := s.nextID(ctx, "messages")
		if err != nil {
			return fmt.Errorf("allocate message id: %w", err)
		}
		m.ID = id
	}
	_, err := s.messages.InsertOne(ctx, m)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicateMessage
	}
	return err
}

func (s *Store) FindByID(ctx context.Context, id int) (*models.Message, error) {
	var m models.Message
	err := s.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) FindUndeliveredFor(ctx context.Context, userID int, since time.Time) ([]*models.Message, error) {
	filter := bson.M{
		"target_id":    userID,
		"is_broadcast": false,
		"is_group":     false,
		"created_at":   bson.M{"$gt": since},
	}
	return s.findMessages(ctx, filter, nil)
}

func (s *Store) FindBetween(ctx context.Context, userA, userB int) ([]*models.Message, error) {
	filter := bson.M{
		"is_broadcast": false,
		"is_group":     false,
		"$or": bson.A{
			bson.M{"sender_id": userA, "target_id": userB},
			bson.M{"sender_id": userB, "target_id": userA},
		},
	}
	return s.findMessages(ctx, filter, bson.D{{Key: "_id", Value: 1}})
}

func (s *Store) FindThread(ctx context.Context, rootID int) ([]*models.Message, error) {
	return s.findMessages(ctx,
		bson.M{"thread_root_id": rootID},
		bson.D{{Key: "created_at", Value: 1}})
}

func (s *Store) CountUnread(ctx context.Context, recipientID, senderID int) (int, error) {
	n, err := s.messages.CountDocuments(ctx, bson.M{
		"sender_id":    senderID,
		"target_id":    recipientID,
		"is_broadcast": false,
		"is_group":     false,
		"status":       bson.M{"$ne": "read"},
	})
	return int(n), err
}

func (s *Store) findMessages(ctx context.Context, filter bson.M, sort bson.D) ([]*models.Message, error) {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cur, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*models.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
