package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type filterDoc struct {
	UserID   int      `bson:"_id"`
	Keywords []string `bson:"keywords"`
}

func (s *Store) FiltersFor(ctx context.Context, userID int) ([]string, error) {
	var doc filterDoc
	err := s.filters.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Keywords, nil
}

func (s *Store) AddFilter(ctx context.Context, userID int, keyword string) error {
	_, err := s.filters.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"keywords": keyword}},
		options.Update().SetUpsert(true))
	return err
}

func (s *Store) RemoveFilter(ctx context.Context, userID int, keyword string) error {
	_, err := s.filters.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"keywords": keyword}})
	return err
}
