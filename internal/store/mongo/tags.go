package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

// tagDoc extends the hashtag record with the ids of the messages that
// referenced it.
type tagDoc struct {
	ID         int    `bson:"_id"`
	Tag        string `bson:"tag"`
	SearchHits int    `bson:"search_hits"`
	MessageIDs []int  `bson:"message_ids"`
}

func (s *Store) GetOrCreate(ctx context.Context, tag string, messageID int) (*models.Hashtag, error) {
	var doc tagDoc
	err := s.tags.FindOne(ctx, bson.M{"tag": tag}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		id, idErr := s.nextID(ctx, "hashtags")
		if idErr != nil {
			return nil, fmt.Errorf("allocate hashtag id: %w", idErr)
		}
		doc = tagDoc{ID: id, Tag: tag, MessageIDs: []int{messageID}}
		if _, insErr := s.tags.InsertOne(ctx, doc); insErr != nil {
			// lost a race to another writer; re-read and fall through
			if !mongo.IsDuplicateKeyError(insErr) {
				return nil, insErr
			}
			if err := s.tags.FindOne(ctx, bson.M{"tag": tag}).Decode(&doc); err != nil {
				return nil, err
			}
		} else {
			return &models.Hashtag{ID: doc.ID, Tag: doc.Tag}, nil
		}
	} else if err != nil {
		return nil, err
	}
	_, err = s.tags.UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$addToSet": bson.M{"message_ids": messageID}})
	if err != nil {
		return nil, err
	}
	return &models.Hashtag{ID: doc.ID, Tag: doc.Tag, SearchHits: doc.SearchHits}, nil
}

func (s *Store) IncrementHits(ctx context.Context, tag string) error {
	res, err := s.tags.UpdateOne(ctx,
		bson.M{"tag": tag},
		bson.M{"$inc": bson.M{"search_hits": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrTagNotFound
	}
	return nil
}

func (s *Store) MessagesForTag(ctx context.Context, tag string) ([]*models.Message, error) {
	var doc tagDoc
	err := s.tags.FindOne(ctx, bson.M{"tag": tag}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(doc.MessageIDs) == 0 {
		return nil, nil
	}
	return s.findMessages(ctx, bson.M{"_id": bson.M{"$in": doc.MessageIDs}}, nil)
}

func (s *Store) TopTags(ctx context.Context, n int) ([]*models.Hashtag, error) {
	cur, err := s.tags.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "search_hits", Value: -1}}).
			SetLimit(int64(n)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []tagDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*models.Hashtag, 0, len(docs))
	for _, d := range docs {
		out = append(out, &models.Hashtag{ID: d.ID, Tag: d.Tag, SearchHits: d.SearchHits})
	}
	return out, nil
}
