package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// ChallengeStore persists one daily challenge document per user and day.
type ChallengeStore struct {
	coll *mongo.Collection
}

func NewChallengeStore(db *mongo.Database) *ChallengeStore {
	return &ChallengeStore{coll: db.Collection(challengesCollection)}
}

func (s *ChallengeStore) Get(ctx context.Context, id string) (domain.DailyChallenge, error) {
	var c domain.DailyChallenge
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.DailyChallenge{}, domain.ErrChallengeNotFound
	}
	return c, err
}

// Create inserts c; when another writer got there first the stored document wins.
func (s *ChallengeStore) Create(ctx context.Context, c domain.DailyChallenge) (domain.DailyChallenge, error) {
	_, err := s.coll.InsertOne(ctx, c)
	if err == nil {
		return c, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return s.Get(ctx, c.ID)
	}
	return domain.DailyChallenge{}, err
}

func (s *ChallengeStore) MarkCompleted(ctx context.Context, id string) (domain.DailyChallenge, error) {
	var c domain.DailyChallenge
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "completed": false},
		bson.M{"$set": bson.M{"completed": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return domain.DailyChallenge{}, err
	}
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return domain.DailyChallenge{}, getErr
	}
	return domain.DailyChallenge{}, domain.ErrChallengeCompleted
}

func (s *ChallengeStore) Reopen(ctx context.Context, id string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"completed": false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrChallengeNotFound
	}
	return nil
}
