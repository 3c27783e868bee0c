package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// CourseStore persists courses in MongoDB.
type CourseStore struct {
	coll *mongo.Collection
}

func NewCourseStore(db *mongo.Database) *CourseStore {
	return &CourseStore{coll: db.Collection(coursesCollection)}
}

func (s *CourseStore) Get(ctx context.Context, id string) (domain.Course, error) {
	var c domain.Course
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return c, err
}

func (s *CourseStore) Save(ctx context.Context, course domain.Course) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": course.ID}, course, options.Replace().SetUpsert(true))
	return err
}

func (s *CourseStore) ListByUser(ctx context.Context, uid string) ([]domain.Course, error) {
	cur, err := s.coll.Find(ctx, bson.M{"userId": uid},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []domain.Course
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CourseStore) Update(ctx context.Context, id string, fn func(*domain.Course) error) (domain.Course, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return domain.Course{}, err
		}
		next := current.Clone()
		if err := fn(&next); err != nil {
			return domain.Course{}, err
		}
		next.ID = id
		next.Version = current.Version + 1

		res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id, "version": current.Version}, next)
		if err != nil {
			return domain.Course{}, err
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
	}
	return domain.Course{}, domain.ErrConflict
}

func (s *CourseStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}
