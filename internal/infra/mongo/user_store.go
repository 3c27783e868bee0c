package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shanekizito/Thinkly/internal/domain"
)

const (
	watchBuffer       = 8
	watchPollInterval = 2 * time.Second
)

// UserStore persists users in MongoDB. Every write bumps the version field,
// which Update uses as a compare-and-swap guard.
type UserStore struct {
	coll *mongo.Collection
	log  *logrus.Entry
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{
		coll: db.Collection(usersCollection),
		log:  logrus.WithField("component", "mongo-users"),
	}
}

func (s *UserStore) Create(ctx context.Context, user domain.User) error {
	if user.Badges == nil {
		user.Badges = []string{}
	}
	_, err := s.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func (s *UserStore) Get(ctx context.Context, uid string) (domain.User, error) {
	return s.findOne(ctx, bson.M{"_id": uid})
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) FindByCustomerID(ctx context.Context, customerID string) (domain.User, error) {
	if customerID == "" {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"customerId": customerID})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var u domain.User
	err := s.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}

func (s *UserStore) Update(ctx context.Context, uid string, fn func(*domain.User) error) (domain.User, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := s.Get(ctx, uid)
		if err != nil {
			return domain.User{}, err
		}
		next := current.Clone()
		if err := fn(&next); err != nil {
			return domain.User{}, err
		}
		next.ID = uid
		next.Version = current.Version + 1

		res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": uid, "version": current.Version}, next)
		if err != nil {
			return domain.User{}, err
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
		s.log.WithField("uid", uid).WithField("attempt", attempt+1).Debug("version conflict, retrying")
	}
	return domain.User{}, domain.ErrConflict
}

func (s *UserStore) IncrementXP(ctx context.Context, uid string, delta int) (domain.User, error) {
	var u domain.User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": uid},
		bson.M{"$inc": bson.M{"xp": delta, "version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}

func (s *UserStore) AddBadge(ctx context.Context, uid, slug string) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": uid, "badges": bson.M{"$ne": slug}},
		bson.M{"$addToSet": bson.M{"badges": slug}, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return false, err
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	// no match: either the badge is owned or the user is missing
	if _, err := s.Get(ctx, uid); err != nil {
		return false, err
	}
	return false, nil
}

// Watch sends the current record, then follows a change stream. Deployments
// without change streams (standalone servers) fall back to polling.
func (s *UserStore) Watch(ctx context.Context, uid string) (<-chan domain.User, func(), error) {
	initial, err := s.Get(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan domain.User, watchBuffer)
	out <- initial

	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{"documentKey._id": uid}}}}
	stream, err := s.coll.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		s.log.WithError(err).Info("change streams unavailable, polling")
		go s.poll(ctx, uid, initial.Version, out)
	} else {
		go s.follow(ctx, stream, out)
	}
	return out, cancel, nil
}

func (s *UserStore) follow(ctx context.Context, stream *mongo.ChangeStream, out chan domain.User) {
	defer close(out)
	defer stream.Close(context.Background())
	for stream.Next(ctx) {
		var change struct {
			FullDocument *domain.User `bson:"fullDocument"`
		}
		if err := stream.Decode(&change); err != nil || change.FullDocument == nil {
			continue
		}
		send(ctx, out, *change.FullDocument)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		s.log.WithError(err).Warn("user change stream ended")
	}
}

func (s *UserStore) poll(ctx context.Context, uid string, version int64, out chan domain.User) {
	defer close(out)
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u, err := s.Get(ctx, uid)
			if err != nil {
				if ctx.Err() == nil {
					s.log.WithError(err).Warn("user poll failed")
				}
				continue
			}
			if u.Version != version {
				version = u.Version
				send(ctx, out, u)
			}
		}
	}
}

// send keeps only the latest snapshot when the reader is slow.
func send(ctx context.Context, out chan domain.User, u domain.User) {
	select {
	case out <- u:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- u:
	case <-ctx.Done():
	}
}
