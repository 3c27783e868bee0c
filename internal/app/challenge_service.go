package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/gamification"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	challengeLockTTL     = 30 * time.Second
	challengeLockRetries = 10
	challengeLockBackoff = 300 * time.Millisecond
)

// ChallengeService drives the daily challenge lifecycle ABSENT -> GENERATED -> ANSWERED.
type ChallengeService struct {
	challenges ChallengeRepository
	courses    CourseRepository
	users      UserRepository
	generator  ChallengeGenerator
	game       *GamificationService
	lock       Locker
	clock      Clock
	log        *logrus.Entry

	sf    singleflight.Group
	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewChallengeService(challenges ChallengeRepository, courses CourseRepository, users UserRepository, generator ChallengeGenerator, game *GamificationService, clock Clock) *ChallengeService {
	if clock == nil {
		clock = ClockIn(nil)
	}
	return &ChallengeService{
		challenges: challenges,
		courses:    courses,
		users:      users,
		generator:  generator,
		game:       game,
		clock:      clock,
		log:        logrus.WithField("component", "challenge"),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithLocker bounds duplicate generation across instances.
func (s *ChallengeService) WithLocker(lock Locker) *ChallengeService {
	s.lock = lock
	return s
}

// Today returns the user's challenge for the current day, generating it on first access.
func (s *ChallengeService) Today(ctx context.Context, uid string) (domain.DailyChallenge, error) {
	date := gamification.DateString(s.clock())
	id := domain.ChallengeID(uid, date)

	existing, err := s.challenges.Get(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrChallengeNotFound) {
		return domain.DailyChallenge{}, fmt.Errorf("load challenge: %w", err)
	}

	result, err, _ := s.sf.Do(id, func() (interface{}, error) {
		return s.generateOnce(ctx, uid, date, id)
	})
	if err != nil {
		return domain.DailyChallenge{}, err
	}
	return result.(domain.DailyChallenge), nil
}

func (s *ChallengeService) generateOnce(ctx context.Context, uid, date, id string) (domain.DailyChallenge, error) {
	if s.lock != nil {
		release, ok, err := s.acquire(ctx, id)
		switch {
		case err != nil:
			s.log.WithField("uid", uid).WithError(err).Warn("generation lock unavailable")
		case ok:
			defer release()
		default:
			// another instance generated it while we waited
			if c, err := s.challenges.Get(ctx, id); err == nil {
				return c, nil
			}
		}
	}

	if c, err := s.challenges.Get(ctx, id); err == nil {
		return c, nil
	}

	challenge := s.build(ctx, uid, date)
	stored, err := s.challenges.Create(ctx, challenge)
	if err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("store challenge: %w", err)
	}
	return stored, nil
}

func (s *ChallengeService) acquire(ctx context.Context, id string) (func(), bool, error) {
	key := "challenge:" + id
	for attempt := 0; attempt < challengeLockRetries; attempt++ {
		release, ok, err := s.lock.Acquire(ctx, key, challengeLockTTL)
		if err != nil || ok {
			return release, ok, err
		}
		if _, err := s.challenges.Get(ctx, id); err == nil {
			return nil, false, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(challengeLockBackoff):
		}
	}
	return nil, false, nil
}

// build never fails: any problem with courses or the generator yields the fallback question.
func (s *ChallengeService) build(ctx context.Context, uid, date string) domain.DailyChallenge {
	logger := s.log.WithField("uid", uid)
	challenge := domain.DailyChallenge{
		ID:        domain.ChallengeID(uid, date),
		UserID:    uid,
		Date:      date,
		CreatedAt: s.clock(),
	}

	fallback := func() domain.DailyChallenge {
		fb := gamification.FallbackChallenge()
		challenge.Question = fb.Question
		challenge.Options = fb.Options
		challenge.Answer = fb.Answer
		challenge.Topic = fb.Topic
		challenge.Reward = gamification.FallbackReward
		challenge.Fallback = true
		return challenge
	}

	courses, err := s.courses.ListByUser(ctx, uid)
	if err != nil {
		logger.WithError(err).Warn("courses unavailable, serving fallback challenge")
		return fallback()
	}
	if len(courses) == 0 || s.generator == nil {
		return fallback()
	}

	topic := courses[s.intn(len(courses))].Title
	generated, err := s.generator.GenerateChallenge(ctx, topic)
	if err != nil {
		logger.WithField("topic", topic).WithError(err).Warn("challenge generation failed, serving fallback")
		return fallback()
	}
	if generated.Topic == "" {
		generated.Topic = topic
	}

	challenge.Question = generated.Question
	challenge.Options = generated.Options
	challenge.Answer = generated.Answer
	challenge.Topic = generated.Topic
	challenge.Reward = gamification.ChallengeReward(generated.Topic)
	return challenge
}

func (s *ChallengeService) intn(n int) int {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.Intn(n)
}

// Submit answers today's challenge. The completed flag is claimed first so a
// second submission can never grant XP twice; the user mutation then runs as
// one atomic update, and the claim is reverted when that update fails.
func (s *ChallengeService) Submit(ctx context.Context, uid, option string) (domain.ChallengeResult, error) {
	now := s.clock()
	id := domain.ChallengeID(uid, gamification.DateString(now))

	challenge, err := s.challenges.Get(ctx, id)
	if err != nil {
		return domain.ChallengeResult{}, err
	}
	if challenge.State() == domain.ChallengeAnswered {
		return domain.ChallengeResult{}, domain.ErrChallengeCompleted
	}
	if _, err := s.challenges.MarkCompleted(ctx, id); err != nil {
		return domain.ChallengeResult{}, err
	}

	correct := option == challenge.Answer
	reward := 0
	if correct {
		reward = challenge.Reward
	}

	user, err := s.users.Update(ctx, uid, func(u *domain.User) error {
		next := gamification.ApplyAnswer(gamification.StreakState{
			Streak:        u.Streak,
			Days:          u.Days,
			LastCompleted: u.LastCompleted,
		}, now, correct)
		u.Streak = next.Streak
		u.Days = next.Days
		u.LastCompleted = next.LastCompleted
		u.XP += reward
		return nil
	})
	if err != nil {
		logger := s.log.WithField("uid", uid).WithError(err)
		if reopenErr := s.challenges.Reopen(context.WithoutCancel(ctx), id); reopenErr != nil {
			logger.WithField("reopen_error", reopenErr.Error()).Error("challenge answer lost: claim could not be reverted")
		} else {
			logger.Warn("challenge answer not applied, claim reverted")
		}
		return domain.ChallengeResult{}, fmt.Errorf("apply answer: %w", err)
	}

	result := domain.ChallengeResult{
		ChallengeID: id,
		Correct:     correct,
		Answer:      challenge.Answer,
		XPAwarded:   reward,
		XP:          user.XP,
		Level:       gamification.LevelOf(user.XP),
		Streak:      user.Streak,
		Days:        user.Days,
	}

	if s.game != nil {
		s.game.record(ctx, domain.Activity{
			UserID: uid,
			Kind:   domain.ActivityChallenge,
			XP:     reward,
			Metadata: map[string]string{
				"challenge": id,
				"correct":   strconv.FormatBool(correct),
				"topic":     challenge.Topic,
			},
		})
		s.game.publish(ctx, domain.Event{
			Type:   domain.EventChallengeAnswered,
			UserID: uid,
			XP:     reward,
		})
		counters, err := s.game.counters(ctx, user, false)
		if err != nil {
			s.log.WithField("uid", uid).WithError(err).Warn("badge counters unavailable")
		} else {
			result.Badges = s.game.AwardBadges(ctx, user, counters)
		}
	}
	return result, nil
}
