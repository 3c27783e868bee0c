package memory

import (
	"context"
	"sync"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// ChallengeStore is an in-memory implementation of app.ChallengeRepository.
type ChallengeStore struct {
	mu         sync.RWMutex
	challenges map[string]domain.DailyChallenge
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{challenges: make(map[string]domain.DailyChallenge)}
}

func (s *ChallengeStore) Get(_ context.Context, id string) (domain.DailyChallenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[id]
	if !ok {
		return domain.DailyChallenge{}, domain.ErrChallengeNotFound
	}
	return clone(c), nil
}

func (s *ChallengeStore) Create(_ context.Context, c domain.DailyChallenge) (domain.DailyChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.challenges[c.ID]; ok {
		return clone(existing), nil
	}
	s.challenges[c.ID] = clone(c)
	return clone(c), nil
}

func (s *ChallengeStore) MarkCompleted(_ context.Context, id string) (domain.DailyChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return domain.DailyChallenge{}, domain.ErrChallengeNotFound
	}
	if c.Completed {
		return domain.DailyChallenge{}, domain.ErrChallengeCompleted
	}
	c.Completed = true
	s.challenges[id] = c
	return clone(c), nil
}

func (s *ChallengeStore) Reopen(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return domain.ErrChallengeNotFound
	}
	c.Completed = false
	s.challenges[id] = c
	return nil
}

// Count reports how many challenges are stored.
func (s *ChallengeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.challenges)
}

func clone(c domain.DailyChallenge) domain.DailyChallenge {
	c.Options = append([]string(nil), c.Options...)
	return c
}
