package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/shanekizito/Thinkly/internal/domain"
)

const watchBuffer = 8

// UserStore is an in-memory implementation of app.UserRepository.
type UserStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	watchers map[string]map[chan domain.User]struct{}
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:    make(map[string]domain.User),
		watchers: make(map[string]map[chan domain.User]struct{}),
	}
}

func (s *UserStore) Create(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return domain.ErrEmailTaken
	}
	if user.Email != "" {
		for _, u := range s.users {
			if strings.EqualFold(u.Email, user.Email) {
				return domain.ErrEmailTaken
			}
		}
	}
	s.users[user.ID] = user.Clone()
	s.broadcastLocked(user.ID)
	return nil
}

func (s *UserStore) Get(_ context.Context, uid string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[uid]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u.Clone(), nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *UserStore) FindByCustomerID(_ context.Context, customerID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if customerID != "" && u.CustomerID == customerID {
			return u.Clone(), nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// Update runs fn under the store lock, so updates for a user are serialized.
func (s *UserStore) Update(_ context.Context, uid string, fn func(*domain.User) error) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[uid]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return domain.User{}, err
	}
	next.ID = uid
	next.Version = current.Version + 1
	s.users[uid] = next
	s.broadcastLocked(uid)
	return next.Clone(), nil
}

func (s *UserStore) IncrementXP(ctx context.Context, uid string, delta int) (domain.User, error) {
	return s.Update(ctx, uid, func(u *domain.User) error {
		u.XP += delta
		return nil
	})
}

func (s *UserStore) AddBadge(_ context.Context, uid, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return false, domain.ErrUserNotFound
	}
	if u.HasBadge(slug) {
		return false, nil
	}
	u = u.Clone()
	u.Badges = append(u.Badges, slug)
	u.Version++
	s.users[uid] = u
	s.broadcastLocked(uid)
	return true, nil
}

// Watch sends the current record first, then every stored change.
func (s *UserStore) Watch(_ context.Context, uid string) (<-chan domain.User, func(), error) {
	ch := make(chan domain.User, watchBuffer)

	s.mu.Lock()
	u, ok := s.users[uid]
	if !ok {
		s.mu.Unlock()
		return nil, nil, domain.ErrUserNotFound
	}
	set, ok := s.watchers[uid]
	if !ok {
		set = make(map[chan domain.User]struct{})
		s.watchers[uid] = set
	}
	set[ch] = struct{}{}
	ch <- u.Clone()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if set, ok := s.watchers[uid]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(s.watchers, uid)
			}
		}
	}
	return ch, cancel, nil
}

func (s *UserStore) broadcastLocked(uid string) {
	u := s.users[uid]
	for ch := range s.watchers[uid] {
		snapshot := u.Clone()
		select {
		case ch <- snapshot:
		default:
			// only the latest snapshot matters to watchers
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

// Watchers reports how many live watches uid has.
func (s *UserStore) Watchers(uid string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers[uid])
}
