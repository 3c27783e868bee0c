package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// CourseStore is an in-memory implementation of app.CourseRepository.
type CourseStore struct {
	mu      sync.RWMutex
	courses map[string]domain.Course
}

func NewCourseStore() *CourseStore {
	return &CourseStore{courses: make(map[string]domain.Course)}
}

func (s *CourseStore) Get(_ context.Context, id string) (domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return c.Clone(), nil
}

func (s *CourseStore) Save(_ context.Context, course domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[course.ID] = course.Clone()
	return nil
}

func (s *CourseStore) ListByUser(_ context.Context, uid string) ([]domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Course
	for _, c := range s.courses {
		if c.UserID == uid {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *CourseStore) Update(_ context.Context, id string, fn func(*domain.Course) error) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.courses[id]
	if !ok {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return domain.Course{}, err
	}
	next.ID = id
	next.Version = current.Version + 1
	s.courses[id] = next
	return next.Clone(), nil
}

func (s *CourseStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return domain.ErrCourseNotFound
	}
	delete(s.courses, id)
	return nil
}
