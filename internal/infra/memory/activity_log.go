package memory

import (
	"context"
	"sync"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// ActivityLog keeps ledger entries in process memory.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []domain.Activity
}

func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

func (l *ActivityLog) Record(_ context.Context, entry domain.Activity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Recent returns up to limit entries for uid, newest first.
func (l *ActivityLog) Recent(_ context.Context, uid string, limit int) ([]domain.Activity, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.Activity
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].UserID == uid {
			out = append(out, l.entries[i])
		}
	}
	return out, nil
}
