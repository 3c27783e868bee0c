package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// ActivityLog appends gamification events to the activity_events table.
type ActivityLog struct {
	pool *pgxpool.Pool
}

func NewActivityLog(pool *pgxpool.Pool) *ActivityLog {
	return &ActivityLog{pool: pool}
}

func (l *ActivityLog) Record(ctx context.Context, entry domain.Activity) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	meta := entry.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO activity_events (id, user_id, kind, xp, badge, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
		entry.ID, entry.UserID, string(entry.Kind), entry.XP, entry.Badge, string(raw), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for uid, newest first.
func (l *ActivityLog) Recent(ctx context.Context, uid string, limit int) ([]domain.Activity, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id::text, user_id, kind, xp, badge, metadata::text, created_at
		 FROM activity_events WHERE user_id=$1
		 ORDER BY created_at DESC LIMIT $2`, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		var (
			a    domain.Activity
			kind string
			meta string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &kind, &a.XP, &a.Badge, &meta, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Kind = domain.ActivityKind(kind)
		if err := json.Unmarshal([]byte(meta), &a.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
