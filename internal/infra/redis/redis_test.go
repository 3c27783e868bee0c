package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/infra/memory"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type countingRepo struct {
	app.ChallengeRepository
	mu   sync.Mutex
	gets int
}

func (r *countingRepo) Get(ctx context.Context, id string) (domain.DailyChallenge, error) {
	r.mu.Lock()
	r.gets++
	r.mu.Unlock()
	return r.ChallengeRepository.Get(ctx, id)
}

func sampleChallenge() domain.DailyChallenge {
	return domain.DailyChallenge{
		ID:       domain.ChallengeID("u1", "2024-03-10"),
		UserID:   "u1",
		Date:     "2024-03-10",
		Question: "What is the capital of France?",
		Options:  []string{"Paris", "London", "Berlin", "Madrid"},
		Answer:   "Paris",
		Reward:   30,
		Topic:    "General Knowledge",
	}
}

func TestChallengeCacheServesFromRedis(t *testing.T) {
	mr, client := newClient(t)
	ctx := context.Background()

	backing := memory.NewChallengeStore()
	if _, err := backing.Create(ctx, sampleChallenge()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo := &countingRepo{ChallengeRepository: backing}
	cache := NewChallengeCache(client, repo, time.Minute)

	got, err := cache.Get(ctx, "u1_2024-03-10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Answer != "Paris" || len(got.Options) != 4 {
		t.Fatalf("unexpected challenge %+v", got)
	}
	if !mr.Exists("challenge:u1_2024-03-10") {
		t.Fatalf("expected cache key to be set")
	}

	// Second call should hit cache, backing not touched.
	_, _ = cache.Get(ctx, "u1_2024-03-10")
	if repo.gets != 1 {
		t.Fatalf("expected one backing read, got %d", repo.gets)
	}
}

func TestChallengeCacheMissReturnsNotFound(t *testing.T) {
	_, client := newClient(t)
	cache := NewChallengeCache(client, memory.NewChallengeStore(), time.Minute)

	_, err := cache.Get(context.Background(), "nobody_2024-03-10")
	if !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestChallengeCacheCreateKeepsFirst(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()
	cache := NewChallengeCache(client, memory.NewChallengeStore(), time.Minute)

	first, err := cache.Create(ctx, sampleChallenge())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second := sampleChallenge()
	second.Question = "Another question"
	stored, err := cache.Create(ctx, second)
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if stored.Question != first.Question {
		t.Fatalf("expected first challenge to win, got %q", stored.Question)
	}
}

func TestChallengeCacheMarkCompletedRefreshesCopy(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()
	cache := NewChallengeCache(client, memory.NewChallengeStore(), time.Minute)

	if _, err := cache.Create(ctx, sampleChallenge()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := cache.MarkCompleted(ctx, "u1_2024-03-10"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := cache.Get(ctx, "u1_2024-03-10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Completed {
		t.Fatalf("expected cached copy to be completed")
	}
	if _, err := cache.MarkCompleted(ctx, "u1_2024-03-10"); !errors.Is(err, domain.ErrChallengeCompleted) {
		t.Fatalf("expected completed error, got %v", err)
	}
}

func TestChallengeCacheReopenDropsCompletedCopy(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()
	cache := NewChallengeCache(client, memory.NewChallengeStore(), time.Minute)

	if _, err := cache.Create(ctx, sampleChallenge()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := cache.MarkCompleted(ctx, "u1_2024-03-10"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := cache.Reopen(ctx, "u1_2024-03-10"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := cache.Get(ctx, "u1_2024-03-10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Completed {
		t.Fatalf("expected reopened challenge to be open")
	}
}

func TestLockerIsExclusive(t *testing.T) {
	mr, client := newClient(t)
	ctx := context.Background()
	locker := NewLocker(client)

	release, ok, err := locker.Acquire(ctx, "challenge:u1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, err := locker.Acquire(ctx, "challenge:u1", time.Minute); err != nil || ok {
		t.Fatalf("second acquire should fail: ok=%v err=%v", ok, err)
	}

	release()
	if mr.Exists("lock:challenge:u1") {
		t.Fatalf("expected lock to be released")
	}
	release2, ok, err := locker.Acquire(ctx, "challenge:u1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("reacquire: ok=%v err=%v", ok, err)
	}
	release2()
}

func TestLockerReleaseKeepsForeignLease(t *testing.T) {
	mr, client := newClient(t)
	ctx := context.Background()
	locker := NewLocker(client)

	release, ok, _ := locker.Acquire(ctx, "k", time.Second)
	if !ok {
		t.Fatalf("expected acquire")
	}
	// lease expired and another holder took it
	mr.FastForward(2 * time.Second)
	if err := mr.Set("lock:k", "someone-else"); err != nil {
		t.Fatalf("set: %v", err)
	}
	release()
	if got, _ := mr.Get("lock:k"); got != "someone-else" {
		t.Fatalf("foreign lease was removed, got %q", got)
	}
}

func TestEventBusRelaysToLocalHub(t *testing.T) {
	mr, client := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := app.NewHub()
	events, unsubscribe := hub.Subscribe("u1")
	defer unsubscribe()

	bus := NewEventBus(client, hub)
	done := make(chan error, 1)
	go func() { done <- bus.Relay(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumSub(eventsChannel)[eventsChannel] == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("relay never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	bus.Publish(ctx, domain.Event{Type: domain.EventLevelUp, UserID: "u1", Level: 2})

	select {
	case ev := <-events:
		if ev.Type != domain.EventLevelUp || ev.Level != 2 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event not relayed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("relay did not stop")
	}
}

func TestEventBusFallsBackToLocal(t *testing.T) {
	mr, client := newClient(t)
	hub := app.NewHub()
	events, unsubscribe := hub.Subscribe("u1")
	defer unsubscribe()

	bus := NewEventBus(client, hub)
	mr.Close()

	bus.Publish(context.Background(), domain.Event{Type: domain.EventBadgeEarned, UserID: "u1", Badge: "dedicated"})
	select {
	case ev := <-events:
		if ev.Badge != "dedicated" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected local delivery")
	}
}
