package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/gamification"
	"github.com/shanekizito/Thinkly/internal/generator"
	"github.com/shanekizito/Thinkly/internal/infra/memory"
	mongostore "github.com/shanekizito/Thinkly/internal/infra/mongo"
	pgstore "github.com/shanekizito/Thinkly/internal/infra/postgres"
	pgmigrations "github.com/shanekizito/Thinkly/internal/infra/postgres/migrations"
	redisstore "github.com/shanekizito/Thinkly/internal/infra/redis"
)

func TestMongoStoresEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	uri, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	}, "27017/tcp", "mongodb://%s:%s")
	defer cleanup()

	client, db, err := mongostore.Connect(ctx, uri, "thinkly_test")
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	users := mongostore.NewUserStore(db)
	if err := users.Create(ctx, domain.User{ID: "u1", Email: "a@example.com", Level: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := users.Create(ctx, domain.User{ID: "u2", Email: "a@example.com", Level: 1}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected duplicate email rejection, got %v", err)
	}

	// concurrent CAS updates must not lose writes
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = users.Update(ctx, "u1", func(u *domain.User) error {
				u.Days++
				return nil
			})
		}()
	}
	wg.Wait()
	u, err := users.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Days < 1 || u.Days > 4 {
		t.Fatalf("unexpected days %d", u.Days)
	}

	u, err = users.IncrementXP(ctx, "u1", 600)
	if err != nil || u.XP != 600 {
		t.Fatalf("increment xp: xp=%d err=%v", u.XP, err)
	}

	added, err := users.AddBadge(ctx, "u1", gamification.BadgeWeekOne)
	if err != nil || !added {
		t.Fatalf("first add: added=%v err=%v", added, err)
	}
	added, err = users.AddBadge(ctx, "u1", gamification.BadgeWeekOne)
	if err != nil || added {
		t.Fatalf("second add: added=%v err=%v", added, err)
	}
	if _, err := users.AddBadge(ctx, "ghost", gamification.BadgeWeekOne); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	updates, stop, err := users.Watch(watchCtx, "u1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer stop()
	defer cancel()
	<-updates
	if _, err := users.IncrementXP(ctx, "u1", 5); err != nil {
		t.Fatalf("increment: %v", err)
	}
	select {
	case got := <-updates:
		if got.XP != 605 {
			t.Fatalf("expected xp 605 in watch, got %d", got.XP)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("watch did not deliver the change")
	}

	challenges := mongostore.NewChallengeStore(db)
	c := domain.DailyChallenge{ID: domain.ChallengeID("u1", "2024-03-10"), UserID: "u1", Date: "2024-03-10", Question: "first", Answer: "a"}
	if _, err := challenges.Create(ctx, c); err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	c.Question = "second"
	stored, err := challenges.Create(ctx, c)
	if err != nil || stored.Question != "first" {
		t.Fatalf("expected first challenge to win: %+v %v", stored, err)
	}
	if _, err := challenges.MarkCompleted(ctx, c.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := challenges.MarkCompleted(ctx, c.ID); !errors.Is(err, domain.ErrChallengeCompleted) {
		t.Fatalf("expected completed, got %v", err)
	}
	if err := challenges.Reopen(ctx, c.ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := challenges.MarkCompleted(ctx, c.ID); err != nil {
		t.Fatalf("complete after reopen: %v", err)
	}
	if _, err := challenges.MarkCompleted(ctx, "nobody_2024-03-10"); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	courses := mongostore.NewCourseStore(db)
	course := domain.Course{ID: domain.CourseID("u1", "Investing"), UserID: "u1", Title: "Investing",
		Lessons: []domain.Lesson{{ID: "l1", Title: "One"}, {ID: "l2", Title: "Two"}}, CreatedAt: time.Now()}
	if err := courses.Save(ctx, course); err != nil {
		t.Fatalf("save course: %v", err)
	}
	updated, err := courses.Update(ctx, course.ID, func(c *domain.Course) error {
		c.Lessons[0].Progress = 100
		c.Progress = gamification.CourseProgress(c.Lessons)
		return nil
	})
	if err != nil || updated.Progress != 50 {
		t.Fatalf("update course: progress=%d err=%v", updated.Progress, err)
	}
	list, err := courses.ListByUser(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %d %v", len(list), err)
	}
	if err := courses.Delete(ctx, course.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := courses.Delete(ctx, course.ID); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestActivityLogOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "thinkly", "POSTGRES_PASSWORD": "thinklypass", "POSTGRES_DB": "thinkly"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432/tcp", "postgres://thinkly:thinklypass@%s:%s/thinkly?sslmode=disable")
	defer cleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	log := pgstore.NewActivityLog(pool)
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	entries := []domain.Activity{
		{UserID: "u1", Kind: domain.ActivityXP, XP: 30, Metadata: map[string]string{"reason": "challenge"}, CreatedAt: base},
		{UserID: "u1", Kind: domain.ActivityBadge, Badge: gamification.BadgeFirstLesson, CreatedAt: base.Add(time.Minute)},
		{UserID: "u2", Kind: domain.ActivityXP, XP: 10, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := log.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, err := log.Recent(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Kind != domain.ActivityBadge || recent[1].Metadata["reason"] != "challenge" {
		t.Fatalf("unexpected order or metadata: %+v", recent)
	}
}

func TestDailyChallengeGeneratedOnceAcrossInstances(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}, "6379/tcp", "redis://%s:%s")
	defer cleanup()

	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := goredis.NewClient(opts)
	defer client.Close()

	clock := func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }
	users := memory.NewUserStore()
	courses := memory.NewCourseStore()
	backing := memory.NewChallengeStore()
	if err := users.Create(ctx, domain.User{ID: "u1", Email: "a@example.com", Level: 1}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	gen := generator.NewWithClient(generator.NewMockClient(), "mock")

	// two service instances share the store and the redis lock
	var services []*app.ChallengeService
	for i := 0; i < 2; i++ {
		hub := app.NewHub()
		game := app.NewGamificationService(users, courses, memory.NewActivityLog(), hub, clock)
		cache := redisstore.NewChallengeCache(client, backing, time.Minute)
		services = append(services, app.NewChallengeService(cache, courses, users, gen, game, clock).WithLocker(redisstore.NewLocker(client)))
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		seen  = map[string]struct{}{}
		today domain.DailyChallenge
		first error
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(svc *app.ChallengeService) {
			defer wg.Done()
			c, err := svc.Today(ctx, "u1")
			mu.Lock()
			defer mu.Unlock()
			if err != nil && first == nil {
				first = err
			}
			seen[c.Question] = struct{}{}
			today = c
		}(services[i%2])
	}
	wg.Wait()
	if first != nil {
		t.Fatalf("today: %v", first)
	}
	if len(seen) != 1 || backing.Count() != 1 {
		t.Fatalf("expected a single challenge, got %d questions and %d documents", len(seen), backing.Count())
	}

	res, err := services[0].Submit(ctx, "u1", today.Answer)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Correct || res.XPAwarded != today.Reward || res.Streak != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := services[1].Submit(ctx, "u1", today.Answer); !errors.Is(err, domain.ErrChallengeCompleted) {
		t.Fatalf("expected second answer to be rejected, got %v", err)
	}
}

func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest, port nat.Port, urlFormat string) (string, func()) {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf(urlFormat, host, mapped.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
