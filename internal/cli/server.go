package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/auth"
	"github.com/shanekizito/Thinkly/internal/billing"
	"github.com/shanekizito/Thinkly/internal/config"
	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/generator"
	"github.com/shanekizito/Thinkly/internal/infra/memory"
	mongostore "github.com/shanekizito/Thinkly/internal/infra/mongo"
	pgstore "github.com/shanekizito/Thinkly/internal/infra/postgres"
	redisstore "github.com/shanekizito/Thinkly/internal/infra/redis"
	stripegw "github.com/shanekizito/Thinkly/internal/infra/stripe"
	"github.com/shanekizito/Thinkly/internal/reminders"
	transport "github.com/shanekizito/Thinkly/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the Thinkly API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type stores struct {
	users      app.UserRepository
	courses    app.CourseRepository
	challenges app.ChallengeRepository
	activity   app.ActivityLog
	closers    []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg)
	log := logrus.WithField("component", "server")

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clock := app.ClockIn(loc)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	st, err := openStores(runCtx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	hub := app.NewHub()
	var events app.EventPublisher = hub
	var locker app.Locker
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(runCtx).Err(); err != nil {
			return err
		}
		ttl := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		st.challenges = redisstore.NewChallengeCache(redisClient, st.challenges, ttl)
		locker = redisstore.NewLocker(redisClient)
		bus := redisstore.NewEventBus(redisClient, hub)
		events = bus
		go func() {
			if err := bus.Relay(runCtx); err != nil {
				log.WithError(err).Error("event relay stopped")
			}
		}()
		log.WithField("addr", cfg.Redis.Addr).Info("redis enabled")
	}

	gen, err := generator.New(runCtx, generatorOptions(cfg))
	if err != nil {
		return err
	}

	game := app.NewGamificationService(st.users, st.courses, st.activity, events, clock)
	challengeSvc := app.NewChallengeService(st.challenges, st.courses, st.users, gen, game, clock).WithLocker(locker)
	courseSvc := app.NewCourseService(st.courses, st.users, gen, game, coursePolicy(cfg), clock)

	scheduler, err := reminders.New(st.users, events, clock, loc)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.WithError(err).Warn("reminder scheduler shutdown")
		}
	}()
	settings := app.NewSettingsService(st.users, scheduler)

	authSvc := auth.NewService(st.users, cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL), clock)
	authSvc.OnLogin(func(u domain.User) {
		if err := settings.Arm(u); err != nil {
			log.WithError(err).WithField("uid", u.ID).Warn("reminder not armed")
		}
	})

	routes := transport.RouterConfig{
		Auth:           authSvc,
		AuthHandler:    transport.NewAuthHandler(authSvc),
		API:            transport.NewAPIHandler(st.users, game, challengeSvc, courseSvc, settings),
		WS:             transport.NewWSHandler(st.users, hub, challengeSvc, clock),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if cfg.Billing.SecretKey != "" {
		gateway := stripegw.NewGateway(cfg.Billing.SecretKey, cfg.Billing.WebhookSecret)
		svc := billing.NewService(st.users, gateway, cfg.Billing.Prices, billing.DefaultRetryPolicy(), clock)
		routes.Billing = billing.NewHandler(svc)
	} else {
		log.Info("billing disabled: no secret key configured")
	}

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(routes),
		ReadTimeout: 15 * time.Second,
		// websocket writes carry their own deadline
		WriteTimeout: 0,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting thinkly")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
			stopRun()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-runCtx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStores picks MongoDB when configured and memory otherwise; the activity
// ledger goes to Postgres when a URL is set.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	st := &stores{}
	log := logrus.WithField("component", "server")

	if cfg.Mongo.URI != "" {
		dbName := cfg.Mongo.Database
		if dbName == "" {
			dbName = "thinkly"
		}
		client, db, err := mongostore.Connect(ctx, cfg.Mongo.URI, dbName)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Disconnect(context.Background()) })
		st.users = mongostore.NewUserStore(db)
		st.courses = mongostore.NewCourseStore(db)
		st.challenges = mongostore.NewChallengeStore(db)
		log.WithField("database", dbName).Info("using mongodb")
	} else {
		st.users = memory.NewUserStore()
		st.courses = memory.NewCourseStore()
		st.challenges = memory.NewChallengeStore()
		log.Warn("no mongo uri configured, using in-memory store")
	}

	st.activity = memory.NewActivityLog()
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			st.close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		st.activity = pgstore.NewActivityLog(pool)
	}
	return st, nil
}

func coursePolicy(cfg config.Config) app.CoursePolicy {
	policy := app.DefaultCoursePolicy()
	if len(cfg.Courses.PresetTopics) > 0 {
		policy.PresetTopics = cfg.Courses.PresetTopics
	}
	if cfg.Courses.MaxActive > 0 {
		policy.MaxActiveCourses = cfg.Courses.MaxActive
	}
	if cfg.Courses.FreeLimit > 0 {
		policy.FreeCourseLimit = cfg.Courses.FreeLimit
	}
	policy.SubscriptionTerm = config.TTLDuration(cfg.Courses.SubscriptionTerm, policy.SubscriptionTerm)
	if cfg.Courses.DefaultLanguage != "" {
		policy.DefaultLanguage = cfg.Courses.DefaultLanguage
	}
	return policy
}
