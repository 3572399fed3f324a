// Package main is the terminal tutor: one student, one study session at a
// time, with progress kept between runs.
//
// Layout follows the usual layering:
// - Domain: mastery, practice loop, stress ladder, daily plans
// - Application: the session orchestrator
// - Infrastructure: profile stores, cache and lock, content, event bus
// - Interface: the terminal REPL
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jee-coach/tutor/config"
	"github.com/jee-coach/tutor/internal/application/session"
	"github.com/jee-coach/tutor/internal/domain/content"
	"github.com/jee-coach/tutor/internal/domain/planning"
	"github.com/jee-coach/tutor/internal/domain/practice"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/internal/domain/wellbeing"
	"github.com/jee-coach/tutor/internal/infrastructure/catalog"
	"github.com/jee-coach/tutor/internal/infrastructure/messaging"
	"github.com/jee-coach/tutor/internal/infrastructure/persistence/guarded"
	"github.com/jee-coach/tutor/internal/infrastructure/persistence/postgres"
	"github.com/jee-coach/tutor/internal/infrastructure/persistence/redis"
	"github.com/jee-coach/tutor/internal/infrastructure/persistence/sqlite"
	"github.com/jee-coach/tutor/internal/interface/cli"
	"github.com/jee-coach/tutor/pkg/logger"
	"github.com/jee-coach/tutor/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FLAGS
// ══════════════════════════════════════════════════════════════════════════════

type flags struct {
	name        string
	exam        string
	hours       float64
	peak        string
	sessionMins int
	envFile     string
}

func parseFlags(args []string, errOut io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("tutor", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&f.name, "name", "", "student name; omit to resume the last student")
	fs.StringVar(&f.exam, "exam", "", "exam date for a new profile (YYYY-MM-DD)")
	fs.Float64Var(&f.hours, "hours", 0, "study hours available per day for a new profile")
	fs.StringVar(&f.peak, "peak", "", "energy peak for a new profile (morning, afternoon, evening, night)")
	fs.IntVar(&f.sessionMins, "session", 0, "preferred session length in minutes for a new profile")
	fs.StringVar(&f.envFile, "env", ".env", "optional env file")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. FLAGS AND CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	f, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	cfg, err := config.Load(f.envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	defer log.Sync()
	log.Info("starting tutor",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("store", cfg.Store.Driver),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PROFILE STORE
	// ─────────────────────────────────────────────────────────────────────────
	base, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var repo student.Repository = guarded.New(base, guarded.Options{Logger: log})

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer bus.Close()

	events := log.Named("events")
	if err := bus.SubscribeAll(func(e shared.Event) error {
		events.Debug("domain event",
			logger.String("type", string(e.EventType())),
			logger.String("aggregate_id", e.AggregateID()),
		)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to subscribe event logger: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (OPTIONAL): PROFILE CACHE, SESSION LOCK, EVENT MIRROR
	// ─────────────────────────────────────────────────────────────────────────
	var lock student.SessionLock
	if cfg.Redis.Enabled {
		cache, err := openRedis(cfg)
		if err != nil {
			log.Warn("redis unavailable, continuing without it", logger.Err(err))
		} else {
			defer cache.Close()
			lock = redis.NewSessionLock(cache)
			if cfg.Features.IsEnabled(config.FeatureProfileCache, "") {
				repo = redis.NewCachedRepository(repo, cache, log)
			}
			if cfg.Features.IsEnabled(config.FeatureEventMirror, "") {
				mirror := messaging.NewRedisMirror(cache.Client(), cfg.Redis.EventChannel)
				if err := bus.SubscribeAll(mirror.Handle); err != nil {
					return fmt.Errorf("failed to subscribe event mirror: %w", err)
				}
			}
			log.Info("redis connected", logger.String("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. CONTENT
	// ─────────────────────────────────────────────────────────────────────────
	bank, err := catalog.LoadBank(cfg.Content.QuestionsPath, log)
	if err != nil {
		return fmt.Errorf("failed to load question bank: %w", err)
	}
	static, err := catalog.LoadTheory(cfg.Content.TheoryPath, log)
	if err != nil {
		return fmt.Errorf("failed to load theory: %w", err)
	}
	lectures, err := catalog.LoadLectures(cfg.Content.LecturesPath, log)
	if err != nil {
		return fmt.Errorf("failed to load lectures: %w", err)
	}
	var theory content.TheoryProvider = static
	if cfg.Content.OpenAIKey != "" && cfg.Features.IsEnabled(config.FeatureLLMTheory, "") {
		model, err := catalog.NewOpenAIModel(cfg.Content.OpenAIKey, cfg.Content.OpenAIModel)
		if err != nil {
			log.Warn("theory model unavailable, using static theory", logger.Err(err))
		} else {
			theory = catalog.NewLLMTheory(model, catalog.LLMTheoryOptions{
				Questions:   bank,
				Fallback:    static,
				Logger:      log,
				Temperature: cfg.Content.LLMTemperature,
			})
		}
	}
	log.Info("content loaded",
		logger.Int("questions", bank.Len()),
		logger.Int("rejected", len(bank.Rejected())),
		logger.Int("theory_topics", static.Len()),
		logger.Int("lectures", lectures.Len()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SESSION ORCHESTRATOR
	// ─────────────────────────────────────────────────────────────────────────
	orch, err := session.New(sessionConfig(cfg), session.Dependencies{
		Profiles:  repo,
		Questions: bank,
		Theory:    theory,
		Lectures:  lectures,
		Lock:      lock,
		Events:    bus,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	profile, created, err := loadProfile(ctx, orch, repo, f)
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. TERMINAL
	// ─────────────────────────────────────────────────────────────────────────
	app, err := cli.New(cli.Options{
		Orchestrator: orch,
		Topics:       bank,
		Profile:      profile,
		Created:      created,
		Out:          out,
		Colour:       cfg.Features.IsEnabled(config.FeatureCLIColour, profile.ID.String()),
		Logger:       log,
		WatchEvery:   cfg.Tutoring.WatchEvery,
	})
	if err != nil {
		return err
	}
	if err := app.Run(ctx, in); err != nil {
		return err
	}

	m := bus.Metrics()
	log.Info("tutor stopped", logger.Int("events_failed", int(m.Failed)))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func setupLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		Output: os.Stderr,
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	}).Named(cfg.App.Name)
}

// openStore opens the configured profile store and returns its closer.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (student.Repository, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pg := postgres.DefaultConfig()
		pg.URL = cfg.Database.URL
		pg.MaxConns = int32(cfg.Database.MaxConns)
		pg.MinConns = int32(cfg.Database.MinConns)
		pg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		pg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
		pg.ConnectTimeout = cfg.Database.ConnectTimeout

		conn, err := postgres.NewConnection(ctx, pg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to migrate: %w", err)
		}
		log.Info("postgres connected")
		return postgres.NewProfileRepository(conn), conn.Close, nil

	default:
		store, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info("sqlite store opened", logger.String("path", cfg.Store.SQLitePath))
		return store, func() { store.Close() }, nil
	}
}

func openRedis(cfg *config.Config) (*redis.Cache, error) {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		rc.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.DialTimeout > 0 {
		rc.DialTimeout = cfg.Redis.DialTimeout
	}
	return redis.NewCache(rc)
}

func sessionConfig(cfg *config.Config) session.Config {
	t := cfg.Tutoring
	p := cfg.Planning
	return session.Config{
		Practice: practice.Config{
			StuckAfter:          t.StuckAfter,
			IncorrectToStuck:    t.IncorrectToStuck,
			MediumCorrectToHard: t.MediumCorrectToHard,
			CheckpointEvery:     t.CheckpointEvery,
		},
		Wellbeing: wellbeing.Config{
			LongSessionMins:    t.LongSessionMins,
			AccuracyDropPoints: t.AccuracyDropPoints,
			TrailingWindow:     t.TrailingWindow,
			RapidSwitchWindow:  t.RapidSwitchWindow,
			RapidSwitchTopics:  t.RapidSwitchTopics,
		},
		Planning: planning.Config{
			DefaultPYQCount:   p.DefaultPYQCount,
			TopicCount:        p.TopicCount,
			LowAccuracyBelow:  p.LowAccuracyBelow,
			HighAccuracyAbove: p.HighAccuracyAbove,
			LowDayFactor:      p.LowDayFactor,
			StrongDayFactor:   p.StrongDayFactor,
			MaxBlockHours:     p.MaxBlockHours,
			BreakMinutes:      p.BreakMinutes,
			MaxDailyHours:     p.MaxDailyHours,
			Subjects:          p.Subjects,
		},
		LockTTL:     t.LockTTL,
		EventWindow: t.EventWindow,
		PlanHistory: t.PlanHistory,
	}
}

// loadProfile resumes the named student, creating the profile on first use.
// Without a name the most recently active student is resumed.
func loadProfile(ctx context.Context, orch *session.Orchestrator, repo student.Repository, f flags) (*student.Profile, bool, error) {
	if f.name == "" {
		p, err := repo.LoadLatest(ctx)
		if errors.Is(err, shared.ErrProfileNotFound) {
			return nil, false, errors.New("no saved profile yet: start with -name and -exam")
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to load profile: %w", err)
		}
		return p, false, nil
	}

	params := student.NewProfileParams{
		Name:                 f.name,
		EnergyPeak:           student.EnergyPeak(f.peak),
		PreferredSessionMins: f.sessionMins,
	}
	if f.exam != "" {
		d, err := timeutil.ParseDate(f.exam)
		if err != nil {
			return nil, false, fmt.Errorf("invalid -exam date: %w", err)
		}
		params.ExamDate = d
	}
	if f.hours > 0 {
		params.DailyHours = []float64{f.hours}
	}

	p, created, err := orch.LoadOrCreate(ctx, params)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, created, nil
}
