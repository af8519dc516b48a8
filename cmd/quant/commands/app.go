package commands

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/wonny/eds/backend/internal/brain"
	"github.com/wonny/eds/backend/internal/data/repos"
	"github.com/wonny/eds/backend/internal/external/finnhub"
	"github.com/wonny/eds/backend/internal/external/polygon"
	"github.com/wonny/eds/backend/internal/metrics"
	"github.com/wonny/eds/backend/internal/strategyconfig"
	"github.com/wonny/eds/backend/pkg/config"
	"github.com/wonny/eds/backend/pkg/database"
	"github.com/wonny/eds/backend/pkg/httputil"
	"github.com/wonny/eds/backend/pkg/logger"
	"github.com/wonny/eds/backend/pkg/redis"
)

// app holds the wired dependencies shared by the commands
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	location *time.Location

	earningsRepo *repos.EarningsRepository
	optionRepo   *repos.OptionRepository
	dailyRepo    *repos.DailySignalRepository
	intradayRepo *repos.IntradayRepository
	oiDeltaRepo  *repos.OIDeltaRepository

	orchestrator *brain.Orchestrator
}

// loadConfig reads --config (if set) then the environment
func loadConfig() (*config.Config, *logger.Logger, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", configFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if cfg.MetricsEnabled {
		metrics.Init()
	}

	return cfg, logger.New(cfg), nil
}

// newStorageApp connects the database and builds the repositories only.
// overrides 는 플래그 값을 config 에 반영
func newStorageApp(overrides ...func(*config.Config)) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	loc := cfg.Pipeline.Location()
	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		location:     loc,
		earningsRepo: repos.NewEarningsRepository(db.Pool, loc),
		optionRepo:   repos.NewOptionRepository(db.Pool),
		dailyRepo:    repos.NewDailySignalRepository(db.Pool),
		intradayRepo: repos.NewIntradayRepository(db.Pool),
		oiDeltaRepo:  repos.NewOIDeltaRepository(db.Pool),
	}, nil
}

// newApp wires config, storage, providers and the orchestrator
// 1. config/logger → 2. DB/Redis → 3. HTTP 클라이언트 + 레이트리밋 → 4. 프로바이더 → 5. 오케스트레이터
func newApp(overrides ...func(*config.Config)) (*app, error) {
	a, err := newStorageApp(overrides...)
	if err != nil {
		return nil, err
	}
	cfg, log := a.cfg, a.log

	a.redis, err = redis.New(cfg)
	if err != nil {
		// 캐시는 선택 사항
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		a.redis = nil
	}
	limiter := redis.NewRateLimiter(a.redis, "eds")

	polygonHTTP := httputil.New(cfg, log).
		WithLimiter(polygon.NewLimiter(cfg.Polygon.RequestsPerMinute)).
		WithRateLimiter(limiter, redis.PolygonRateLimit(cfg.Polygon.RequestsPerMinute))
	finnhubHTTP := httputil.New(cfg, log).
		WithLimiter(perMinute(cfg.Finnhub.RequestsPerMinute)).
		WithRateLimiter(limiter, redis.FinnhubRateLimit(cfg.Finnhub.RequestsPerMinute))

	market := polygon.NewClient(polygonHTTP, redis.NewCache(a.redis, "eds:polygon"), cfg.Polygon, log)
	earnings := finnhub.NewClient(finnhubHTTP, cfg.Finnhub, a.location, log)

	strategy, err := loadStrategy(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.orchestrator, err = brain.NewOrchestrator(brain.Deps{
		Market:       market,
		Earnings:     earnings,
		EarningsRepo: a.earningsRepo,
		Options:      a.optionRepo,
		Daily:        a.dailyRepo,
		Intraday:     a.intradayRepo,
		OIDeltas:     a.oiDeltaRepo,
	}, brain.Config{
		Location:     a.location,
		Workers:      cfg.Pipeline.Workers,
		DaysAhead:    cfg.Pipeline.DaysAhead,
		MaxEventDTE:  cfg.Pipeline.MaxEventDTE,
		SectorSymbol: cfg.Pipeline.SectorSymbol,
		LookbackDays: cfg.Pipeline.LookbackDays,
		OutDir:       cfg.Pipeline.OutDir,
	}, strategy, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"env":         cfg.Env,
		"timezone":    a.location.String(),
		"workers":     cfg.Pipeline.Workers,
		"redis":       a.redis.Enabled(),
		"config_hash": a.orchestrator.ConfigHash(),
	}).Info("Application initialized")

	return a, nil
}

// loadStrategy reads STRATEGY_PATH; without a file the env knobs override the defaults
func loadStrategy(cfg *config.Config) (*strategyconfig.Config, error) {
	if cfg.Pipeline.StrategyPath != "" {
		strategy, err := strategyconfig.LoadOrDefault(cfg.Pipeline.StrategyPath)
		if err != nil {
			return nil, fmt.Errorf("load strategy %s: %w", cfg.Pipeline.StrategyPath, err)
		}
		return strategy, nil
	}

	strategy := strategyconfig.Default()
	strategy.Normalize.WinsorizeStd = cfg.Pipeline.WinsorizeStd
	strategy.Intraday.Smoothing.EWMAAlpha = cfg.Pipeline.EWMAAlpha
	return strategy, nil
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
}

// Close releases the database and Redis connections
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// parseDateFlag parses YYYY-MM-DD, defaulting to def when empty
func parseDateFlag(raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", raw, err)
	}
	return d, nil
}
