package commands

import (
	"fmt"

	"github.com/mdthewzrd/chartscan/internal/calendar"
	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/marketdata"
	"github.com/mdthewzrd/chartscan/pkg/config"
	"github.com/mdthewzrd/chartscan/pkg/database"
	"github.com/mdthewzrd/chartscan/pkg/httputil"
	"github.com/mdthewzrd/chartscan/pkg/logger"
	"github.com/mdthewzrd/chartscan/pkg/redis"
)

// app bundles the wired application components the commands share.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    contracts.BarStore
	calendar *calendar.Service
	db       *database.DB
	redis    *redis.Client
}

// newApp loads config and wires the bar store per the configured
// provider, wrapping it in the Redis cache when one is available.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	a := &app{
		cfg:      cfg,
		log:      log,
		calendar: calendar.New(cfg.Scan.Holidays),
	}

	switch cfg.Market.Provider {
	case "postgres":
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.store = marketdata.NewPostgresStore(db.Pool)
		log.Info("Using postgres bar store")

	case "http":
		client := httputil.New(log)
		a.store = marketdata.NewHTTPStore(cfg, client, log)
		log.Info("Using HTTP bar store")

	default:
		return nil, fmt.Errorf("unknown market provider %q", cfg.Market.Provider)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rdb
	if rdb.Enabled() {
		cache := redis.NewCache(rdb, "chartscan")
		a.store = marketdata.NewCachedStore(a.store, cache, 0, log)
		log.Info("Session cache enabled")
	}

	return a, nil
}

// Close releases the app's connections.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
