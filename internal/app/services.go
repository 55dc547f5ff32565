package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumictl/internal/api"
	"github.com/dokzlo13/lumictl/internal/config"
	"github.com/dokzlo13/lumictl/internal/db"
	"github.com/dokzlo13/lumictl/internal/device"
	"github.com/dokzlo13/lumictl/internal/eventbus"
	"github.com/dokzlo13/lumictl/internal/i18n"
	"github.com/dokzlo13/lumictl/internal/ledger"
	"github.com/dokzlo13/lumictl/internal/metrics"
	"github.com/dokzlo13/lumictl/internal/session"
	"github.com/dokzlo13/lumictl/internal/storage/kv"
	"github.com/dokzlo13/lumictl/internal/store"
	"github.com/dokzlo13/lumictl/internal/theme"
)

// PreferencesBucket holds theme and language.
const PreferencesBucket = "preferences"

// themePollInterval is how often the system color scheme is re-read.
const themePollInterval = 5 * time.Second

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB      *db.DB
	KV      *kv.Manager
	Metrics *metrics.Metrics

	// Preferences
	Session    *session.Session
	Theme      *theme.Manager
	Translator *i18n.Translator

	// Remote API and local cache
	API      *api.Client
	Registry *store.Registry
	Bus      *eventbus.Bus

	// Local devices. Ledger is nil without a database.
	Device *device.Controller
	Ledger *ledger.Ledger

	// High-level services
	Sync    *SyncService
	Streams *StreamService
	Events  *EventService
	Health  *HealthService
}

// NewServices creates all services with proper dependency injection.
// A database that cannot be opened degrades to in-memory preferences.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Database.Path).Msg("Preferences database unavailable, nothing will be remembered")
		s.KV = kv.NewManager(nil)
	} else {
		s.DB = database
		s.KV = kv.NewManager(database.DB)
	}

	s.Metrics = metrics.New()

	s.Session = session.New(s.KV.Bucket(session.BucketName, true))
	prefs := s.KV.Bucket(PreferencesBucket, true)
	s.Theme = theme.New(prefs, theme.EnvDetector{})
	s.Translator, err = i18n.New(prefs)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.API = api.New(cfg.API.URL, s.Session,
		api.WithTimeout(cfg.API.Timeout.Duration()),
		api.WithObserver(s.Metrics.ObserveRequest),
	)

	s.Registry = store.NewRegistry(cfg.Readings.Capacity)
	s.Registry.OnDispatch(s.Metrics.ObserveDispatch)

	s.Device = device.NewController(device.Config{
		ConnectTimeout:  cfg.Device.ConnectTimeout.Duration(),
		CommandTimeout:  cfg.Device.CommandTimeout.Duration(),
		RateLimitRPS:    cfg.Device.RateLimitRPS,
		BreakerFailures: cfg.Device.BreakerFailures,
		BreakerOpen:     cfg.Device.BreakerOpen.Duration(),
	})
	if s.DB != nil {
		s.Ledger = ledger.New(s.DB.DB)
		if n, err := s.Ledger.DeleteOlderThan(cfg.Device.HistoryRetention.Duration()); err != nil {
			log.Warn().Err(err).Msg("Failed to prune device history")
		} else if n > 0 {
			log.Debug().Int64("deleted", n).Msg("Pruned device history")
		}
	}

	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	s.Sync = NewSyncService(s.API, s.Registry)
	s.Streams = NewStreamService(cfg, s.API, s.Bus, s.Metrics)
	s.Events = NewEventService(s.Bus, s.Registry)
	s.Health = NewHealthService(cfg, s.Metrics, s.Sync.Ready)

	return s, nil
}

// Start starts the watch services in order: handlers, theme watcher, initial sync, streams, health.
// The onFatalError callback is called when a fatal error occurs (e.g., max reconnects exceeded).
func (s *Services) Start(ctx context.Context, sensorIDs []int, onFatalError func(error)) error {
	if !s.Session.HasToken() {
		return session.ErrNoToken
	}

	s.Events.Start(ctx)
	s.KV.StartCleanup(ctx, time.Hour)
	go s.Theme.Watch(ctx, themePollInterval)
	s.Health.Start(ctx)

	if err := s.Sync.Sync(ctx); err != nil {
		// Partial data is still useful; streams keep the rest fresh
		log.Warn().Err(err).Msg("Initial sync incomplete")
	}

	if len(sensorIDs) == 0 {
		for _, sensor := range s.Registry.Sensors().Visible() {
			sensorIDs = append(sensorIDs, sensor.ID)
		}
	}
	s.Streams.Start(ctx, sensorIDs, onFatalError)

	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()

	s.Streams.Wait(ctx)
	s.Bus.Close(ctx)
	s.KV.StopCleanup()
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.DB != nil {
		s.DB.Close()
		s.DB = nil
	}
}
