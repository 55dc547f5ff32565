// Package app wires the lumictl services together and runs the watch daemon.
package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumictl/internal/config"
	"github.com/dokzlo13/lumictl/internal/view"
)

// App is the main application container that manages all services and their lifecycle.
type App struct {
	cfg       *config.Config
	services  *Services
	dashboard *view.Dashboard
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a new App instance with all services initialized but not started.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Services exposes the container for one-shot commands.
func (a *App) Services() *Services {
	return a.services
}

// Start syncs, starts the streams and, when out is non-nil, renders a live dashboard.
// The provided context is used for cancellation.
func (a *App) Start(ctx context.Context, sensorIDs []int, out io.Writer) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	// Fatal error handler - cancels the app context to trigger shutdown
	onFatalError := func(err error) {
		log.Error().Err(err).Msg("Fatal error, initiating shutdown")
		a.cancel()
	}

	if err := a.services.Start(a.ctx, sensorIDs, onFatalError); err != nil {
		return err
	}

	if out != nil {
		s := a.services
		a.dashboard = view.NewDashboard(view.NewContext(s.Translator, s.Theme.IsDark(), isColorTerminal(out)), s.Registry, out)
		if err := a.dashboard.Start(); err != nil {
			return err
		}
		a.dashboard.FollowTheme(s.Theme)
	}

	log.Info().Msg("lumictl watch started")
	return nil
}

func isColorTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && view.ColorEnabled(f)
}

// Stop gracefully shuts down all services.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel()
	}
	if a.dashboard != nil {
		a.dashboard.Stop()
	}

	if a.services != nil {
		return a.services.Stop()
	}

	return nil
}

// Close releases resources without the graceful stop, for one-shot commands.
func (a *App) Close() {
	if a.services != nil {
		a.services.Bus.Close(context.Background())
		a.services.Close()
	}
}

// Wait blocks until the application context is cancelled.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
