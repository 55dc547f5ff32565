package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dokzlo13/lumictl/internal/api"
	"github.com/dokzlo13/lumictl/internal/store"
)

// SyncService loads every collection from the API into the registry.
type SyncService struct {
	client   *api.Client
	registry *store.Registry
	ready    atomic.Bool
}

// NewSyncService creates a new SyncService.
func NewSyncService(client *api.Client, registry *store.Registry) *SyncService {
	return &SyncService{client: client, registry: registry}
}

// Sync loads regions, sensors, windows and settings in parallel.
// A failed load does not cancel the others; all failures are joined.
func (s *SyncService) Sync(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	g.Go(func() error { record(Load(ctx, s.registry.Regions(), s.client.GetRegions)); return nil })
	g.Go(func() error { record(Load(ctx, s.registry.Sensors(), s.client.GetSensors)); return nil })
	g.Go(func() error { record(Load(ctx, s.registry.Windows(), s.client.GetWindows)); return nil })
	g.Go(func() error { record(Load(ctx, s.registry.Settings(), s.client.GetSettings)); return nil })
	_ = g.Wait()

	if len(errs) == 0 {
		s.ready.Store(true)
	}
	return errors.Join(errs...)
}

// Ready reports whether a sync has fully succeeded.
func (s *SyncService) Ready() bool {
	return s.ready.Load()
}

// Load runs one collection through LoadRequest then LoadSuccess or LoadFailure.
func Load[T store.Entity](ctx context.Context, st *store.Store[T], fetch func(context.Context) ([]T, error)) error {
	st.Dispatch(store.LoadRequest[T]{})

	items, err := fetch(ctx)
	if err != nil {
		st.Dispatch(store.LoadFailure[T]{Err: err})
		return fmt.Errorf("load %s: %w", st.Name(), err)
	}
	// A cancelled caller no longer wants the result
	if ctx.Err() != nil {
		st.Dispatch(store.LoadFailure[T]{Err: ctx.Err()})
		return ctx.Err()
	}

	st.Dispatch(store.LoadSuccess[T]{Items: items})
	log.Debug().Str("store", st.Name()).Int("count", len(items)).Msg("Collection loaded")
	return nil
}
