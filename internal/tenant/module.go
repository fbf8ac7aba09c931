package tenant

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewModule creates an fx module providing the team store and cache manager.
func NewModule() fx.Option {
	return fx.Module("tenant",
		fx.Provide(
			NewConfig,
			provideStore,
			provideManager,
		),
	)
}

func provideStore(lc fx.Lifecycle, cfg Config, log *zap.Logger) (Store, error) {
	if cfg.Postgres.Migrate {
		if err := Migrate(cfg.Postgres.URL); err != nil {
			return nil, err
		}
		log.Info("team store migrations applied")
	}

	store, err := NewPostgresStore(context.Background(), cfg.Postgres.URL)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			store.Close()
			return nil
		},
	})

	return store, nil
}

func provideManager(store Store, cfg Config, log *zap.Logger) *Manager {
	return NewManager(store, cfg.Cache, log)
}
