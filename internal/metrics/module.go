package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config holds the metrics endpoint configuration.
type Config struct {
	Addr string `mapstructure:"addr"`
}

// NewConfig loads the metrics configuration from the "metrics" section.
func NewConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.UnmarshalKey("metrics", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load metrics config: %w", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9090"
	}
	return cfg, nil
}

// NewModule creates an fx module serving Prometheus metrics over HTTP.
func NewModule() fx.Option {
	return fx.Module("metrics",
		fx.Provide(NewConfig),
		fx.Invoke(startServer),
	)
}

func startServer(lc fx.Lifecycle, log *zap.Logger, cfg Config) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
			}
			go func() {
				if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("metrics server stopped unexpectedly", zap.Error(err))
				}
			}()
			log.Info("metrics server started", zap.String("addr", cfg.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
