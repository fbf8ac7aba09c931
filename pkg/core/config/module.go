package config

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewModule creates an fx module providing the application *viper.Viper.
// The config file path is resolved once at startup; see ResolvePath.
func NewModule(explicitPath string) fx.Option {
	return fx.Module("config",
		fx.Supply(ResolvePath(explicitPath)),
		fx.Provide(newViper),
		fx.Invoke(logConfigLoaded),
	)
}

func logConfigLoaded(log *zap.Logger, path FilePath) {
	log.Info("configuration loaded", zap.String("configFile", string(path)))
}
