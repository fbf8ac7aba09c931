package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FilePath is the resolved path of the configuration file.
type FilePath string

// ResolvePath determines which config file to load. An explicit path wins,
// then the CONFIG_FILE environment variable, then configs/config.yaml.
func ResolvePath(explicit string) FilePath {
	if explicit != "" {
		return FilePath(explicit)
	}
	if fromEnv := os.Getenv("CONFIG_FILE"); fromEnv != "" {
		return FilePath(fromEnv)
	}
	return "configs/config.yaml"
}

func newViper(path FilePath) (*viper.Viper, error) {
	// .env is optional, used for local development only.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
	}

	v := viper.New()
	v.SetConfigFile(string(path))
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file [%s]: %w", path, err)
	}
	return v, nil
}
