package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from a .env file before Load reads SF_*
// overrides. ENV_PATH overrides defaultPath. A missing file is only an
// error when the path was requested explicitly through ENV_PATH.
func LoadDotEnv(defaultPath string) error {
	envPath := os.Getenv("ENV_PATH")
	explicit := envPath != ""
	if !explicit {
		envPath = defaultPath
	}
	if err := godotenv.Load(envPath); err != nil {
		if explicit {
			return err
		}
		slog.Debug("skipping .env", "path", envPath, "error", err)
	}
	return nil
}
