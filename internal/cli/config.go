package cli

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every scanner environment override.
const EnvPrefix = "QRGUARD_"

type Config struct {
	// Server the scanner talks to
	BaseURL string `yaml:"base_url" env:"BASE_URL" example:"http://localhost:8080" validate:"required,url"`
	// Per request timeout, 0 waits for the server indefinitely
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT" example:"10s" validate:"min=0"`
	// Camera device path, empty picks the first /dev/video*
	Device string `yaml:"device" env:"DEVICE" example:"/dev/video0"`
	// Optional JSON log file next to console output
	LogFile string `yaml:"log_file" env:"LOG_FILE" example:"scanner.log"`
}

// LoadConfig reads the YAML file at path when it exists, then applies
// QRGUARD_ environment overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	var result Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &result); err != nil {
				return nil, oops.Errorf("failed to parse YAML config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, oops.Errorf("failed to read config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&result, env.Options{ //nolint:exhaustruct
		Prefix: EnvPrefix,
	}); err != nil {
		return nil, oops.Errorf("failed to parse environment variables: %w", err)
	}

	if result.BaseURL == "" {
		result.BaseURL = "http://localhost:8080"
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
