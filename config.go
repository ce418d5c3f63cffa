package transaction

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the file representation of the construction-time options.
//
//	retries: 2
//	log_level: debug
type Config struct {
	Retries  int    `yaml:"retries"`
	LogLevel string `yaml:"log_level,omitempty"`
}

// ParseConfig decodes a YAML document into a Config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Retries < 0 {
		return Config{}, ErrInvalidRetries
	}
	return cfg, nil
}

// LoadConfig reads and decodes the YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// Options converts the Config into Options for New. When LogLevel is set a
// dedicated logger at that level is created.
func (c Config) Options() ([]Option, error) {
	opts := []Option{WithRetries(c.Retries)}

	if c.LogLevel != "" {
		level, err := logrus.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		logger := logrus.New()
		logger.SetLevel(level)
		opts = append(opts, WithLogger(logger))
	}

	return opts, nil
}
