// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"openhush/internal/log"
)

// LoadConfig loads configuration from the YAML file at path. An empty path
// searches "config.yaml" in the working directory and falls back to the
// built-in defaults. Environment overrides are applied last, then the
// result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values.
// Unparseable values are ignored.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = b
			log.Debugf("config: debug overridden from env: %v", b)
		}
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}

	// ENV_AUDIO_{...}
	if val, ok := os.LookupEnv("ENV_AUDIO_INPUT_DEVICE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputDevice = n
		}
	}
	if val, ok := os.LookupEnv("ENV_AUDIO_PREBUFFER_SECS"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Audio.PrebufferSecs = f
		}
	}

	if val, ok := os.LookupEnv("ENV_PREPROCESSING_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Preprocessing.Enabled = b
		}
	}

	// ENV_TRANSCRIPTION_{...}
	if val, ok := os.LookupEnv("ENV_TRANSCRIPTION_COMMAND"); ok {
		cfg.Transcription.Command = val
	}
	if val, ok := os.LookupEnv("ENV_TRANSCRIPTION_TIMEOUT"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Transcription.Timeout = d
		}
	}

	// ENV_WS_{...}
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WebSocketEnabled = b
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WebSocketAddress = val
	}

	if val, ok := os.LookupEnv("ENV_TELEMETRY_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Enabled = b
		}
	}
}
