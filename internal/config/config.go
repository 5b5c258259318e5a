// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads digest-ranker settings from an optional YAML file and
// DIGEST_RANKER_* environment variables, and builds the process logger.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/digest-ranker/internal/usage"
	"github.com/pdiddy/digest-ranker/pkg/types"
)

const (
	// Name is the config file base name searched for in the config paths.
	Name = "digest-ranker"

	// EnvPrefix prefixes every environment override, e.g.
	// DIGEST_RANKER_RANKING_MODEL.
	EnvPrefix = "DIGEST_RANKER"

	// MaxAttempts bounds ranking.max_attempts.
	MaxAttempts = 16
)

// Load reads configuration from cfgFile, or from digest-ranker.yaml in the
// working directory or ~/.config/digest-ranker/ when cfgFile is empty. A
// missing default file is not an error; a missing explicit file is.
func Load(cfgFile string) (*types.Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ranking.provider", string(types.ProviderOpenAI))
	v.SetDefault("ranking.model", "gpt-4o-mini")
	v.SetDefault("ranking.tier", "")
	v.SetDefault("ranking.api_key", "")
	v.SetDefault("ranking.base_url", "")
	v.SetDefault("ranking.replay_file", "")
	v.SetDefault("ranking.top_n", 5)
	v.SetDefault("ranking.temperature", 0.0)
	v.SetDefault("ranking.max_tokens", 256)
	v.SetDefault("ranking.timeout", "60s")
	v.SetDefault("ranking.max_attempts", 3)
	v.SetDefault("ranking.base_delay", "1s")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.format", string(types.OutputJSON))

	v.SetDefault("history.path", filepath.Join(".digest-ranker", "history.db"))

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.requests_per_minute", 30)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate rejects settings the pipeline cannot run with.
func Validate(cfg *types.Config) error {
	switch cfg.Ranking.Provider {
	case types.ProviderOpenAI, types.ProviderAnthropic, types.ProviderReplay:
	default:
		return eris.Errorf("config: unknown ranking.provider %q", cfg.Ranking.Provider)
	}
	if cfg.Ranking.Model == "" {
		return eris.New("config: ranking.model is required")
	}
	if cfg.Ranking.TopN < 1 {
		return eris.Errorf("config: ranking.top_n must be at least 1, got %d", cfg.Ranking.TopN)
	}
	if cfg.Ranking.MaxAttempts < 1 || cfg.Ranking.MaxAttempts > MaxAttempts {
		return eris.Errorf("config: ranking.max_attempts must be between 1 and %d, got %d", MaxAttempts, cfg.Ranking.MaxAttempts)
	}
	if cfg.Ranking.BaseDelay < 0 {
		return eris.Errorf("config: ranking.base_delay must not be negative, got %s", cfg.Ranking.BaseDelay)
	}
	if cfg.Ranking.Tier != "" {
		if _, ok := usage.RatesFromConfig(cfg.Pricing)[usage.ResolveTier(cfg.Ranking)]; !ok {
			return eris.Errorf("config: unknown ranking.tier %q", cfg.Ranking.Tier)
		}
	}

	switch cfg.Output.Format {
	case types.OutputJSON, types.OutputMarkdown, types.OutputYAML:
	default:
		return eris.Errorf("config: unknown output.format %q", cfg.Output.Format)
	}
	return nil
}

// InitLogger builds a zap logger from cfg and installs it as the global
// logger. Format "console" selects the development encoder; anything else
// logs JSON.
func InitLogger(cfg types.LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
