// Package config loads FraudGuard settings from built-in defaults, an
// optional YAML file and FRAUDGUARD_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g.
// FRAUDGUARD_SERVER_PORT=9090 or FRAUDGUARD_ANALYSIS_STEPDELAY=600ms.
const EnvPrefix = "FRAUDGUARD"

// FileName is the config file looked up when none is given.
const FileName = "fraudguard"

// Setup points v at its sources and reads the config file, if any.
// An explicit path must exist; the default locations are optional.
// It returns the file that was read, or "".
func Setup(v *viper.Viper, path string) (string, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "fraudguard"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load builds the configuration. The "profile" key picks the defaults
// (local or cluster); file values and then environment values override them.
func Load(v *viper.Viper) (*domain.Config, error) {
	base := domain.DefaultConfig()
	switch profile := strings.ToLower(v.GetString("profile")); profile {
	case "", domain.ProfileLocal:
	case domain.ProfileCluster:
		base = domain.ClusterConfig()
	default:
		return nil, fmt.Errorf("invalid config: unknown profile %q", profile)
	}

	if err := setDefaults(v, base); err != nil {
		return nil, err
	}

	cfg := &domain.Config{}
	err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every field of base as a viper default so that
// AutomaticEnv can override keys that no file mentions.
func setDefaults(v *viper.Viper, base *domain.Config) error {
	data, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	walk("", tree, v.SetDefault)
	return nil
}

func walk(prefix string, node map[string]any, set func(string, any)) {
	for k, val := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := val.(map[string]any); ok {
			walk(key, child, set)
			continue
		}
		set(key, val)
	}
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
	scorers    = []string{domain.ScorerNone, domain.ScorerRandom, domain.ScorerRemote}
	authModes  = []string{domain.AuthModeDev, domain.AuthModeOIDC}
	cacheTypes = []string{"memory", "redis"}
	busTypes   = []string{"channel", "nats"}
	drivers    = []string{"none", "sqlite", "postgres"}
)

// Validate rejects settings no component can run with.
func Validate(cfg *domain.Config) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(cfg.Server.Port > 0 && cfg.Server.Port < 65536, "server.port %d out of range", cfg.Server.Port)
	check(oneOf(cfg.Logging.Level, logLevels), "logging.level %q must be one of %v", cfg.Logging.Level, logLevels)
	check(oneOf(cfg.Logging.Format, logFormats), "logging.format %q must be one of %v", cfg.Logging.Format, logFormats)
	check(oneOf(cfg.Behavior.Scorer, scorers), "behavior.scorer %q must be one of %v", cfg.Behavior.Scorer, scorers)
	check(oneOf(cfg.Auth.Mode, authModes), "auth.mode %q must be one of %v", cfg.Auth.Mode, authModes)
	check(cfg.Auth.Mode != domain.AuthModeOIDC || (cfg.Auth.Issuer != "" && cfg.Auth.ClientID != ""),
		"auth.issuer and auth.clientId are required in oidc mode")
	check(oneOf(cfg.Cache.Type, cacheTypes), "cache.type %q must be one of %v", cfg.Cache.Type, cacheTypes)
	check(oneOf(cfg.EventBus.Type, busTypes), "eventBus.type %q must be one of %v", cfg.EventBus.Type, busTypes)
	check(oneOf(cfg.Repository.Driver, drivers), "repository.driver %q must be one of %v", cfg.Repository.Driver, drivers)
	check(cfg.Analysis.AlertThreshold > 0 && cfg.Analysis.AlertThreshold <= 1,
		"analysis.alertThreshold %v must be within (0, 1]", cfg.Analysis.AlertThreshold)
	check(cfg.Analysis.StepDelay >= 0, "analysis.stepDelay must not be negative")
	check(cfg.Behavior.Scorer != domain.ScorerRemote || cfg.Predict.Endpoint != "",
		"predict.endpoint is required for the remote behavior scorer")

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
