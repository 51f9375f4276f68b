package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/verihub/verihub-cli/internal/auth"
	"github.com/verihub/verihub-cli/internal/cache"
	"github.com/verihub/verihub-cli/internal/gateway"
	"github.com/verihub/verihub-cli/internal/model"
)

// loadConfig builds the effective configuration: defaults overridden by the
// config file and VERIHUB_* environment variables. Flag overrides are
// applied by the individual commands on top of this.
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()

	if v := viper.GetString("service.base_url"); v != "" {
		cfg.Service.BaseURL = v
	}
	if viper.IsSet("service.timeout") {
		cfg.Service.Timeout = viper.GetDuration("service.timeout")
	}
	if viper.IsSet("service.streaming") {
		cfg.Service.Streaming = viper.GetBool("service.streaming")
	}
	if v := viper.GetString("service.user_agent"); v != "" {
		cfg.Service.UserAgent = v
	}
	if viper.IsSet("service.insecure_tls") {
		cfg.Service.InsecureTLS = viper.GetBool("service.insecure_tls")
	}
	if viper.IsSet("service.max_body_mb") {
		cfg.Service.MaxBodyMB = viper.GetInt64("service.max_body_mb")
	}
	if v := viper.GetString("service.http_proxy"); v != "" {
		cfg.Service.HTTPProxy = v
	}
	if v := viper.GetString("service.https_proxy"); v != "" {
		cfg.Service.HTTPSProxy = v
	}
	if v := viper.GetString("service.no_proxy"); v != "" {
		cfg.Service.NoProxy = v
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if viper.IsSet("rate_limiting.requests_per_second") {
		cfg.RateLimiting.RequestsPerSecond = viper.GetFloat64("rate_limiting.requests_per_second")
	}
	if viper.IsSet("rate_limiting.burst_size") {
		cfg.RateLimiting.BurstSize = viper.GetInt("rate_limiting.burst_size")
	}
	if viper.IsSet("concurrency.workers") {
		cfg.Concurrency.Workers = viper.GetInt("concurrency.workers")
	}
	if v := viper.GetString("output.format"); v != "" {
		cfg.Output.Format = v
	}
	if v := viper.GetString("llm.model"); v != "" {
		cfg.LLM.Model = v
	}

	cfg.Output.Verbose = verbose
	cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")

	return cfg
}

// newTokenStore opens the standard credential store.
func newTokenStore() (auth.TokenStore, error) {
	path, err := auth.DefaultTokenPath()
	if err != nil {
		return nil, err
	}
	return auth.NewFileTokenStore(path), nil
}

// newGateway wires a gateway from configuration, including the result cache
// for the single-shot path when enabled.
func newGateway(cfg *model.Config, creds auth.TokenStore) (*gateway.Gateway, error) {
	var opts []gateway.Option

	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("find home directory: %w", err)
			}
			dir = filepath.Join(home, ".verihub", "cache")
		}
		layered := cache.NewLayeredCache(cfg.Cache.MemoryTTL, dir, cfg.Cache.DiskTTL)
		opts = append(opts, gateway.WithResultCache(layered, cfg.Cache.DiskTTL))
	}

	return gateway.New(cfg.Service, creds, opts...)
}
