package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		DefaultLanguage  string   `env:"LANG,default=en"`
		EnabledHandlers  []string `env:"HANDLERS,default=reports"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		DotPath          string   `env:"DOT_PATH,default=~/.cheatlog"`
		DBFile           string   `env:"DB_FILE,default=cheatlog.db"`
		Naming           Naming
		Listing          Listing
		Fanout           Fanout
		Observability    Observability
	}

	Naming struct {
		MinLength            int `env:"NAME_MIN_LENGTH,default=3"`
		MaxLength            int `env:"NAME_MAX_LENGTH,default=15"`
		MaxConsecutiveDigits int `env:"NAME_MAX_DIGITS,default=4"`
	}

	Listing struct {
		PageSize    int `env:"PAGE_SIZE,default=10"`
		SearchLimit int `env:"SEARCH_LIMIT,default=25"`
	}

	Fanout struct {
		Concurrency int           `env:"FANOUT_CONCURRENCY,default=4"`
		EventTTL    time.Duration `env:"EVENT_TTL,default=10m"`
	}

	Observability struct {
		MetricsAddr string `env:"METRICS_ADDR,default=:2112"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg, err := Process(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// Process reads a Config through lookuper using the CL_ variable prefix.
func Process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper("CL_", lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath
	if cfg.Listing.PageSize <= 0 {
		cfg.Listing.PageSize = 10
	}
	if cfg.Fanout.Concurrency <= 0 {
		cfg.Fanout.Concurrency = 1
	}
	return cfg, nil
}
