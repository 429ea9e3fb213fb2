package service

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// HeartbeatMinInterval rejects heartbeats arriving faster than a
	// misbehaving client would send; normal cadence is ~30s.
	HeartbeatMinInterval time.Duration `envconfig:"HEARTBEAT_MIN_INTERVAL" default:"10s"`
	OnlineWindow         time.Duration `envconfig:"CONNECTION_ONLINE_WINDOW" default:"60s"`
	IdleWindow           time.Duration `envconfig:"CONNECTION_IDLE_WINDOW" default:"120s"`
	AuthCacheTTL         time.Duration `envconfig:"AUTH_CACHE_TTL" default:"5m"`
	ActionRedeliverAfter time.Duration `envconfig:"ACTION_REDELIVER_AFTER" default:"5m"`
	ActionMaxAttempts    int           `envconfig:"ACTION_MAX_ATTEMPTS" default:"5"`
	MatcherPoolSize      int           `envconfig:"MATCHER_POOL_SIZE" default:"8"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
