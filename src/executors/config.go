package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// integrity evaluator
	EvaluatorPeriod time.Duration `envconfig:"EVALUATOR_PERIOD" default:"60s"`
	// trades younger than this are left for the inline matcher
	EvaluatorMinAge time.Duration `envconfig:"EVALUATOR_MIN_AGE" default:"10m"`
	// re-evaluation backoff per trade
	EvaluatorCooldown time.Duration `envconfig:"EVALUATOR_COOLDOWN" default:"30m"`
	EvaluatorBatch    int           `envconfig:"EVALUATOR_BATCH" default:"100"`

	// outbox dispatcher
	OutboxPeriod      time.Duration `envconfig:"OUTBOX_PERIOD" default:"10s"`
	OutboxBatch       int           `envconfig:"OUTBOX_BATCH" default:"50"`
	OutboxMaxAttempts int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"8"`
	OutboxBaseBackoff time.Duration `envconfig:"OUTBOX_BASE_BACKOFF" default:"30s"`
	// collaborator endpoint receiving recompute triggers
	CollaboratorBaseURL string        `envconfig:"COLLABORATOR_BASE_URL" default:"http://localhost:9090"`
	CollaboratorTimeout time.Duration `envconfig:"COLLABORATOR_TIMEOUT" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
