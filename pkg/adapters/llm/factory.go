package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ogghst/puntini/internal/ports"
	"github.com/ogghst/puntini/pkg/adapters/llm/anthropic"
)

// Config holds planner client configuration.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	Metrics  ports.MetricsCollector
	Logger   *zap.Logger
}

// NewPlanner creates a planner client for the configured provider.
func NewPlanner(cfg *Config) (ports.Planner, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewClient(cfg.APIKey, cfg.Model, cfg.Metrics, cfg.Logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
