package main

import (
	"fmt"
	"log/slog"

	"virtual-courtroom/internal/adapter/llm"
	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/infra/config"
)

// initLLM registers every configured provider, each behind its own circuit
// breaker when enabled, and returns the default provider wrapped with
// failover and the outbound limits.
func initLLM(cfg *config.Config, log *slog.Logger) (domain.LLMProvider, error) {
	if len(cfg.LLM.Providers) == 0 {
		return nil, fmt.Errorf("no llm providers configured (see llm.providers)")
	}

	registry := llm.NewRegistry()
	cbCfg := cfg.LLM.CircuitBreaker
	for _, pc := range cfg.LLM.Providers {
		provider, err := createLLMProvider(pc, log)
		if err != nil {
			return nil, fmt.Errorf("llm provider %s: %w", pc.Name, err)
		}
		if cbCfg.Enabled {
			provider = llm.NewCircuitBreakerProvider(provider, cbCfg, log)
		}
		if err := registry.Register(provider); err != nil {
			return nil, fmt.Errorf("llm provider %s: %w", pc.Name, err)
		}
	}
	if cbCfg.Enabled {
		log.Info("llm circuit breaker enabled",
			"max_failures", cbCfg.MaxFailures,
			"timeout", cbCfg.Timeout,
			"interval", cbCfg.Interval,
		)
	}

	provider, err := registry.Get(cfg.LLM.DefaultProvider)
	if err != nil {
		return nil, fmt.Errorf("default llm provider: %w", err)
	}

	if cfg.LLM.Failover.Enabled && len(cfg.LLM.Failover.Fallbacks) > 0 {
		fallbacks := make([]domain.LLMProvider, 0, len(cfg.LLM.Failover.Fallbacks))
		for _, name := range cfg.LLM.Failover.Fallbacks {
			fb, err := registry.Get(name)
			if err != nil {
				return nil, fmt.Errorf("failover provider %s: %w", name, err)
			}
			fallbacks = append(fallbacks, fb)
		}
		provider = llm.NewFailoverProvider(provider, fallbacks, log)
		log.Info("model failover enabled", "fallbacks", cfg.LLM.Failover.Fallbacks)
	}

	limits := cfg.LLM.Limits
	if limits.RequestsPerSecond > 0 || limits.MaxConcurrent > 0 {
		provider = llm.NewLimitedProvider(provider, limits)
		log.Info("llm limits enabled",
			"requests_per_second", limits.RequestsPerSecond,
			"max_concurrent", limits.MaxConcurrent,
		)
	}
	return provider, nil
}

func createLLMProvider(pc config.ProviderConfig, log *slog.Logger) (domain.LLMProvider, error) {
	switch pc.Type {
	case "", "openai":
		return llm.NewOpenAIProvider(pc, log), nil
	case "go-openai":
		return llm.NewGoOpenAIProvider(pc, log), nil
	case "bedrock":
		return createBedrockProvider(pc, log)
	default:
		return nil, fmt.Errorf("unknown provider type %q", pc.Type)
	}
}
