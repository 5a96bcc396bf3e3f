package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/infra/config"
	"virtual-courtroom/internal/infra/logger"
	"virtual-courtroom/internal/infra/tracer"
	"virtual-courtroom/internal/usecase/courtroom"
)

// app is what every command needs: config, logger, the oracle and a
// factory bound to it.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	llm     domain.LLMProvider
	factory *courtroom.Factory
	closers []func() error
}

// bootstrap loads .env and the config, then builds logging, tracing and the
// oracle chain.
func bootstrap(ctx context.Context) (*app, error) {
	if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", opts.EnvFile, err)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, closers: []func() error{closeLog}}

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.closers = append(a.closers, func() error { return shutdownTracer(context.Background()) })

	if a.llm, err = initLLM(cfg, log); err != nil {
		a.close()
		return nil, err
	}

	a.factory = courtroom.NewFactory(a.llm, courtroom.FactoryConfig{
		Generation: courtroom.GenerationParams{
			Model:       cfg.Agent.Model,
			Temperature: cfg.Agent.Temperature,
			MaxTokens:   cfg.Agent.MaxTokens,
			Timeout:     cfg.Agent.CallTimeout,
		},
		Strict: cfg.Agent.Strict,
	}, log)

	log.Info("courtroom runtime ready",
		"provider", a.llm.Name(),
		"model", cfg.Agent.Model,
		"strict", cfg.Agent.Strict,
	)
	return a, nil
}

// close runs the closers in reverse order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.log != nil {
			a.log.Warn("shutdown", "error", err)
		}
	}
}
