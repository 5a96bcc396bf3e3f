package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"virtual-courtroom/internal/adapter/httpapi"
	"virtual-courtroom/internal/adapter/store"
	"virtual-courtroom/internal/usecase/simulation"
)

// ServeCmd starts the HTTP API over the SQLite store.
type ServeCmd struct {
	Addr string `long:"addr" description:"listen address (overrides server.addr)"`
}

// Execute implements flags.Commander.
func (c *ServeCmd) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	st, err := store.NewSQLiteStore(a.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, st.Close)
	a.log.Info("case store opened", "path", a.cfg.Store.Path)

	serverCfg := a.cfg.Server
	if c.Addr != "" {
		serverCfg.Addr = c.Addr
	}

	svc := simulation.NewService(st, a.factory, a.log)
	return httpapi.NewServer(svc, serverCfg, a.log).Start(ctx)
}
