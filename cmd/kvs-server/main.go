// Command kvs-server runs the key-value store's TCP front-end, backed
// by either the log-structured engine or the bbolt-backed adapter.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"kvs/internal/config"
	"kvs/internal/enginesel"
	"kvs/internal/kverrors"
	"kvs/internal/pool"
	"kvs/internal/server"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("kvs-server: fatal", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Get()

	var addr, engineName, poolKind string
	var poolSize uint32

	cmd := &cobra.Command{
		Use:           "kvs-server",
		Short:         "Run the key-value store's network server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, engineName, poolKind, poolSize)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", cfg.Addr, "IP:PORT to listen on")
	cmd.Flags().StringVar(&engineName, "engine", cfg.EngineName, "engine to use: kvs or sled (default: inferred from the working directory)")
	cmd.Flags().StringVar(&poolKind, "pool", cfg.PoolKind, "thread pool kind: naive, shared-queue, or stealing")
	cmd.Flags().Uint32Var(&poolSize, "pool-size", cfg.PoolSize, "worker count for shared-queue and stealing pools")

	return cmd
}

func run(addr, engineName, poolKind string, poolSize uint32) error {
	cfg := config.Get()

	workDir, err := os.Getwd()
	if err != nil {
		return kverrors.Other("kvs-server: getwd", err)
	}

	eng, err := enginesel.Open(workDir, engineName, cfg.BatchSize, cfg.SyncIntervalDuration())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			slog.Error("kvs-server: closing engine", "error", cerr)
		}
	}()

	p, err := pool.New(pool.Kind(poolKind), poolSize)
	if err != nil {
		return kverrors.Other("kvs-server: building pool", err)
	}

	srv, err := server.New(addr, eng, p)
	if err != nil {
		return err
	}

	slog.Info("kvs-server: listening", "addr", srv.Addr(), "engine", engineName, "pool", poolKind)
	return srv.Run()
}
