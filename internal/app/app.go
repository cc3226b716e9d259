// Package app assembles the oracle from configuration. It is shared by the
// oracled daemon and the artemis CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mahmed0x1/ARTEMIS/internal/config"
	"github.com/mahmed0x1/ARTEMIS/internal/domain"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/db"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/metrics"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/policyopa"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/ratelimit"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/registry/evm"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/registry/memory"
	"github.com/mahmed0x1/ARTEMIS/internal/usecase"
)

type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Store     *db.Store
	Metrics   *metrics.Metrics
	Oracle    *usecase.Oracle
	Registrar *usecase.Registrar
	Evaluator *usecase.UsageEvaluator

	closers []func() error
}

// Build connects to the configured registry backend and wires the read path,
// the write path and the usage policy around it. The caller owns Close.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}

	registry, writer, err := a.openRegistry(ctx)
	if err != nil {
		return nil, err
	}

	store, err := db.NewStore(cfg.PostgresDSN, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	observers := []usecase.RegistryObserver{a.Metrics}
	var recorder usecase.TxRecorder
	if store.Enabled() {
		faults := db.NewFaultObserver(db.NewReadFaultRepository(store.DB), logger, db.DefaultFaultQueueSize)
		a.closers = append(a.closers, faults.Close)
		observers = append(observers, faults)
		recorder = db.NewTxRecordRepository(store.DB)
	}

	client, err := usecase.NewRegistryClient(ctx, registry, usecase.RegistryClientOptions{
		CallTimeout: cfg.RegistryCallTimeout,
		Observers:   observers,
		Logger:      logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	policy, err := usecase.ParseFaultPolicy(cfg.FaultPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Oracle, err = usecase.NewOracle(client, usecase.OracleOptions{
		FaultPolicy:      policy,
		BatchConcurrency: cfg.BatchConcurrency,
		BatchObserver:    a.Metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Registrar, err = usecase.NewRegistrar(client, writer, usecase.RegistrarOptions{Recorder: recorder, Logger: logger})
	if err != nil {
		a.Close()
		return nil, err
	}

	engine, err := policyopa.NewEngine(ctx, cfg.PolicyBundlePath, cfg.PolicyBundleID)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init usage policy: %w", err)
	}
	a.Evaluator = &usecase.UsageEvaluator{Oracle: a.Oracle, Policy: engine}

	logger.Info("oracle ready",
		slog.String("backend", cfg.RegistryBackend),
		slog.Bool("writable", a.Registrar.Writable()),
		slog.Bool("db", store.Enabled()),
		slog.String("fault_policy", string(policy)),
		slog.String("policy_bundle", engine.BundleHash()))
	return a, nil
}

func (a *App) openRegistry(ctx context.Context) (domain.Registry, domain.RegistryWriter, error) {
	switch a.Config.RegistryBackend {
	case config.BackendMemory:
		reg := memory.New(memory.Options{NonRevokable: a.Config.NonRevokable})
		a.Logger.Warn("using in-memory registry; records are lost on exit")
		return reg, reg, nil
	case config.BackendEVM:
		conn, err := evm.Dial(ctx, evm.Config{
			RPCURL:        a.Config.RegistryRPCURL,
			Address:       a.Config.RegistryAddress,
			ABIPath:       a.Config.RegistryABIPath,
			ChainID:       a.Config.RegistryChainID,
			PrivateKeyHex: a.Config.RegistryPrivateKey,
			WaitMined:     a.Config.RegistryWaitMined,
		})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() error { conn.Close(); return nil })
		if !a.Config.Writable() {
			a.Logger.Warn("REGISTRY_PRIVATE_KEY not set; registry commands are disabled")
		}
		if conn.Writer == nil {
			return conn.Registry, nil, nil
		}
		a.Logger.Info("registry writer configured", slog.String("from", conn.Writer.From().Hex()))
		return conn.Registry, conn.Writer, nil
	default:
		return nil, nil, fmt.Errorf("unknown registry backend %q", a.Config.RegistryBackend)
	}
}

// RateLimiter returns the redis limiter when REDIS_ADDR is set and the
// in-process limiter otherwise. Nil means limiting is disabled.
func (a *App) RateLimiter(ctx context.Context) (domain.RateLimiter, error) {
	if a.Config.RateLimitRequests <= 0 {
		return nil, nil
	}
	if a.Config.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: a.Config.RateLimitMaxKeys}), nil
	}
	limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisConfig{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	if err := limiter.Ping(ctx); err != nil {
		a.Logger.Warn("redis rate limiter unreachable at startup", slog.String("addr", a.Config.RedisAddr), slog.Any("error", err))
	}
	a.closers = append(a.closers, limiter.Close)
	return limiter, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
