// Package app assembles the ledger server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"settlement-ledger/config"
	httpHandler "settlement-ledger/internal/adapter/http/handler"
	"settlement-ledger/internal/adapter/http/middleware"
	"settlement-ledger/internal/adapter/storage/kv"
	pgStorage "settlement-ledger/internal/adapter/storage/postgres"
	redisStorage "settlement-ledger/internal/adapter/storage/redis"
	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/internal/observability"
	"settlement-ledger/internal/service"

	"github.com/rs/zerolog"
)

// App is a fully wired ledger server.
type App struct {
	Handler http.Handler

	log     zerolog.Logger
	closers []func(context.Context) error
}

// storage is the substrate chosen by storage.driver plus what hangs off it.
type storage struct {
	substrate ports.Substrate
	audit     ports.AuditRepository
	health    ports.HealthChecker
	close     func(context.Context) error
}

// New connects every dependency named by cfg and builds the HTTP handler.
// On error everything opened so far is released.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *App, err error) {
	a := &App{log: log}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	if len(cfg.Auth.Operators) > 0 && cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required when operators are configured")
	}

	var platformOwner *domain.Identity
	if cfg.Ledger.PlatformOwner != "" {
		id, err := domain.ParseIdentity(cfg.Ledger.PlatformOwner)
		if err != nil {
			return nil, fmt.Errorf("ledger.platform_owner: %w", err)
		}
		platformOwner = &id
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.onClose(shutdownTracing)

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.onClose(st.close)

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.onClose(func(context.Context) error { return rdb.Close() })

	var metrics *observability.Metrics
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("ledger")
		metricsPath = cfg.Metrics.Path
	}

	var publishers []ports.EventPublisher
	if cfg.Redis.Stream != "" {
		publishers = append(publishers, redisStorage.NewStreamPublisher(rdb, cfg.Redis.Stream, cfg.Redis.StreamMax))
	}
	if len(cfg.Webhook.Endpoints) > 0 {
		hooks, err := service.NewWebhookPublisher(cfg.Webhook.Endpoints, cfg.Webhook.Secret, &http.Client{Timeout: cfg.Webhook.Timeout}, log)
		if err != nil {
			return nil, fmt.Errorf("webhook publisher: %w", err)
		}
		publishers = append(publishers, hooks)
		a.onClose(func(context.Context) error {
			hooks.Wait()
			return nil
		})
	}

	keyHashes := make(map[string]string, len(cfg.Auth.Operators))
	for _, op := range cfg.Auth.Operators {
		keyHashes[op.Name] = op.KeyHash
	}

	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	vault := service.NewVault()
	records := service.NewRecordReader(st.substrate, redisStorage.NewRecordCache(rdb), cfg.Cache.RecordTTL, log)
	notifier := service.NewNotifier(metrics, log, publishers...)

	signerAuth := middleware.DefaultSignerAuthConfig()
	if cfg.Auth.MaxDrift > 0 {
		signerAuth.MaxDrift = cfg.Auth.MaxDrift
	}
	if cfg.Auth.NonceTTL > 0 {
		signerAuth.NonceTTL = cfg.Auth.NonceTTL
	}

	audit := service.NewAuditService(st.audit, log)
	a.onClose(func(context.Context) error {
		audit.Wait()
		return nil
	})

	engine := httpHandler.SetupRouter(httpHandler.RouterDeps{
		MerchantSvc:    service.NewMerchantService(st.substrate, records, log),
		SettlementSvc:  service.NewSettlementService(st.substrate, vault, service.SystemClock{}, records, notifier, metrics, platformOwner, log),
		RefundSvc:      service.NewRefundService(st.substrate, vault, metrics, log),
		HoldingSvc:     service.NewHoldingService(st.substrate, log),
		ReportingSvc:   service.NewReportingService(st.substrate, records, service.SystemClock{}),
		OperatorSvc:    service.NewOperatorAuthService(keyHashes, service.NewArgon2HashService(), tokenSvc, log),
		Verifier:       service.NewEd25519Verifier(),
		NonceStore:     redisStorage.NewNonceStore(rdb),
		TokenSvc:       tokenSvc,
		SignerAuth:     signerAuth,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{st.health, redisStorage.NewHealthCheck(rdb)},
		AuditSvc:       audit,
		Metrics:        metrics,
		MetricsPath:    metricsPath,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})
	a.Handler = httpHandler.Instrument(engine)

	log.Info().
		Str("storage", cfg.Storage.Driver).
		Int("publishers", len(publishers)).
		Int("operators", len(keyHashes)).
		Bool("platform_owner", platformOwner != nil).
		Msg("Ledger wired")

	return a, nil
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &storage{
			substrate: pgStorage.NewSubstrate(pool),
			audit:     pgStorage.NewAuditRepository(pool),
			health:    pgStorage.NewHealthCheck(pool),
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case config.DriverLevelDB, config.DriverMemory:
		var (
			store *kv.Store
			err   error
		)
		if cfg.Storage.Driver == config.DriverMemory {
			store, err = kv.OpenMemory()
		} else {
			store, err = kv.Open(cfg.Storage.Path, cfg.Storage.Sync)
		}
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
		}
		log.Info().Str("driver", cfg.Storage.Driver).Str("path", cfg.Storage.Path).Msg("Ledger store opened")
		return &storage{
			substrate: store,
			audit:     kv.NewAuditRepository(store),
			health:    kv.NewHealthCheck(store),
			close:     func(context.Context) error { return store.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases dependencies in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
