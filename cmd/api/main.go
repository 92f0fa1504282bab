package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/storage/memory"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("serialization", cfg.Ledger.Serialization).
		Msg("Starting wallet ledger")

	ctx := context.Background()

	store, checkers, closeStore, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer closeStore()

	// Redis is optional: it backs the rate limiter and the redis lock mode.
	var rdb *goredis.Client
	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.Redis.Enabled {
		rdb, err = redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
		log.Info().Msg("Redis connected")
	}

	locker := newLocker(cfg.Ledger, rdb, log)

	loc, err := cfg.Ledger.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ledger timezone")
	}

	// Initialize core services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(store.Audit, logger.ForComponent(log, "audit"))

	var backupSvc ports.BackupService
	if cipher, err := service.NewAESBackupCipher(cfg.Backup.Passphrase); err == nil {
		backupSvc = service.NewBackupService(store, cipher, logger.ForComponent(log, "backup"))
	} else {
		log.Warn().Err(err).Msg("Backup passphrase not usable, admin backup routes disabled")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		BranchSvc: service.NewBranchService(store.Branches, log),
		WalletSvc: service.NewWalletService(
			store.Wallets, store.Branches, auditSvc, locker, logger.ForComponent(log, "wallets"),
		),
		RankingSvc: service.NewRankingService(
			store.Wallets, store.Transactions, loc, logger.ForComponent(log, "ranking"),
		),
		TransactionSvc: service.NewTransactionService(
			store.Transactions, store.Wallets, store.Branches, store.Fees,
			auditSvc, locker, logger.ForComponent(log, "transactions"),
		),
		CashSvc: service.NewCashService(
			store.CashTransactions, store.Branches, store.Wallets, auditSvc, logger.ForComponent(log, "cash"),
		),
		AuditSvc:       auditSvc,
		BackupSvc:      backupSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: checkers,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStorage builds the repositories for the configured driver.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (service.LedgerStore, []ports.HealthChecker, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		s := memory.NewStore()
		return service.LedgerStore{
			Branches:         s.Branches(),
			Wallets:          s.Wallets(),
			Transactions:     s.Transactions(),
			Audit:            s.Audit(),
			Fees:             s.Fees(),
			CashTransactions: s.CashTransactions(),
			Backups:          s.Backups(),
			Restorer:         s,
		}, nil, func() {}, nil

	default:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return service.LedgerStore{}, nil, nil, err
		}
		if err := pgStorage.Migrate(ctx, pool); err != nil {
			pool.Close()
			return service.LedgerStore{}, nil, nil, fmt.Errorf("migrating schema: %w", err)
		}
		log.Info().Msg("PostgreSQL connected")
		return service.LedgerStore{
			Branches:         pgStorage.NewBranchRepo(pool),
			Wallets:          pgStorage.NewWalletRepo(pool),
			Transactions:     pgStorage.NewTransactionRepo(pool),
			Audit:            pgStorage.NewAuditRepository(pool),
			Fees:             pgStorage.NewFeeRepo(pool),
			CashTransactions: pgStorage.NewCashTransactionRepo(pool),
			Backups:          pgStorage.NewBackupRepo(pool),
			Restorer:         pgStorage.NewSnapshotRepo(pool),
		}, []ports.HealthChecker{pgStorage.NewHealthCheck(pool)}, pool.Close, nil
	}
}

// newLocker picks the wallet serialization strategy.
func newLocker(cfg config.LedgerConfig, rdb *goredis.Client, log zerolog.Logger) ports.Locker {
	switch cfg.Serialization {
	case config.SerializeLocal:
		return service.NewLocalLocker(cfg.LockTimeout)
	case config.SerializeRedis:
		return redisStorage.NewWalletLock(rdb, cfg.LockTTL, cfg.LockTimeout, logger.ForComponent(log, "wallet_lock"))
	default:
		log.Warn().Msg("Wallet serialization disabled, concurrent approvals may race")
		return service.NoopLocker{}
	}
}
