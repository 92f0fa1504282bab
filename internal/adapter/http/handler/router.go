package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	BranchSvc      ports.BranchService
	WalletSvc      ports.WalletService
	RankingSvc     ports.RankingService
	TransactionSvc ports.TransactionService
	CashSvc        ports.CashService
	AuditSvc       ports.AuditService
	BackupSvc      ports.BackupService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rules[group], deps.Logger)
	}
	reads, mutations := rl(middleware.GroupReads), rl(middleware.GroupMutations)

	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))

	branchHandler := NewBranchHandler(deps.BranchSvc)
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.RankingSvc)
	txHandler := NewTransactionHandler(deps.TransactionSvc)
	cashHandler := NewCashHandler(deps.CashSvc)
	auditHandler := NewAuditHandler(deps.AuditSvc)

	branches := v1.Group("/branches")
	{
		branches.POST("", mutations, branchHandler.Create)
		branches.GET("/:id", reads, branchHandler.Get)
		branches.GET("/:id/wallets", reads, walletHandler.ListByBranch)
		branches.GET("/:id/wallet-suggestions", reads, walletHandler.Suggestions)
		branches.GET("/:id/latest-wallet", reads, walletHandler.LatestWallet)
		branches.GET("/:id/cash-transactions", reads, cashHandler.ListByBranch)
	}

	wallets := v1.Group("/wallets")
	{
		wallets.POST("", mutations, walletHandler.Create)
		wallets.GET("/:id", reads, walletHandler.Get)
		wallets.POST("/:id/adjustments", mutations, walletHandler.Adjust)
	}

	transactions := v1.Group("/transactions")
	{
		transactions.POST("", mutations, txHandler.Create)
		transactions.GET("/:id", reads, txHandler.Get)
		transactions.POST("/:id/status", mutations, txHandler.SetStatus)
		transactions.PATCH("/:id/amount", mutations, txHandler.EditAmount)
	}

	v1.POST("/cash-transactions", mutations, cashHandler.Create)
	v1.GET("/audit-logs", reads, auditHandler.List)

	if deps.BackupSvc != nil {
		backupHandler := NewBackupHandler(deps.BackupSvc)
		admin := v1.Group("/admin",
			middleware.RequireRole(ports.RoleAdmin),
			rl(middleware.GroupAdmin),
			middleware.AdminAudit(deps.AuditSvc, deps.Logger),
		)
		{
			admin.POST("/backups", backupHandler.Create)
			admin.GET("/backups", backupHandler.List)
			admin.POST("/backups/:id/restore", backupHandler.Restore)
		}
	}

	return r
}
