package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/storage/memory"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp runs the full HTTP stack over the in-memory storage driver, with
// miniredis behind the wallet lock, the rate limiter and the health check.
type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	store    *memory.Store
	employee string
	admin    string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := zerolog.Nop()
	store := memory.NewStore()
	locker := redisStorage.NewWalletLock(rdb, 5*time.Second, 5*time.Second, log)

	cipher, err := service.NewAESBackupCipher("integration-passphrase")
	require.NoError(t, err)
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", time.Hour, "wallet-ledger-test")

	auditSvc := service.NewAuditService(store.Audit(), log)
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		BranchSvc:  service.NewBranchService(store.Branches(), log),
		WalletSvc:  service.NewWalletService(store.Wallets(), store.Branches(), auditSvc, locker, log),
		RankingSvc: service.NewRankingService(store.Wallets(), store.Transactions(), time.UTC, log),
		TransactionSvc: service.NewTransactionService(
			store.Transactions(), store.Wallets(), store.Branches(), store.Fees(), auditSvc, locker, log,
		),
		CashSvc:  service.NewCashService(store.CashTransactions(), store.Branches(), store.Wallets(), auditSvc, log),
		AuditSvc: auditSvc,
		BackupSvc: service.NewBackupService(service.LedgerStore{
			Branches:         store.Branches(),
			Wallets:          store.Wallets(),
			Transactions:     store.Transactions(),
			Audit:            store.Audit(),
			Fees:             store.Fees(),
			CashTransactions: store.CashTransactions(),
			Backups:          store.Backups(),
			Restorer:         store,
		}, cipher, log),
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	employee, _, err := tokenSvc.Generate(uuid.New(), ports.RoleEmployee)
	require.NoError(t, err)
	admin, _, err := tokenSvc.Generate(uuid.New(), ports.RoleAdmin)
	require.NoError(t, err)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{server: server, redis: mr, store: store, employee: employee, admin: admin}
}

// envelope is the success body with data left raw.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
}

func (a *testApp) do(t *testing.T, token, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env
}

func decodeInto(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

type idOnly struct {
	ID string `json:"id"`
}

func (a *testApp) createBranch(t *testing.T, cash string) string {
	code, env := a.do(t, a.employee, http.MethodPost, "/api/v1/branches", map[string]string{
		"name": "Main", "opening_balance": cash,
	})
	require.Equal(t, http.StatusCreated, code)
	var b idOnly
	decodeInto(t, env, &b)
	return b.ID
}

func (a *testApp) createWallet(t *testing.T, branchID, balance, dailyLimit string) string {
	code, env := a.do(t, a.employee, http.MethodPost, "/api/v1/wallets", map[string]string{
		"branch_id":       branchID,
		"name":            "Wallet",
		"provider":        "Vodafone",
		"opening_balance": balance,
		"daily_limit":     dailyLimit,
	})
	require.Equal(t, http.StatusCreated, code)
	var w idOnly
	decodeInto(t, env, &w)
	return w.ID
}

func (a *testApp) walletBalance(t *testing.T, id string) decimal.Decimal {
	code, env := a.do(t, a.employee, http.MethodGet, "/api/v1/wallets/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	var w struct {
		Balance decimal.Decimal `json:"balance"`
	}
	decodeInto(t, env, &w)
	return w.Balance
}

func (a *testApp) branchBalances(t *testing.T, id string) (cash, fees decimal.Decimal) {
	code, env := a.do(t, a.employee, http.MethodGet, "/api/v1/branches/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	var b struct {
		Cash decimal.Decimal `json:"cash_balance"`
		Fees decimal.Decimal `json:"earned_fees_balance"`
	}
	decodeInto(t, env, &b)
	return b.Cash, b.Fees
}

// --- Tests ---

func TestAPI_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAPI_Unauthorized(t *testing.T) {
	app := newTestApp(t)

	code, env := app.do(t, "", http.MethodGet, "/api/v1/audit-logs", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_003", env.ErrorCode)

	code, _ = app.do(t, "not.a.token", http.MethodGet, "/api/v1/audit-logs", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAPI_AdminRoutesRequireAdminRole(t *testing.T) {
	app := newTestApp(t)

	code, env := app.do(t, app.employee, http.MethodGet, "/api/v1/admin/backups", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "AUTH_005", env.ErrorCode)

	code, _ = app.do(t, app.admin, http.MethodGet, "/api/v1/admin/backups", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAPI_CashOutLifecycle(t *testing.T) {
	app := newTestApp(t)
	branchID := app.createBranch(t, "5000")
	walletID := app.createWallet(t, branchID, "1000", "10000")

	// Suggestions for a receive-direction transaction recommend the wallet.
	code, env := app.do(t, app.employee, http.MethodGet,
		"/api/v1/branches/"+branchID+"/wallet-suggestions?type=Cash+Out&amount=1000", nil)
	require.Equal(t, http.StatusOK, code)
	var sugg struct {
		Recommended *string `json:"recommended_wallet_id"`
	}
	decodeInto(t, env, &sugg)
	require.NotNil(t, sugg.Recommended)
	assert.Equal(t, walletID, *sugg.Recommended)

	code, env = app.do(t, app.employee, http.MethodPost, "/api/v1/transactions", map[string]string{
		"type":      "Cash Out",
		"amount":    "1000",
		"fee":       "20",
		"wallet_id": walletID,
		"branch_id": branchID,
	})
	require.Equal(t, http.StatusCreated, code)
	var tx struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeInto(t, env, &tx)
	assert.Equal(t, "Pending", tx.Status)

	// Pending transactions post nothing.
	assert.True(t, decimal.NewFromInt(1000).Equal(app.walletBalance(t, walletID)))

	code, _ = app.do(t, app.employee, http.MethodPost, "/api/v1/transactions/"+tx.ID+"/status",
		map[string]string{"status": "Approved"})
	require.Equal(t, http.StatusOK, code)

	assert.True(t, decimal.NewFromInt(2000).Equal(app.walletBalance(t, walletID)))
	cash, fees := app.branchBalances(t, branchID)
	assert.True(t, decimal.NewFromInt(4020).Equal(cash), cash.String())
	assert.True(t, decimal.NewFromInt(20).Equal(fees), fees.String())

	// Approving again is a no-op for balances.
	code, _ = app.do(t, app.employee, http.MethodPost, "/api/v1/transactions/"+tx.ID+"/status",
		map[string]string{"status": "Approved"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decimal.NewFromInt(2000).Equal(app.walletBalance(t, walletID)))

	code, env = app.do(t, app.employee, http.MethodGet, "/api/v1/audit-logs?transaction_id="+tx.ID, nil)
	require.Equal(t, http.StatusOK, code)
	var audit struct {
		Items []struct {
			Operation string `json:"operation"`
		} `json:"items"`
	}
	decodeInto(t, env, &audit)
	require.Len(t, audit.Items, 3)
	assert.Equal(t, "creation", audit.Items[2].Operation)

	code, env = app.do(t, app.employee, http.MethodGet, "/api/v1/branches/"+branchID+"/latest-wallet", nil)
	require.Equal(t, http.StatusOK, code)
	var latest struct {
		WalletID *string `json:"wallet_id"`
	}
	decodeInto(t, env, &latest)
	require.NotNil(t, latest.WalletID)
	assert.Equal(t, walletID, *latest.WalletID)
}

func TestAPI_DuplicateTransactionID(t *testing.T) {
	app := newTestApp(t)
	branchID := app.createBranch(t, "0")
	walletID := app.createWallet(t, branchID, "0", "0")

	body := map[string]string{
		"id":        uuid.NewString(),
		"type":      "Incoming Transfer",
		"amount":    "50",
		"wallet_id": walletID,
		"branch_id": branchID,
	}
	code, _ := app.do(t, app.employee, http.MethodPost, "/api/v1/transactions", body)
	require.Equal(t, http.StatusCreated, code)

	code, env := app.do(t, app.employee, http.MethodPost, "/api/v1/transactions", body)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "LED_002", env.ErrorCode)
}

func TestAPI_BackupAndRestore(t *testing.T) {
	app := newTestApp(t)
	branchID := app.createBranch(t, "100")
	walletID := app.createWallet(t, branchID, "300", "0")

	code, env := app.do(t, app.admin, http.MethodPost, "/api/v1/admin/backups", map[string]string{"name": "before-adjust"})
	require.Equal(t, http.StatusCreated, code)
	var backup idOnly
	decodeInto(t, env, &backup)

	code, _ = app.do(t, app.employee, http.MethodPost, "/api/v1/wallets/"+walletID+"/adjustments",
		map[string]string{"delta": "-100", "reason": "miscount"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decimal.NewFromInt(200).Equal(app.walletBalance(t, walletID)))

	code, env = app.do(t, app.admin, http.MethodPost, "/api/v1/admin/backups/"+backup.ID+"/restore", nil)
	require.Equal(t, http.StatusOK, code)
	var restored struct {
		Restored map[string]int `json:"restored"`
	}
	decodeInto(t, env, &restored)
	assert.Equal(t, 1, restored.Restored["wallets"])

	assert.True(t, decimal.NewFromInt(300).Equal(app.walletBalance(t, walletID)))

	// The adjustment's audit row survives the restore, and both admin actions are audited.
	code, env = app.do(t, app.employee, http.MethodGet, "/api/v1/audit-logs", nil)
	require.Equal(t, http.StatusOK, code)
	var audit struct {
		Items []struct {
			Operation    string `json:"operation"`
			ResourceType string `json:"resource_type"`
		} `json:"items"`
	}
	decodeInto(t, env, &audit)
	ops := make(map[string]int)
	for _, e := range audit.Items {
		ops[e.ResourceType+"/"+e.Operation]++
	}
	assert.Equal(t, 1, ops["wallet/edit"])
	assert.Equal(t, 1, ops["backup/creation"])
	assert.Equal(t, 1, ops["backup/restore"])
}

func TestAPI_AdminRateLimit(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 5; i++ {
		code, _ := app.do(t, app.admin, http.MethodGet, "/api/v1/admin/backups", nil)
		require.Equal(t, http.StatusOK, code, "request %d", i+1)
	}
	code, env := app.do(t, app.admin, http.MethodGet, "/api/v1/admin/backups", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "RATE_001", env.ErrorCode)
}

// TestAPI_ConcurrentApprovals fires parallel approvals of distinct
// transactions on one wallet; with the Redis lock every effect lands once.
func TestAPI_ConcurrentApprovals(t *testing.T) {
	app := newTestApp(t)
	branchID := app.createBranch(t, "100000")
	walletID := app.createWallet(t, branchID, "0", "0")

	const n = 10
	ids := make([]string, n)
	for i := range ids {
		code, env := app.do(t, app.employee, http.MethodPost, "/api/v1/transactions", map[string]string{
			"type":      "Cash Out",
			"amount":    "100",
			"fee":       "1",
			"wallet_id": walletID,
			"branch_id": branchID,
		})
		require.Equal(t, http.StatusCreated, code)
		var tx idOnly
		decodeInto(t, env, &tx)
		ids[i] = tx.ID
	}

	var wg sync.WaitGroup
	var ok atomic.Int64
	for i := 0; i < n; i++ {
		// Each transaction is approved twice concurrently.
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				body, _ := json.Marshal(map[string]string{"status": "Approved"})
				req, _ := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/v1/transactions/%s/status", app.server.URL, id), bytes.NewReader(body))
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("Authorization", "Bearer "+app.employee)
				resp, err := http.DefaultClient.Do(req)
				if err != nil {
					return
				}
				defer resp.Body.Close()
				_, _ = io.ReadAll(resp.Body)
				if resp.StatusCode == http.StatusOK {
					ok.Add(1)
				}
			}(ids[i])
		}
	}
	wg.Wait()

	assert.Equal(t, int64(2*n), ok.Load())
	assert.True(t, decimal.NewFromInt(100*n).Equal(app.walletBalance(t, walletID)))
	cash, fees := app.branchBalances(t, branchID)
	assert.True(t, decimal.NewFromInt(100000-99*n).Equal(cash), cash.String())
	assert.True(t, decimal.NewFromInt(n).Equal(fees), fees.String())
}
