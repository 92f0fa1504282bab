package service

import (
	"context"
	"errors"
	"testing"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	branchRepo *mocks.MockBranchRepository
	audit      *mocks.MockAuditService
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		branchRepo: mocks.NewMockBranchRepository(ctrl),
		audit:      mocks.NewMockAuditService(ctrl),
	}
	d.svc = NewWalletService(d.walletRepo, d.branchRepo, d.audit, nil, zerolog.Nop())
	return d
}

func validWalletRequest() ports.CreateWalletRequest {
	return ports.CreateWalletRequest{
		BranchID:             uuid.New(),
		Name:                 "Main Vodafone",
		Provider:             "Vodafone Cash",
		OpeningBalance:       dec("2500"),
		DailyLimit:           dec("60000"),
		MonthlyLimit:         dec("200000"),
		MinTransactionAmount: dec("1"),
		MaxTransactionAmount: dec("60000"),
	}
}

func boolPtr(b bool) *bool { return &b }

func TestWalletService_CreateWallet_Defaults(t *testing.T) {
	d := setupWalletService(t)
	req := validWalletRequest()

	d.branchRepo.EXPECT().GetByID(gomock.Any(), req.BranchID).Return(&domain.Branch{ID: req.BranchID}, nil)
	d.walletRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	w, err := d.svc.CreateWallet(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.WalletStatusActive, w.Status)
	assert.True(t, dec("2500").Equal(w.Balance))
	assert.True(t, dec("2500").Equal(w.OpeningBalance))
	assert.True(t, w.CanSend)
	assert.True(t, w.CanReceive)
}

func TestWalletService_CreateWallet_DirectionsFromStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		canSend     *bool
		wantSend    bool
		wantReceive bool
	}{
		{"receive only", "receive_only", nil, false, true},
		{"send only", "send_only", nil, true, false},
		{"explicit override", "receive_only", boolPtr(true), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupWalletService(t)
			req := validWalletRequest()
			req.Status = tt.status
			req.CanSend = tt.canSend

			d.branchRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(&domain.Branch{}, nil)
			d.walletRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

			w, err := d.svc.CreateWallet(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSend, w.CanSend)
			assert.Equal(t, tt.wantReceive, w.CanReceive)
		})
	}
}

func TestWalletService_CreateWallet_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *ports.CreateWalletRequest)
	}{
		{"missing name", func(r *ports.CreateWalletRequest) { r.Name = "  " }},
		{"missing provider", func(r *ports.CreateWalletRequest) { r.Provider = "" }},
		{"missing branch", func(r *ports.CreateWalletRequest) { r.BranchID = uuid.Nil }},
		{"bad status", func(r *ports.CreateWalletRequest) { r.Status = "paused" }},
		{"negative limit", func(r *ports.CreateWalletRequest) { r.DailyLimit = dec("-1") }},
		{"min above max", func(r *ports.CreateWalletRequest) { r.MinTransactionAmount = dec("70000") }},
		{"commission min above max", func(r *ports.CreateWalletRequest) {
			r.MinCommission = dec("10")
			r.MaxCommission = dec("5")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupWalletService(t)
			req := validWalletRequest()
			tt.mutate(&req)

			_, err := d.svc.CreateWallet(context.Background(), req)
			requireAppCode(t, err, "VAL_001")
		})
	}
}

func TestWalletService_CreateWallet_UnknownBranch(t *testing.T) {
	d := setupWalletService(t)
	d.branchRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := d.svc.CreateWallet(context.Background(), validWalletRequest())
	requireAppCode(t, err, "LED_001")
}

func TestWalletService_GetAndList(t *testing.T) {
	d := setupWalletService(t)
	id, branch := uuid.New(), uuid.New()

	d.walletRepo.EXPECT().GetByID(gomock.Any(), id).Return(nil, nil)
	_, err := d.svc.GetWallet(context.Background(), id)
	requireAppCode(t, err, "LED_001")

	d.walletRepo.EXPECT().ListByBranch(gomock.Any(), branch).Return(nil, nil)
	list, err := d.svc.ListWallets(context.Background(), branch)
	require.NoError(t, err)
	assert.NotNil(t, list)

	d.walletRepo.EXPECT().ListByBranch(gomock.Any(), branch).Return(nil, errors.New("down"))
	_, err = d.svc.ListWallets(context.Background(), branch)
	requireAppCode(t, err, "SYS_001")
}

func TestWalletService_AdjustBalance(t *testing.T) {
	d := setupWalletService(t)
	w := &domain.Wallet{ID: uuid.New(), BranchID: uuid.New(), Balance: dec("1000")}
	actor := uuid.New()

	d.walletRepo.EXPECT().GetByID(gomock.Any(), w.ID).Return(w, nil)
	d.walletRepo.EXPECT().IncrementBalance(gomock.Any(), w.ID, dec("-150")).Return(dec("850"), nil)
	d.audit.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.AuditEntry) error {
			assert.Equal(t, domain.AuditOpEdit, e.Operation)
			assert.Equal(t, domain.ResourceWallet, e.ResourceType)
			assert.Equal(t, w.ID, *e.ResourceID)
			assert.Nil(t, e.TransactionID)
			assert.True(t, dec("1000").Equal(*e.OldValue))
			assert.True(t, dec("850").Equal(*e.NewValue))
			assert.Equal(t, "till recount", *e.Reason)
			return nil
		},
	)

	got, err := d.svc.AdjustBalance(context.Background(), ports.AdjustBalanceRequest{
		WalletID: w.ID, Delta: dec("-150"), ActorID: &actor, Reason: "till recount",
	})
	require.NoError(t, err)
	assert.True(t, dec("850").Equal(got.Balance))
}

func TestWalletService_AdjustBalance_Validation(t *testing.T) {
	d := setupWalletService(t)

	_, err := d.svc.AdjustBalance(context.Background(), ports.AdjustBalanceRequest{WalletID: uuid.New(), Delta: decimal.Zero, Reason: "x"})
	requireAppCode(t, err, "LED_004")

	_, err = d.svc.AdjustBalance(context.Background(), ports.AdjustBalanceRequest{WalletID: uuid.New(), Delta: dec("1"), Reason: " "})
	requireAppCode(t, err, "VAL_001")
}
