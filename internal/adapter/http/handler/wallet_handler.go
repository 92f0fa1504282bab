package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletHandler handles wallet endpoints, including ranking suggestions.
type WalletHandler struct {
	walletSvc  ports.WalletService
	rankingSvc ports.RankingService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, rankingSvc ports.RankingService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, rankingSvc: rankingSvc}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	var req dto.CreateWalletRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, err := h.walletSvc.CreateWallet(c.Request.Context(), ports.CreateWalletRequest{
		BranchID:             uuid.MustParse(req.BranchID),
		Name:                 req.Name,
		Provider:             req.Provider,
		Status:               req.Status,
		OpeningBalance:       req.OpeningBalance,
		DailyLimit:           req.DailyLimit,
		MonthlyLimit:         req.MonthlyLimit,
		MinTransactionAmount: req.MinTransactionAmount,
		MaxTransactionAmount: req.MaxTransactionAmount,
		CommissionPercentage: req.CommissionPercentage,
		MinCommission:        req.MinCommission,
		MaxCommission:        req.MaxCommission,
		CanSend:              req.CanSend,
		CanReceive:           req.CanReceive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, wallet)
}

// Get handles GET /api/v1/wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// ListByBranch handles GET /api/v1/branches/:id/wallets.
func (h *WalletHandler) ListByBranch(c *gin.Context) {
	branchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	wallets, err := h.walletSvc.ListWallets(c.Request.Context(), branchID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewListResponse(wallets))
}

// Adjust handles POST /api/v1/wallets/:id/adjustments.
func (h *WalletHandler) Adjust(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.AdjustBalanceRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, err := h.walletSvc.AdjustBalance(c.Request.Context(), ports.AdjustBalanceRequest{
		WalletID: id,
		Delta:    req.Delta,
		ActorID:  &actor,
		Reason:   req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// Suggestions handles GET /api/v1/branches/:id/wallet-suggestions.
func (h *WalletHandler) Suggestions(c *gin.Context) {
	branchID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q dto.SuggestionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(q.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}
	margin := decimal.Zero
	if q.SafetyMargin != "" {
		if margin, err = decimal.NewFromString(q.SafetyMargin); err != nil {
			response.Error(c, apperror.Validation("invalid safety_margin"))
			return
		}
	}

	suggestions, err := h.rankingSvc.RankWallets(c.Request.Context(), ports.RankRequest{
		Type:         q.Type,
		Amount:       amount,
		BranchID:     branchID,
		SafetyMargin: margin,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.SuggestionsResponse{Suggestions: suggestions}
	if resp.Suggestions == nil {
		resp.Suggestions = []domain.Suggestion{}
	}
	if len(suggestions) > 0 && suggestions[0].IsRecommended {
		id := suggestions[0].WalletID.String()
		resp.Recommended = &id
	}
	response.OK(c, resp)
}

// LatestWallet handles GET /api/v1/branches/:id/latest-wallet.
func (h *WalletHandler) LatestWallet(c *gin.Context) {
	branchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	walletID, err := h.rankingSvc.LatestUsedWallet(c.Request.Context(), branchID)
	if err != nil {
		response.Error(c, err)
		return
	}

	var resp dto.LatestWalletResponse
	if walletID != nil {
		id := walletID.String()
		resp.WalletID = &id
	}
	response.OK(c, resp)
}
