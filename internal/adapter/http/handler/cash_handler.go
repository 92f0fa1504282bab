package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CashHandler handles branch cash movements.
type CashHandler struct {
	cashSvc ports.CashService
}

// NewCashHandler creates a new CashHandler.
func NewCashHandler(cashSvc ports.CashService) *CashHandler {
	return &CashHandler{cashSvc: cashSvc}
}

// Create handles POST /api/v1/cash-transactions.
func (h *CashHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CreateCashTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	ct, err := h.cashSvc.CreateCashTransaction(c.Request.Context(), ports.CreateCashTransactionRequest{
		BranchID:      uuid.MustParse(req.BranchID),
		WalletID:      optionalUUID(req.WalletID),
		EmployeeID:    actor,
		Type:          req.Type,
		FundingSource: req.FundingSource,
		Amount:        req.Amount,
		Notes:         req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ct)
}

// ListByBranch handles GET /api/v1/branches/:id/cash-transactions.
func (h *CashHandler) ListByBranch(c *gin.Context) {
	branchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	items, err := h.cashSvc.ListCashTransactions(c.Request.Context(), branchID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewListResponse(items))
}
