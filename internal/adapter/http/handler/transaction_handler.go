package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles transaction endpoints.
type TransactionHandler struct {
	txSvc ports.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txSvc ports.TransactionService) *TransactionHandler {
	return &TransactionHandler{txSvc: txSvc}
}

// Create handles POST /api/v1/transactions. The caller is recorded as the employee.
func (h *TransactionHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	id := uuid.New()
	if req.ID != "" {
		id = uuid.MustParse(req.ID)
	}
	status := req.Status
	if status == "" {
		status = string(domain.TransactionStatusPending)
	}

	tx, err := h.txSvc.CreateTransaction(c.Request.Context(), ports.CreateTransactionRequest{
		ID:            id,
		Type:          req.Type,
		Status:        status,
		Amount:        req.Amount,
		FeePercentage: req.FeePercentage,
		FeeAmount:     req.Fee,
		WalletID:      uuid.MustParse(req.WalletID),
		ToWalletID:    optionalUUID(req.ToWalletID),
		BranchID:      uuid.MustParse(req.BranchID),
		EmployeeID:    actor,
		Source:        req.Source,
		Notes:         req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tx)
}

// Get handles GET /api/v1/transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	tx, err := h.txSvc.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tx)
}

// SetStatus handles POST /api/v1/transactions/:id/status.
func (h *TransactionHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.SetStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	tx, err := h.txSvc.SetTransactionStatus(c.Request.Context(), ports.SetStatusRequest{
		ID:              id,
		Status:          req.Status,
		ActorID:         &actor,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tx)
}

// EditAmount handles PATCH /api/v1/transactions/:id/amount.
func (h *TransactionHandler) EditAmount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.EditAmountRequest
	if !bindJSON(c, &req) {
		return
	}

	tx, err := h.txSvc.EditTransactionAmount(c.Request.Context(), ports.EditAmountRequest{
		ID:      id,
		Amount:  req.Amount,
		ActorID: &actor,
		Reason:  req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tx)
}
