package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// BranchHandler handles branch endpoints.
type BranchHandler struct {
	branchSvc ports.BranchService
}

// NewBranchHandler creates a new BranchHandler.
func NewBranchHandler(branchSvc ports.BranchService) *BranchHandler {
	return &BranchHandler{branchSvc: branchSvc}
}

// Create handles POST /api/v1/branches.
func (h *BranchHandler) Create(c *gin.Context) {
	var req dto.CreateBranchRequest
	if !bindJSON(c, &req) {
		return
	}

	branch, err := h.branchSvc.CreateBranch(c.Request.Context(), ports.CreateBranchRequest{
		Name:           req.Name,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, branch)
}

// Get handles GET /api/v1/branches/:id.
func (h *BranchHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	branch, err := h.branchSvc.GetBranch(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, branch)
}
