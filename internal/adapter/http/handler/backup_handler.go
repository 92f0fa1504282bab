package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// BackupHandler handles the admin backup endpoints.
type BackupHandler struct {
	backupSvc ports.BackupService
}

// NewBackupHandler creates a new BackupHandler.
func NewBackupHandler(backupSvc ports.BackupService) *BackupHandler {
	return &BackupHandler{backupSvc: backupSvc}
}

// Create handles POST /api/v1/admin/backups. An empty body takes a manual
// backup with a generated name.
func (h *BackupHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CreateBackupRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	kind := domain.BackupKind(req.Kind)
	if kind == "" {
		kind = domain.BackupManual
	}

	backup, err := h.backupSvc.CreateBackup(c.Request.Context(), req.Name, kind, &actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.CtxResourceID, backup.ID)
	response.Created(c, backup)
}

// List handles GET /api/v1/admin/backups.
func (h *BackupHandler) List(c *gin.Context) {
	backups, err := h.backupSvc.ListBackups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewListResponse(backups))
}

// Restore handles POST /api/v1/admin/backups/:id/restore.
func (h *BackupHandler) Restore(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	counts, err := h.backupSvc.RestoreBackup(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.RestoreResponse{BackupID: id.String(), Restored: counts})
}
