package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAdminAudit_BackupCreated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	actor := uuid.New()
	backupID := uuid.New()

	mockAudit.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.AuditEntry) error {
			assert.Equal(t, domain.AuditOpCreation, e.Operation)
			assert.Equal(t, domain.ResourceBackup, e.ResourceType)
			assert.Equal(t, actor, *e.ActorID)
			assert.Equal(t, backupID, *e.ResourceID)
			assert.Nil(t, e.TransactionID)
			assert.Equal(t, "/api/v1/admin/backups", e.Metadata["path"])
			return nil
		},
	)

	r := gin.New()
	r.Use(AdminAudit(mockAudit, zerolog.Nop()))
	r.POST("/api/v1/admin/backups", func(c *gin.Context) {
		c.Set(CtxActorID, actor)
		c.Set(CtxResourceID, backupID)
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/backups", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAdminAudit_RestoreUsesPathID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	backupID := uuid.New()

	mockAudit.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.AuditEntry) error {
			assert.Equal(t, domain.AuditOpRestore, e.Operation)
			assert.Equal(t, backupID, *e.ResourceID)
			assert.Nil(t, e.ActorID)
			return nil
		},
	)

	r := gin.New()
	r.Use(AdminAudit(mockAudit, zerolog.Nop()))
	r.POST("/api/v1/admin/backups/:id/restore", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/backups/"+backupID.String()+"/restore", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAudit_SkipsReadsAndFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No expectations: Append must not be called.
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AdminAudit(mockAudit, zerolog.Nop()))
	r.GET("/api/v1/admin/backups", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"items": []string{}})
	})
	r.POST("/api/v1/admin/backups/:id/restore", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error_code": "LED_001"})
	})
	r.POST("/api/v1/transactions", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/admin/backups", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/admin/backups/"+uuid.NewString()+"/restore", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func TestAdminAudit_AppendFailureDoesNotChangeResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	mockAudit.EXPECT().Append(gomock.Any(), gomock.Any()).Return(assert.AnError)

	r := gin.New()
	r.Use(AdminAudit(mockAudit, zerolog.Nop()))
	r.POST("/api/v1/admin/backups", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/backups", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}
