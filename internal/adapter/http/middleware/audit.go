package middleware

import (
	"net/http"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CtxResourceID lets a handler name the row it created for the audit entry.
const CtxResourceID = "resource_id"

type adminAction struct {
	op       domain.AuditOperation
	resource string
}

// adminActions maps route templates to the audit record they produce.
var adminActions = map[string]adminAction{
	http.MethodPost + " /api/v1/admin/backups":             {domain.AuditOpCreation, domain.ResourceBackup},
	http.MethodPost + " /api/v1/admin/backups/:id/restore": {domain.AuditOpRestore, domain.ResourceBackup},
}

// AdminAudit appends an audit entry after every successful administrative
// write. Ledger mutations are audited by the services themselves.
func AdminAudit(auditSvc ports.AuditService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		action, ok := adminActions[c.Request.Method+" "+c.FullPath()]
		if !ok {
			return
		}

		entry := &domain.AuditEntry{
			Operation:    action.op,
			ResourceType: action.resource,
			Metadata: map[string]any{
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"client_ip":  c.ClientIP(),
				"request_id": c.GetString(CtxRequestID),
			},
		}
		if actor, ok := ActorID(c); ok {
			entry.ActorID = &actor
		}
		if id, ok := resourceID(c); ok {
			entry.ResourceID = &id
		}

		if err := auditSvc.Append(c.Request.Context(), entry); err != nil {
			log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("admin audit append failed")
		}
	}
}

func resourceID(c *gin.Context) (uuid.UUID, bool) {
	if v, ok := c.Get(CtxResourceID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	id, err := uuid.Parse(c.Param("id"))
	return id, err == nil
}
