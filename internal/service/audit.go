package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/internal/models"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditMeta carries the request origin recorded with audit entries.
type AuditMeta struct {
	IP        string
	UserAgent string
}

// auditEntry builds an audit log with values marshalled to JSON.
func auditEntry(actorID, action, resource, resourceID string, values interface{}, meta AuditMeta) *models.AuditLog {
	log := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	if values != nil {
		if payload, err := json.Marshal(values); err == nil {
			log.NewValues = payload
		}
	}
	return log
}

// emitAudit stores the entry; failures never fail the request.
func emitAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, log *models.AuditLog) {
	if audit == nil || log == nil {
		return
	}
	if err := audit.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", log.Action), zap.Error(err))
	}
}
