package service

import (
	"context"

	"github.com/noah-isme/edumarket-api/internal/models"
)

type auditLoggerStub struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if a == nil {
		return nil
	}
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, log)
	return nil
}
