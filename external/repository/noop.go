package repository

import (
	"context"
	"time"

	"github.com/foxseedlab/oshaberin/internal/repository"
)

// NoopAuditLog backs deployments without a database: enforcement still
// happens, it just is not recorded anywhere durable.
type NoopAuditLog struct{}

func NewNoopAuditLog() repository.AuditLog {
	return NoopAuditLog{}
}

func (NoopAuditLog) RecordAction(context.Context, repository.ActionRecord) error {
	return nil
}

func (NoopAuditLog) CountActionsSince(context.Context, string, string, time.Time) (int, error) {
	return 0, nil
}
