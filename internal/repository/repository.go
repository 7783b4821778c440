// Package repository defines the moderation audit log. Strike and lockdown
// state itself stays in memory; only the actions taken are recorded, so an
// operator can reconstruct what the agent did and why.
package repository

import (
	"context"
	"time"
)

type ActionRecord struct {
	GuildID     string
	UserID      string
	Action      string
	Reason      string
	Weight      int
	StrikeCount int
	Transcript  string
	OccurredAt  time.Time
}

type AuditLog interface {
	RecordAction(ctx context.Context, rec ActionRecord) error
	CountActionsSince(ctx context.Context, guildID, userID string, since time.Time) (int, error)
}
