package repository

import (
	"context"
	"time"

	"github.com/foxseedlab/oshaberin/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresAuditLog struct {
	pool *pgxpool.Pool
}

func NewPostgresAuditLog(pool *pgxpool.Pool) repository.AuditLog {
	return &PostgresAuditLog{pool: pool}
}

func (r *PostgresAuditLog) RecordAction(ctx context.Context, rec repository.ActionRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO moderation_actions (guild_id, user_id, action, reason, weight, strike_count, transcript, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.GuildID, rec.UserID, rec.Action, rec.Reason, rec.Weight, rec.StrikeCount, rec.Transcript, rec.OccurredAt)
	return err
}

func (r *PostgresAuditLog) CountActionsSince(ctx context.Context, guildID, userID string, since time.Time) (int, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM moderation_actions
		 WHERE guild_id = $1 AND user_id = $2 AND occurred_at >= $3`,
		guildID, userID, since)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
