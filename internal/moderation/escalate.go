package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/oshaberin/internal/repository"
	"github.com/foxseedlab/oshaberin/internal/webhook"
)

const (
	ActionNotify  = "notify"
	ActionTimeout = "timeout"
	ActionKick    = "kick"
	ActionBan     = "ban"
)

// Enforcer is the slice of the platform client the escalator needs. Every
// enforcement action is permission-guarded so the agent never attempts
// something it lacks rights for.
type Enforcer interface {
	CanEnforce(guildID, action string) bool
	TimeoutMember(guildID, userID string, duration time.Duration, reason string) error
	KickMember(guildID, userID, reason string) error
	BanMember(guildID, userID, reason string) error
	NotifyUser(guildID, userID, message string) error
	PostModerationLog(message string) error
}

type Thresholds struct {
	Timeout         int
	Kick            int
	Ban             int
	TimeoutDuration time.Duration
}

type Escalator struct {
	ledger     *StrikeLedger
	enforcer   Enforcer
	audit      repository.AuditLog
	notices    webhook.Sender
	thresholds Thresholds
}

func NewEscalator(ledger *StrikeLedger, enforcer Enforcer, audit repository.AuditLog, notices webhook.Sender, thresholds Thresholds) *Escalator {
	return &Escalator{
		ledger:     ledger,
		enforcer:   enforcer,
		audit:      audit,
		notices:    notices,
		thresholds: thresholds,
	}
}

// Apply turns a violation verdict into consequences. Soft violations only
// log and privately notify; hard violations accrue the verdict's weight and
// trigger the highest consequence whose threshold the new count reaches.
// Nothing in here may fail the caller: every error is contained and logged.
func (esc *Escalator) Apply(ctx context.Context, mctx Context, v Verdict, transcript string) {
	if !v.Violated {
		return
	}
	action := ActionNotify
	count := esc.ledger.Count(mctx.GuildID, mctx.UserID)
	if !v.Soft {
		count = esc.ledger.Add(mctx.GuildID, mctx.UserID, v.Weight)
		action = esc.actionFor(count)
	}
	slog.Info("moderation violation",
		"guild_id", mctx.GuildID,
		"user_id", mctx.UserID,
		"reason", v.Reason,
		"weight", v.Weight,
		"soft", v.Soft,
		"strike_count", count,
		"action", action)

	esc.notify(mctx, v)
	if !v.Soft && action != ActionNotify {
		esc.enforce(ctx, mctx, action, v.Reason)
	}
	esc.record(ctx, mctx, v, action, count, transcript)
}

func (esc *Escalator) actionFor(count int) string {
	switch {
	case count >= esc.thresholds.Ban:
		return ActionBan
	case count >= esc.thresholds.Kick:
		return ActionKick
	case count >= esc.thresholds.Timeout:
		return ActionTimeout
	default:
		return ActionNotify
	}
}

func (esc *Escalator) notify(mctx Context, v Verdict) {
	msg := fmt.Sprintf("Your last voice message was flagged by the content-safety policy (%s). Please keep it civil.", v.Reason)
	if err := esc.enforcer.NotifyUser(mctx.GuildID, mctx.UserID, msg); err != nil {
		slog.Warn("failed to notify user about violation", "error", err, "guild_id", mctx.GuildID, "user_id", mctx.UserID)
	}
}

func (esc *Escalator) enforce(ctx context.Context, mctx Context, action, reason string) {
	if !esc.enforcer.CanEnforce(mctx.GuildID, action) {
		esc.reportEnforcementFailure(mctx, action, fmt.Errorf("missing permission for %s", action))
		return
	}
	var err error
	switch action {
	case ActionTimeout:
		err = esc.enforcer.TimeoutMember(mctx.GuildID, mctx.UserID, esc.thresholds.TimeoutDuration, reason)
	case ActionKick:
		err = esc.enforcer.KickMember(mctx.GuildID, mctx.UserID, reason)
	case ActionBan:
		err = esc.enforcer.BanMember(mctx.GuildID, mctx.UserID, reason)
	}
	if err != nil {
		esc.reportEnforcementFailure(mctx, action, err)
		return
	}
	slog.Info("moderation enforcement applied", "guild_id", mctx.GuildID, "user_id", mctx.UserID, "action", action)
	esc.logEnforcement(ctx, mctx, action, reason)
}

// enforcementHistoryWindow bounds the recent-history count shown alongside
// each enforcement in the moderation log channel.
const enforcementHistoryWindow = 24 * time.Hour

// logEnforcement posts the applied consequence to the moderation log channel
// together with how many actions the audit log already holds for this member,
// so moderators see repeat offenders without querying the database.
func (esc *Escalator) logEnforcement(ctx context.Context, mctx Context, action, reason string) {
	msg := fmt.Sprintf("Applied %s to <@%s>: %s.", action, mctx.UserID, reason)
	recent, err := esc.audit.CountActionsSince(ctx, mctx.GuildID, mctx.UserID, time.Now().Add(-enforcementHistoryWindow))
	if err != nil {
		slog.Warn("could not count recent moderation actions", "error", err, "guild_id", mctx.GuildID, "user_id", mctx.UserID)
	} else {
		msg += fmt.Sprintf(" Prior recorded actions in the last 24h: %d.", recent)
	}
	if err := esc.enforcer.PostModerationLog(msg); err != nil {
		slog.Warn("failed to post to moderation log channel", "error", err)
	}
}

func (esc *Escalator) reportEnforcementFailure(mctx Context, action string, cause error) {
	slog.Error("moderation enforcement failed", "error", cause, "guild_id", mctx.GuildID, "user_id", mctx.UserID, "action", action)
	msg := fmt.Sprintf("Could not %s <@%s>: %v", action, mctx.UserID, cause)
	if err := esc.enforcer.PostModerationLog(msg); err != nil {
		slog.Warn("failed to post to moderation log channel", "error", err)
	}
}

func (esc *Escalator) record(ctx context.Context, mctx Context, v Verdict, action string, count int, transcript string) {
	now := time.Now()
	if err := esc.audit.RecordAction(ctx, repository.ActionRecord{
		GuildID:     mctx.GuildID,
		UserID:      mctx.UserID,
		Action:      action,
		Reason:      v.Reason,
		Weight:      v.Weight,
		StrikeCount: count,
		Transcript:  transcript,
		OccurredAt:  now,
	}); err != nil {
		slog.Error("failed to record moderation action", "error", err, "guild_id", mctx.GuildID, "user_id", mctx.UserID)
	}
	if err := esc.notices.SendModerationNotice(ctx, webhook.ModerationNotice{
		GuildID:     mctx.GuildID,
		UserID:      mctx.UserID,
		Action:      action,
		Reason:      v.Reason,
		Weight:      v.Weight,
		StrikeCount: count,
		Soft:        v.Soft,
		OccurredAt:  now.UTC().Format(time.RFC3339),
	}); err != nil {
		slog.Error("failed to send moderation webhook notice", "error", err, "guild_id", mctx.GuildID, "user_id", mctx.UserID)
	}
}
