package webhook

import "context"

type ModerationNotice struct {
	GuildID     string `json:"guild_id"`
	UserID      string `json:"user_id"`
	Action      string `json:"action"`
	Reason      string `json:"reason"`
	Weight      int    `json:"weight"`
	StrikeCount int    `json:"strike_count"`
	Soft        bool   `json:"soft"`
	OccurredAt  string `json:"occurred_at"`
}

type Sender interface {
	SendModerationNotice(ctx context.Context, notice ModerationNotice) error
}
