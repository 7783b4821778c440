// Package router ties a finished transcript to an outcome: a slot fill, a
// fast-path command, or a conversational reply — after the wake gate and the
// content-safety scan have had their say.
package router

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/oshaberin/internal/brain"
	"github.com/foxseedlab/oshaberin/internal/convo"
	"github.com/foxseedlab/oshaberin/internal/moderation"
	"github.com/foxseedlab/oshaberin/internal/wake"
)

// Request is one utterance to handle. Text holds the command remainder for
// fast-path handlers and the filled value for slot handlers.
type Request struct {
	GuildID     string
	ChannelID   string
	UserID      string
	SpeakerName string
	Text        string
}

// Response is what a handler wants said, and optionally a slot the agent now
// waits on (a clarifying question it just asked).
type Response struct {
	Speech    string
	AwaitSlot string
}

type HandlerFunc func(ctx context.Context, req Request) (Response, error)

// Command is one fast-path intent, triggered by its first-token verbs.
type Command struct {
	Name   string
	Verbs  []string
	Handle HandlerFunc
}

// Table is the routing table consumed from the command surface: fast-path
// commands plus resolvers for pending slots.
type Table struct {
	Commands []Command
	Slots    map[string]HandlerFunc
}

// Output is where spoken replies go. The orchestrator backs it with the
// synthesis gateway and the guild playback queue, keeping ordering FIFO.
type Output interface {
	Say(ctx context.Context, guildID, label, text string)
}

type ModerationHook interface {
	Scan(text string, mctx moderation.Context) moderation.Verdict
	Apply(ctx context.Context, mctx moderation.Context, v moderation.Verdict, transcript string)
}

type Router struct {
	profile        wake.Profile
	sessions       *convo.Tracker
	mod            ModerationHook
	table          Table
	responder      brain.Responder
	history        *brain.History
	out            Output
	relaxedFn      func(channelID string) bool
	exemptFn       func(channelID, userID string) bool
	promptDebounce time.Duration
}

type Options struct {
	Profile        wake.Profile
	Sessions       *convo.Tracker
	Moderation     ModerationHook
	Table          Table
	Responder      brain.Responder
	History        *brain.History
	Output         Output
	RelaxedFn      func(channelID string) bool
	ExemptFn       func(channelID, userID string) bool
	PromptDebounce time.Duration
}

func New(opts Options) *Router {
	return &Router{
		profile:        opts.Profile,
		sessions:       opts.Sessions,
		mod:            opts.Moderation,
		table:          opts.Table,
		responder:      opts.Responder,
		history:        opts.History,
		out:            opts.Output,
		relaxedFn:      opts.RelaxedFn,
		exemptFn:       opts.ExemptFn,
		promptDebounce: opts.PromptDebounce,
	}
}

// HandleTranscript processes one speaker turn end to end. It never returns
// an error: a miss or a failure resolves to dropping the turn.
func (r *Router) HandleTranscript(ctx context.Context, req Request) {
	if strings.TrimSpace(req.Text) == "" {
		return
	}

	// The safety scan sees everything heard, including utterances that never
	// wake the agent.
	if r.moderate(ctx, req) {
		return
	}

	content, engaged := r.gate(req)
	if !engaged {
		return
	}

	if r.resolveSlot(ctx, req, content) {
		return
	}
	if r.dispatchCommand(ctx, req, content) {
		return
	}
	r.converse(ctx, req, content)
}

// gate applies the wake/session check and returns the content to route.
// With engagement not required, a live session continues without a fresh
// wake (continuation only, never free-floating listening). With engagement
// required, every turn needs the alias again, except an answer to a
// clarifying question the agent itself asked. On either path a miss
// silently drops the turn.
func (r *Router) gate(req Request) (string, bool) {
	if sess := r.sessions.Get(req.GuildID, req.UserID); sess != nil {
		if !r.profile.EngagementRequired || sess.Awaiting != "" {
			r.sessions.Extend(req.GuildID, req.UserID)
			return req.Text, true
		}
	}
	res := wake.Detect(req.Text, r.profile)
	if !res.Wake {
		slog.Debug("turn dropped: not directed at agent",
			"guild_id", req.GuildID, "user_id", req.UserID, "reason", res.Reason)
		return "", false
	}
	slog.Info("wake detected",
		"guild_id", req.GuildID,
		"user_id", req.UserID,
		"alias", res.Alias,
		"confidence", res.Confidence)
	r.sessions.Wake(req.GuildID, req.UserID)
	if strings.TrimSpace(res.Remainder) == "" {
		r.out.Say(context.Background(), req.GuildID, "wake_ack", "Yes?")
		return "", false
	}
	return res.Remainder, true
}

// moderate scans the full transcript and reports whether the turn is
// consumed by a violation. Both soft and hard violations suppress the
// reply; only hard ones accrue strikes, inside Apply.
func (r *Router) moderate(ctx context.Context, req Request) bool {
	mctx := moderation.Context{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		UserID:    req.UserID,
		Relaxed:   r.relaxedFn(req.ChannelID),
		Exempt:    r.exemptFn(req.ChannelID, req.UserID),
	}
	v := r.mod.Scan(req.Text, mctx)
	if !v.Violated {
		return false
	}
	r.mod.Apply(ctx, mctx, v, req.Text)
	return true
}

func (r *Router) resolveSlot(ctx context.Context, req Request, content string) bool {
	slot := r.sessions.Awaiting(req.GuildID, req.UserID)
	if slot == "" {
		return false
	}
	handler, ok := r.table.Slots[slot]
	if !ok {
		slog.Warn("no resolver for pending slot; clearing", "slot", slot, "guild_id", req.GuildID, "user_id", req.UserID)
		r.sessions.SetAwaiting(req.GuildID, req.UserID, "")
		return false
	}
	req.Text = content
	resp, err := handler(ctx, req)
	if err != nil {
		slog.Error("slot handler failed", "error", err, "slot", slot, "guild_id", req.GuildID)
		r.sessions.SetAwaiting(req.GuildID, req.UserID, "")
		return true
	}
	r.sessions.SetAwaiting(req.GuildID, req.UserID, resp.AwaitSlot)
	r.speak(ctx, req.GuildID, "slot_"+slot, resp.Speech)
	return true
}

func (r *Router) dispatchCommand(ctx context.Context, req Request, content string) bool {
	verb, rest := splitVerb(content)
	for _, cmd := range r.table.Commands {
		if !matchesVerb(cmd, verb) {
			continue
		}
		req.Text = rest
		resp, err := cmd.Handle(ctx, req)
		if err != nil {
			slog.Error("command handler failed", "error", err, "command", cmd.Name, "guild_id", req.GuildID)
			return true
		}
		if resp.AwaitSlot != "" {
			if !r.sessions.ShouldPromptAgain(req.GuildID, req.UserID, r.promptDebounce) {
				slog.Debug("clarifying prompt debounced", "slot", resp.AwaitSlot, "guild_id", req.GuildID, "user_id", req.UserID)
				return true
			}
			r.sessions.SetAwaiting(req.GuildID, req.UserID, resp.AwaitSlot)
		}
		r.speak(ctx, req.GuildID, "cmd_"+cmd.Name, resp.Speech)
		return true
	}
	return false
}

func (r *Router) converse(ctx context.Context, req Request, content string) {
	reply, err := r.responder.Reply(ctx, brain.Request{
		GuildID:     req.GuildID,
		UserID:      req.UserID,
		SpeakerName: req.SpeakerName,
		Transcript:  content,
		History:     r.history.Recent(req.GuildID, req.UserID),
	})
	if err != nil {
		slog.Error("conversational reply failed; dropping turn", "error", err, "guild_id", req.GuildID, "user_id", req.UserID)
		return
	}
	r.history.Append(req.GuildID, req.UserID, brain.RoleSpeaker, content)
	r.history.Append(req.GuildID, req.UserID, brain.RoleAgent, reply)
	r.speak(ctx, req.GuildID, "reply", reply)
}

func (r *Router) speak(ctx context.Context, guildID, label, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	r.out.Say(ctx, guildID, label, text)
}

func splitVerb(content string) (string, string) {
	fields := strings.Fields(strings.ToLower(content))
	if len(fields) == 0 {
		return "", ""
	}
	rest := strings.TrimSpace(content[len(fields[0]):])
	return strings.Trim(fields[0], ".,!?"), rest
}

func matchesVerb(cmd Command, verb string) bool {
	for _, v := range cmd.Verbs {
		if v == verb {
			return true
		}
	}
	return false
}
