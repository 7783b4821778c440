package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/oshaberin/internal/discord"
	"github.com/foxseedlab/oshaberin/internal/moderation"
)

type Client struct {
	session                *discordgo.Session
	token                  string
	moderationLogChannelID string
	botUserID              string
}

func NewClient(token, moderationLogChannelID string) discordpkg.Client {
	return &Client{
		token:                  token,
		moderationLogChannelID: moderationLogChannelID,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(
		discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildVoiceStates,
	)
	s.State.TrackVoice = true
	s.State.TrackMembers = true
	if err := s.Open(); err != nil {
		return err
	}
	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) JoinVoiceChannel(guildID, channelID string) (discordpkg.VoiceConnection, error) {
	vc, err := c.session.ChannelVoiceJoin(guildID, channelID, false, false)
	if err != nil {
		return nil, err
	}
	return newVoiceConnection(vc), nil
}

func (c *Client) SendChannelMessage(channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content)
	return err
}

func (c *Client) RegisterVoiceStateUpdateHandler(handler func(discordpkg.VoiceStateEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		if vs == nil {
			return
		}
		beforeChannelID := ""
		if vs.BeforeUpdate != nil {
			beforeChannelID = vs.BeforeUpdate.ChannelID
		}
		afterChannelID := vs.ChannelID
		if beforeChannelID == afterChannelID && beforeChannelID != "" {
			return
		}
		if vs.GuildID == "" || vs.UserID == "" {
			return
		}
		handler(discordpkg.VoiceStateEvent{
			GuildID:         vs.GuildID,
			UserID:          vs.UserID,
			UserIsBot:       c.resolveUserIsBot(vs.GuildID, vs.UserID, vs.VoiceState),
			BeforeChannelID: beforeChannelID,
			AfterChannelID:  afterChannelID,
		})
	})
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

// GetMemberDisplayName prefers the guild nickname, then the global display
// name, then the username. The caller treats an error as "use the user id".
func (c *Client) GetMemberDisplayName(guildID, userID string) (string, error) {
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	member := c.resolveGuildMember(guildID, userID)
	if member != nil {
		if member.Nick != "" {
			return member.Nick, nil
		}
		if member.User != nil {
			if name := preferredDiscordName(member.User.GlobalName, member.User.Username, ""); name != "" {
				return name, nil
			}
		}
	}
	u, err := c.session.User(userID)
	if err != nil {
		return "", err
	}
	if name := preferredDiscordName(u.GlobalName, u.Username, ""); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("no display name for user %s", userID)
}

func (c *Client) CanEnforce(guildID, action string) bool {
	var needed int64
	switch action {
	case moderation.ActionTimeout:
		needed = discordgo.PermissionModerateMembers
	case moderation.ActionKick:
		needed = discordgo.PermissionKickMembers
	case moderation.ActionBan:
		needed = discordgo.PermissionBanMembers
	default:
		return true
	}
	perms := c.botGuildPermissions(guildID)
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&needed != 0
}

func (c *Client) TimeoutMember(guildID, userID string, duration time.Duration, reason string) error {
	until := time.Now().Add(duration)
	return c.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithAuditLogReason(reason))
}

func (c *Client) KickMember(guildID, userID, reason string) error {
	return c.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (c *Client) BanMember(guildID, userID, reason string) error {
	return c.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (c *Client) NotifyUser(guildID, userID, message string) error {
	_ = guildID
	ch, err := c.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = c.session.ChannelMessageSend(ch.ID, message)
	return err
}

func (c *Client) PostModerationLog(message string) error {
	if c.moderationLogChannelID == "" {
		slog.Debug("moderation log channel is not configured; dropping log entry")
		return nil
	}
	_, err := c.session.ChannelMessageSend(c.moderationLogChannelID, message)
	if isRESTNotFound(err) {
		slog.Warn("moderation log channel does not exist; dropping log entry", "channel_id", c.moderationLogChannelID)
		return nil
	}
	return err
}

// botGuildPermissions computes the bot's guild-level permission set from its
// roles. The guild owner implicitly holds every permission.
func (c *Client) botGuildPermissions(guildID string) int64 {
	guild := c.resolveGuild(guildID)
	if guild == nil {
		return 0
	}
	if guild.OwnerID != "" && guild.OwnerID == c.botUserID {
		return discordgo.PermissionAdministrator
	}
	member := c.resolveGuildMember(guildID, c.botUserID)
	if member == nil {
		return 0
	}
	roleByID := make(map[string]*discordgo.Role, len(guild.Roles))
	var perms int64
	for _, role := range guild.Roles {
		if role == nil {
			continue
		}
		roleByID[role.ID] = role
		if role.ID == guild.ID {
			// @everyone applies to every member.
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		if role, ok := roleByID[roleID]; ok {
			perms |= role.Permissions
		}
	}
	return perms
}

func (c *Client) resolveUserIsBot(guildID, userID string, state *discordgo.VoiceState) bool {
	if isBot, ok := botFlagFromVoiceState(state); ok {
		return isBot
	}
	if isBot, ok := c.botFlagFromSessionState(guildID, userID); ok {
		return isBot
	}
	return c.botFlagFromUserAPI(userID)
}

func botFlagFromVoiceState(state *discordgo.VoiceState) (bool, bool) {
	if state != nil && state.Member != nil && state.Member.User != nil {
		return state.Member.User.Bot, true
	}
	return false, false
}

func (c *Client) botFlagFromSessionState(guildID, userID string) (bool, bool) {
	if c.session == nil || c.session.State == nil {
		return false, false
	}
	if c.session.State.User != nil && c.session.State.User.ID == userID {
		return true, true
	}
	member, err := c.session.State.Member(guildID, userID)
	if err == nil && member != nil && member.User != nil {
		return member.User.Bot, true
	}
	return false, false
}

func (c *Client) botFlagFromUserAPI(userID string) bool {
	u, err := c.session.User(userID)
	if err != nil {
		return false
	}
	return u.Bot
}

func (c *Client) resolveGuild(guildID string) *discordgo.Guild {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		guild, err := c.session.State.Guild(guildID)
		if err == nil && guild != nil {
			return guild
		}
	}
	guild, err := c.session.Guild(guildID)
	if err != nil || guild == nil {
		return nil
	}
	return guild
}

func (c *Client) resolveGuildMember(guildID, userID string) *discordgo.Member {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		member, err := c.session.State.Member(guildID, userID)
		if err == nil && member != nil {
			return member
		}
	}
	member, err := c.session.GuildMember(guildID, userID)
	if err != nil {
		return nil
	}
	return member
}

func preferredDiscordName(globalName, username, fallback string) string {
	if globalName != "" {
		return globalName
	}
	if username != "" {
		return username
	}
	return fallback
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}

func (c *Client) Run() error {
	select {}
}

type voiceConnectionImpl struct {
	vc *discordgo.VoiceConnection

	mu         sync.RWMutex
	ssrcToUser map[uint32]string
	handlers   []func(discordpkg.SpeakingEvent)
}

func newVoiceConnection(vc *discordgo.VoiceConnection) *voiceConnectionImpl {
	v := &voiceConnectionImpl{
		vc:         vc,
		ssrcToUser: make(map[uint32]string),
	}
	vc.AddHandler(func(_ *discordgo.VoiceConnection, vs *discordgo.VoiceSpeakingUpdate) {
		if vs == nil || vs.UserID == "" {
			return
		}
		v.mu.Lock()
		if vs.Speaking {
			v.ssrcToUser[uint32(vs.SSRC)] = vs.UserID
		}
		handlers := make([]func(discordpkg.SpeakingEvent), len(v.handlers))
		copy(handlers, v.handlers)
		v.mu.Unlock()
		for _, handler := range handlers {
			handler(discordpkg.SpeakingEvent{UserID: vs.UserID, Speaking: vs.Speaking})
		}
	})
	return v
}

func (v *voiceConnectionImpl) Disconnect() error {
	return v.vc.Disconnect()
}

func (v *voiceConnectionImpl) RegisterSpeakingUpdate(handler func(discordpkg.SpeakingEvent)) {
	v.mu.Lock()
	v.handlers = append(v.handlers, handler)
	v.mu.Unlock()
}

// ReceiveAudio pumps inbound packets to the callback from a background
// goroutine; the loop ends when the connection's receive channel closes.
func (v *voiceConnectionImpl) ReceiveAudio(callback func(userID string, opusPacket []byte)) {
	if v.vc.OpusRecv == nil {
		return
	}
	go func() {
		for p := range v.vc.OpusRecv {
			if p == nil || len(p.Opus) == 0 {
				continue
			}
			v.mu.RLock()
			userID := v.ssrcToUser[p.SSRC]
			v.mu.RUnlock()
			if userID == "" {
				userID = strconv.FormatUint(uint64(p.SSRC), 10)
			}
			callback(userID, p.Opus)
		}
	}()
}

func (v *voiceConnectionImpl) SendOpusFrame(frame []byte) error {
	if v.vc.OpusSend == nil {
		return fmt.Errorf("voice connection has no send channel")
	}
	v.vc.OpusSend <- frame
	return nil
}

func (v *voiceConnectionImpl) SetSpeaking(speaking bool) error {
	return v.vc.Speaking(speaking)
}
