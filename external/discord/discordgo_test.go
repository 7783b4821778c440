package discord

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/foxseedlab/oshaberin/internal/moderation"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestSession(t *testing.T, rt roundTripFunc) *discordgo.Session {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if rt != nil {
		s.Client = &http.Client{Transport: rt}
	}
	return s
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestGetMemberDisplayName_UsesStateNicknameFirst(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return nil, nil
	})
	if err := s.State.GuildAdd(&discordgo.Guild{ID: "guild-1"}); err != nil {
		t.Fatalf("failed to add guild to state: %v", err)
	}
	if err := s.State.MemberAdd(&discordgo.Member{
		GuildID: "guild-1",
		Nick:    "Captain",
		User:    &discordgo.User{ID: "user-1", Username: "captain_raw"},
	}); err != nil {
		t.Fatalf("failed to add member to state: %v", err)
	}

	c := &Client{session: s}
	name, err := c.GetMemberDisplayName("guild-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Captain" {
		t.Fatalf("expected Captain, got %q", name)
	}
}

func TestGetMemberDisplayName_FallsBackToRESTUserWhenStateIsCold(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/guilds/guild-1/members/user-1") {
			return jsonResponse(http.StatusNotFound, `{"message":"Unknown Member","code":10007}`), nil
		}
		if strings.HasSuffix(req.URL.Path, "/users/user-1") {
			return jsonResponse(http.StatusOK, `{"id":"user-1","username":"captain_raw","global_name":"Captain"}`), nil
		}
		t.Fatalf("unexpected request path: %s", req.URL.Path)
		return nil, nil
	})

	c := &Client{session: s}
	name, err := c.GetMemberDisplayName("guild-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Captain" {
		t.Fatalf("expected Captain, got %q", name)
	}
}

func TestCanEnforce_ReflectsBotRolePermissions(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return nil, nil
	})
	if err := s.State.GuildAdd(&discordgo.Guild{
		ID:      "guild-1",
		OwnerID: "someone-else",
		Roles: []*discordgo.Role{
			{ID: "guild-1", Permissions: discordgo.PermissionViewChannel},
			{ID: "role-mod", Permissions: discordgo.PermissionModerateMembers | discordgo.PermissionKickMembers},
		},
	}); err != nil {
		t.Fatalf("failed to add guild to state: %v", err)
	}
	if err := s.State.MemberAdd(&discordgo.Member{
		GuildID: "guild-1",
		Roles:   []string{"role-mod"},
		User:    &discordgo.User{ID: "bot-1", Bot: true},
	}); err != nil {
		t.Fatalf("failed to add member to state: %v", err)
	}

	c := &Client{session: s, botUserID: "bot-1"}
	if !c.CanEnforce("guild-1", moderation.ActionTimeout) {
		t.Fatal("expected timeout to be allowed")
	}
	if !c.CanEnforce("guild-1", moderation.ActionKick) {
		t.Fatal("expected kick to be allowed")
	}
	if c.CanEnforce("guild-1", moderation.ActionBan) {
		t.Fatal("expected ban to be denied without the ban permission")
	}
	if !c.CanEnforce("guild-1", moderation.ActionNotify) {
		t.Fatal("notify needs no permission")
	}
}

func TestCanEnforce_GuildOwnerHoldsEverything(t *testing.T) {
	s := newTestSession(t, nil)
	if err := s.State.GuildAdd(&discordgo.Guild{ID: "guild-1", OwnerID: "bot-1"}); err != nil {
		t.Fatalf("failed to add guild to state: %v", err)
	}

	c := &Client{session: s, botUserID: "bot-1"}
	if !c.CanEnforce("guild-1", moderation.ActionBan) {
		t.Fatal("expected owner to be allowed to ban")
	}
}

func TestPostModerationLog_UnconfiguredChannelIsDropped(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return nil, nil
	})

	c := &Client{session: s}
	if err := c.PostModerationLog("should be dropped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPostModerationLog_MissingChannelIsNotAnError(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"Unknown Channel","code":10003}`), nil
	})

	c := &Client{session: s, moderationLogChannelID: "log-1"}
	if err := c.PostModerationLog("entry"); err != nil {
		t.Fatalf("expected missing channel to be swallowed, got: %v", err)
	}
}

func TestNotifyUser_SendsThroughDMChannel(t *testing.T) {
	sentToDM := false
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/users/@me/channels") {
			return jsonResponse(http.StatusOK, `{"id":"dm-1","type":1}`), nil
		}
		if strings.HasSuffix(req.URL.Path, "/channels/dm-1/messages") {
			sentToDM = true
			return jsonResponse(http.StatusOK, `{"id":"msg-1","channel_id":"dm-1"}`), nil
		}
		t.Fatalf("unexpected request path: %s", req.URL.Path)
		return nil, nil
	})

	c := &Client{session: s}
	if err := c.NotifyUser("guild-1", "user-1", "please stop"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sentToDM {
		t.Fatal("expected the notice to be sent to the DM channel")
	}
}
