package brain

import "testing"

func TestHistory_RollingWindow(t *testing.T) {
	h := NewHistory(3)
	h.Append("g", "u", RoleSpeaker, "one")
	h.Append("g", "u", RoleAgent, "two")
	h.Append("g", "u", RoleSpeaker, "three")
	h.Append("g", "u", RoleAgent, "four")

	turns := h.Recent("g", "u")
	if len(turns) != 3 {
		t.Fatalf("expected window of 3, got %d", len(turns))
	}
	if turns[0].Text != "two" || turns[2].Text != "four" {
		t.Fatalf("oldest turn not dropped: %+v", turns)
	}
}

func TestHistory_PerSpeaker(t *testing.T) {
	h := NewHistory(5)
	h.Append("g", "u1", RoleSpeaker, "hi")
	if len(h.Recent("g", "u2")) != 0 {
		t.Fatal("histories must be per speaker")
	}
	if len(h.Recent("other", "u1")) != 0 {
		t.Fatal("histories must be per guild")
	}
}

func TestHistory_EmptyTextIgnored(t *testing.T) {
	h := NewHistory(5)
	h.Append("g", "u", RoleSpeaker, "")
	if len(h.Recent("g", "u")) != 0 {
		t.Fatal("empty turns must not be recorded")
	}
}

func TestHistory_RecentReturnsCopy(t *testing.T) {
	h := NewHistory(5)
	h.Append("g", "u", RoleSpeaker, "hi")
	turns := h.Recent("g", "u")
	turns[0].Text = "mutated"
	if h.Recent("g", "u")[0].Text != "hi" {
		t.Fatal("Recent must return a copy")
	}
}
