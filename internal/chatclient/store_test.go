package chatclient

import (
	"testing"
)

func msg(id, sender, receiver, body, created string) ChatMessage {
	return ChatMessage{ID: id, SenderID: sender, ReceiverID: receiver, Body: body, CreatedAt: created}
}

func TestAddMessageIdempotent(t *testing.T) {
	s := NewStore()

	if !s.AddMessage(msg("m1", "a", "b", "hi", "2026-01-01T10:00:00Z")) {
		t.Fatal("first AddMessage should report a new entry")
	}
	if s.AddMessage(msg("m1", "a", "b", "hi again", "2026-01-01T10:00:01Z")) {
		t.Fatal("second AddMessage with the same id should be a no-op")
	}
	if got := len(s.Messages()); got != 1 {
		t.Fatalf("expected 1 stored message, got %d", got)
	}
	if s.Messages()[0].Body != "hi" {
		t.Error("duplicate delivery must not overwrite the original entry")
	}
}

func TestSetOnlineUsersDeduplicates(t *testing.T) {
	s := NewStore()
	s.SetOnlineUsers([]OnlineUser{
		{ID: "a", Username: "alice"},
		{ID: "a", Username: "alice-duplicate"},
		{ID: "b", Username: "bob"},
	})

	users := s.OnlineUsers()
	if len(users) != 2 {
		t.Fatalf("expected 2 users after dedup, got %d", len(users))
	}
	if users[0].ID != "a" || users[0].Username != "alice" {
		t.Errorf("first occurrence should win, got %+v", users[0])
	}
	if users[1].ID != "b" {
		t.Errorf("expected second user b, got %+v", users[1])
	}

	// Full replacement, not a merge.
	s.SetOnlineUsers([]OnlineUser{{ID: "c", Username: "carol"}})
	users = s.OnlineUsers()
	if len(users) != 1 || users[0].ID != "c" {
		t.Errorf("expected presence set replaced with only c, got %+v", users)
	}
}

func TestUnreadTracking(t *testing.T) {
	s := NewStore()

	s.IncrementUnreadFrom("c", "m1")
	if got := s.UnreadFrom("c"); got != 1 {
		t.Fatalf("expected unread 1, got %d", got)
	}
	if got := s.FirstUnreadFrom("c"); got != "m1" {
		t.Fatalf("expected first-unread marker m1, got %q", got)
	}

	s.IncrementUnreadFrom("c", "m2")
	if got := s.UnreadFrom("c"); got != 2 {
		t.Fatalf("expected unread 2, got %d", got)
	}
	if got := s.FirstUnreadFrom("c"); got != "m1" {
		t.Errorf("first-unread marker must keep the earliest id, got %q", got)
	}

	s.ClearUnreadCountFor("c")
	if got := s.UnreadFrom("c"); got != 0 {
		t.Errorf("expected unread cleared, got %d", got)
	}
	if got := s.FirstUnreadFrom("c"); got != "m1" {
		t.Errorf("clearing the counter must not clear the divider marker, got %q", got)
	}

	s.ClearFirstUnreadFor("c")
	if got := s.FirstUnreadFrom("c"); got != "" {
		t.Errorf("expected first-unread cleared, got %q", got)
	}
}

func TestConversationWithOrdersByTimestamp(t *testing.T) {
	s := NewStore()
	// Out-of-order arrival, as after a reconnect.
	s.AddMessage(msg("m2", "peer", "me", "second", "2026-01-01T10:00:02Z"))
	s.AddMessage(msg("m1", "me", "peer", "first", "2026-01-01T10:00:01Z"))
	s.AddMessage(msg("m3", "peer", "me", "third", "2026-01-01T10:00:03Z"))
	s.AddMessage(msg("x1", "me", "other", "unrelated", "2026-01-01T10:00:00Z"))

	conv := s.ConversationWith("me", "peer")
	if len(conv) != 3 {
		t.Fatalf("expected 3 messages in conversation, got %d", len(conv))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if conv[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, conv[i].ID)
		}
	}
}

func TestViewing(t *testing.T) {
	s := NewStore()
	if s.Viewing("b") {
		t.Error("nothing selected, Viewing must be false")
	}
	s.SetSelectedUser("b")
	if s.Viewing("b") {
		t.Error("panel closed, Viewing must be false")
	}
	s.SetChatOpen(true)
	if !s.Viewing("b") {
		t.Error("panel open and peer selected, Viewing must be true")
	}
	if s.Viewing("c") {
		t.Error("different sender, Viewing must be false")
	}
}

func TestSetMessagesReplacesAndTracksIDs(t *testing.T) {
	s := NewStore()
	s.AddMessage(msg("old", "a", "b", "stale", "2026-01-01T09:00:00Z"))
	s.SetMessages([]ChatMessage{
		msg("h1", "a", "b", "one", "2026-01-01T10:00:00Z"),
		msg("h2", "b", "a", "two", "2026-01-01T10:00:01Z"),
	})

	if got := len(s.Messages()); got != 2 {
		t.Fatalf("expected hydrated collection of 2, got %d", got)
	}
	if s.AddMessage(msg("h1", "a", "b", "one", "2026-01-01T10:00:00Z")) {
		t.Error("hydrated ids must dedup subsequent live delivery")
	}
	if !s.AddMessage(msg("old", "a", "b", "stale", "2026-01-01T09:00:00Z")) {
		t.Error("ids dropped by SetMessages are insertable again")
	}
}

func TestClearWipesEverything(t *testing.T) {
	s := NewStore()
	s.AddMessage(msg("m1", "a", "b", "hi", "2026-01-01T10:00:00Z"))
	s.SetOnlineUsers([]OnlineUser{{ID: "a", Username: "alice"}})
	s.SetSelectedUser("a")
	s.SetTypingUser("a")
	s.IncrementUnreadFrom("a", "m1")

	s.Clear()

	if len(s.Messages()) != 0 || len(s.OnlineUsers()) != 0 {
		t.Error("expected messages and presence cleared")
	}
	if s.SelectedUser() != "" || s.TypingUser() != "" {
		t.Error("expected selection and typing cleared")
	}
	if s.UnreadFrom("a") != 0 || s.FirstUnreadFrom("a") != "" {
		t.Error("expected unread tracking cleared")
	}
}
