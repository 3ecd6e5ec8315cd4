package chatclient

import (
	"sort"
	"sync"
)

// Store is the authoritative client-side view of the conversation: messages,
// presence, typing status and unread tracking. It is the only shared mutable
// state in the package and is only ever touched through its own methods.
type Store struct {
	mu sync.RWMutex

	messages []ChatMessage
	seen     map[string]bool // message id -> stored

	online   []OnlineUser
	selected string // peer id, "" when no conversation is open
	chatOpen bool
	typing   string // sender id of the single active typing signal

	unread      map[string]int    // peer id -> count
	firstUnread map[string]string // peer id -> message id anchoring the divider

	changes chan struct{}
}

func NewStore() *Store {
	return &Store{
		seen:        map[string]bool{},
		unread:      map[string]int{},
		firstUnread: map[string]string{},
		changes:     make(chan struct{}, 1),
	}
}

// Changes delivers a coalesced signal after every mutation so renderers can
// re-read state. Receivers must treat it as level-triggered.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// SetMessages replaces the whole collection, e.g. when hydrating from a
// history fetch. The caller pre-deduplicates by id.
func (s *Store) SetMessages(msgs []ChatMessage) {
	s.mu.Lock()
	s.messages = append([]ChatMessage(nil), msgs...)
	s.seen = make(map[string]bool, len(msgs))
	for _, m := range msgs {
		s.seen[m.ID] = true
	}
	s.mu.Unlock()
	s.notify()
}

// AddMessage inserts msg unless an entry with the same id already exists.
// Re-delivery after a reconnect replay is therefore a no-op.
func (s *Store) AddMessage(msg ChatMessage) bool {
	s.mu.Lock()
	if s.seen[msg.ID] {
		s.mu.Unlock()
		return false
	}
	s.seen[msg.ID] = true
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Store) Messages() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ChatMessage(nil), s.messages...)
}

// ConversationWith returns the messages exchanged between self and peer, in
// either direction, ordered by creation timestamp. Out-of-order delivery
// across reconnects means insertion order cannot be trusted.
func (s *Store) ConversationWith(self, peer string) []ChatMessage {
	s.mu.RLock()
	out := make([]ChatMessage, 0, len(s.messages))
	for _, m := range s.messages {
		if (m.SenderID == self && m.ReceiverID == peer) ||
			(m.SenderID == peer && m.ReceiverID == self) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

// SetOnlineUsers replaces the presence set atomically. The server may emit
// duplicate ids; the first occurrence wins.
func (s *Store) SetOnlineUsers(users []OnlineUser) {
	deduped := make([]OnlineUser, 0, len(users))
	seen := make(map[string]bool, len(users))
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		deduped = append(deduped, u)
	}
	s.mu.Lock()
	s.online = deduped
	s.mu.Unlock()
	s.notify()
}

func (s *Store) OnlineUsers() []OnlineUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]OnlineUser(nil), s.online...)
}

func (s *Store) SetSelectedUser(id string) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	s.notify()
}

func (s *Store) SelectedUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SetChatOpen records whether the chat panel itself is visible. Unread
// suppression needs both the panel open and the sender selected.
func (s *Store) SetChatOpen(open bool) {
	s.mu.Lock()
	s.chatOpen = open
	s.mu.Unlock()
	s.notify()
}

// Viewing reports whether the user is actively looking at sender's
// conversation right now.
func (s *Store) Viewing(sender string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatOpen && s.selected != "" && s.selected == sender
}

// SetTypingUser writes the single global typing slot; last writer wins.
func (s *Store) SetTypingUser(id string) {
	s.mu.Lock()
	s.typing = id
	s.mu.Unlock()
	s.notify()
}

func (s *Store) TypingUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing
}

// IncrementUnreadFrom bumps sender's unread counter. The first-unread marker
// is set only once so the earliest unread message anchors the divider.
func (s *Store) IncrementUnreadFrom(sender, messageID string) {
	s.mu.Lock()
	s.unread[sender]++
	if _, ok := s.firstUnread[sender]; !ok {
		s.firstUnread[sender] = messageID
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) UnreadFrom(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread[id]
}

func (s *Store) FirstUnreadFrom(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.firstUnread[id]
}

func (s *Store) ClearUnreadCountFor(id string) {
	s.mu.Lock()
	delete(s.unread, id)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) ClearFirstUnreadFor(id string) {
	s.mu.Lock()
	delete(s.firstUnread, id)
	s.mu.Unlock()
	s.notify()
}

// Clear wipes everything; used on logout.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.seen = map[string]bool{}
	s.online = nil
	s.selected = ""
	s.chatOpen = false
	s.typing = ""
	s.unread = map[string]int{}
	s.firstUnread = map[string]string{}
	s.mu.Unlock()
	s.notify()
}
