package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hamza-v/dash-chat/internal/chatclient"
)

type storeChangedMsg struct{}
type toastMsg string
type historyMsg struct{ err error }

type model struct {
	session *chatclient.Session
	toasts  chan string

	viewport viewport.Model
	textbox  textarea.Model

	users  []chatclient.OnlineUser
	cursor int
	status string

	meStyle      lipgloss.Style
	otherStyle   lipgloss.Style
	dimStyle     lipgloss.Style
	dividerStyle lipgloss.Style
}

func initialModel(session *chatclient.Session, toasts chan string) model {
	m := model{session: session, toasts: toasts}

	m.viewport = viewport.New(80, 14)

	m.textbox = textarea.New()
	m.textbox.Focus()
	m.textbox.Placeholder = "Send a message..."
	m.textbox.Prompt = "┃ "
	m.textbox.CharLimit = 1000
	m.textbox.ShowLineNumbers = false
	m.textbox.SetHeight(3)
	m.textbox.SetWidth(80)

	m.meStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8"))
	m.otherStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45f"))
	m.dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	m.dividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f66"))

	m.session.Store().SetChatOpen(true)
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.waitForChange(), m.waitForToast())
}

func (m model) waitForChange() tea.Cmd {
	ch := m.session.Store().Changes()
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

func (m model) waitForToast() tea.Cmd {
	return func() tea.Msg {
		return toastMsg(<-m.toasts)
	}
}

func (m model) loadHistory(peer string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return historyMsg{err: m.session.LoadHistory(ctx, peer)}
	}
}

func (m model) selectedPeer() string {
	return m.session.Store().SelectedUser()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.session.Close()
			return m, tea.Quit
		case "tab":
			if len(m.users) > 0 {
				m.cursor = (m.cursor + 1) % len(m.users)
				peer := m.users[m.cursor].ID
				m.session.SelectPeer(peer)
				m.refresh()
				return m, m.loadHistory(peer)
			}
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.textbox.Value())
			peer := m.selectedPeer()
			if text != "" && peer != "" {
				m.session.Typing().Stop()
				m.session.Sender().SendMessage(text, peer)
				m.textbox.Reset()
			}
			return m, nil
		default:
			if peer := m.selectedPeer(); peer != "" && msg.Type == tea.KeyRunes {
				m.session.Typing().Keystroke(peer)
			}
		}

	case storeChangedMsg:
		m.refresh()
		return m, m.waitForChange()

	case toastMsg:
		m.status = string(msg)
		return m, m.waitForToast()

	case historyMsg:
		if msg.err != nil {
			m.status = "history: " + msg.err.Error()
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.textbox, cmd = m.textbox.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// refresh re-reads store state into the widgets.
func (m *model) refresh() {
	store := m.session.Store()
	m.users = store.OnlineUsers()
	if m.cursor >= len(m.users) {
		m.cursor = 0
	}
	peer := m.selectedPeer()
	if peer == "" {
		m.viewport.SetContent(m.dimStyle.Render("Press tab to pick someone to chat with."))
		return
	}

	firstUnread := store.FirstUnreadFrom(peer)
	var b strings.Builder
	for _, msg := range store.ConversationWith(m.session.UserID(), peer) {
		if firstUnread != "" && msg.ID == firstUnread {
			b.WriteString(m.dividerStyle.Render("── new messages ──") + "\n")
		}
		style := m.otherStyle
		name := m.peerName(msg.SenderID)
		if msg.SenderID == m.session.UserID() {
			style = m.meStyle
			name = "me"
		}
		b.WriteString(style.Render("@"+name) + " " + msg.Body + "\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *model) peerName(id string) string {
	for _, u := range m.users {
		if u.ID == id {
			return u.Username
		}
	}
	return id
}

func (m model) View() string {
	store := m.session.Store()

	var header strings.Builder
	header.WriteString(m.dimStyle.Render("online: "))
	for i, u := range m.users {
		label := u.Username
		if n := store.UnreadFrom(u.ID); n > 0 {
			if n > 99 {
				label += " (99+)"
			} else {
				label += fmt.Sprintf(" (%d)", n)
			}
		}
		if u.ID == m.selectedPeer() {
			label = m.meStyle.Render("[" + label + "]")
		}
		if i > 0 {
			header.WriteString("  ")
		}
		header.WriteString(label)
	}

	typing := ""
	if id := store.TypingUser(); id != "" && id == m.selectedPeer() {
		typing = m.dimStyle.Render(m.peerName(id) + " is typing...")
	}

	return fmt.Sprintf(
		"%s\n%s\n%s\n%s\n%s",
		header.String(),
		m.viewport.View(),
		typing,
		m.textbox.View(),
		m.dimStyle.Render(m.status),
	)
}
