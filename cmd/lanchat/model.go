package main

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/daviddao/lanchat/internal/config"
	"github.com/daviddao/lanchat/internal/editor"
	"github.com/daviddao/lanchat/internal/region"
)

const (
	chatTitle  = "LAN-Chat"
	inputTitle = "Enter Message:"
	localTag   = ">"
)

// --- Messages ---

// peerLineMsg carries one cleaned line received from the peer.
type peerLineMsg string

// peerClosedMsg reports that the connection feed stopped. err is nil when
// the session itself cancelled it.
type peerClosedMsg struct{ err error }

// configChangedMsg carries a reloaded configuration.
type configChangedMsg config.Config

// --- Key bindings ---

type keyMap struct {
	Send  key.Binding
	Erase key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Send:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Erase: key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "erase")),
	Quit:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "leave chat")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Erase, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// --- Styles ---

type styles struct {
	peer   lipgloss.Style
	local  lipgloss.Style
	border lipgloss.Style
	title  lipgloss.Style
	cursor lipgloss.Style
}

func newStyles(t config.Theme) styles {
	return styles{
		peer:   colored(t.Peer),
		local:  colored(t.Local),
		border: colored(t.Border),
		title:  colored(t.Title).Bold(t.Title != ""),
		cursor: lipgloss.NewStyle().Reverse(true),
	}
}

func colored(c string) lipgloss.Style {
	s := lipgloss.NewStyle()
	if c != "" {
		s = s.Foreground(lipgloss.Color(c))
	}
	return s
}

// Outbox receives committed lines for transmission.
type Outbox interface {
	Push(line string) error
}

// --- Model ---

// chatModel is the only owner of the chat region. Peer lines and local
// commits both arrive as messages, so row bookkeeping never races.
type chatModel struct {
	region *region.Region
	input  *editor.Buffer
	outbox Outbox
	log    *slog.Logger

	peerName string
	styles   styles
	help     help.Model

	sent     int
	received int

	// endErr is why the session ended; nil when the user left.
	endErr error
	done   bool
}

func newChatModel(cfg config.Config, peerName string, out Outbox, log *slog.Logger) (chatModel, error) {
	r, err := region.New(cfg.Width, cfg.Height)
	if err != nil {
		return chatModel{}, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	m := chatModel{
		region:   r,
		input:    editor.New(cfg.InputCap),
		outbox:   out,
		log:      log,
		peerName: peerName,
		help:     help.New(),
	}
	m.applyTheme(cfg.Theme)
	return m, nil
}

func (m *chatModel) applyTheme(t config.Theme) {
	m.styles = newStyles(t)
	m.region.SetBorderStyle(m.styles.border)
}

func (m chatModel) Init() tea.Cmd {
	return nil
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case peerLineMsg:
		m.placePeer(string(msg))

	case peerClosedMsg:
		if !m.done {
			m.endErr = msg.err
			m.done = true
		}
		return m, tea.Quit

	case configChangedMsg:
		m.applyTheme(msg.Theme)
		m.log.Info("theme reloaded")

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m chatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, nil
	}
	switch {
	case key.Matches(msg, keys.Quit):
		// The unsent buffer is dropped on purpose.
		m.done = true
		return m, tea.Quit

	case key.Matches(msg, keys.Send):
		return m.commit()

	case key.Matches(msg, keys.Erase):
		m.input.Backspace()

	case msg.Type == tea.KeySpace:
		m.input.Insert(' ')

	case msg.Type == tea.KeyRunes:
		for _, r := range msg.Runes {
			m.input.Insert(r)
		}
	}
	return m, nil
}

func (m chatModel) commit() (tea.Model, tea.Cmd) {
	line, ok := m.input.Commit()
	if !ok {
		return m, nil
	}
	if err := m.outbox.Push(line); err != nil {
		m.log.Error("queue outbound line", "error", err)
		m.endErr = err
		m.done = true
		return m, tea.Quit
	}
	m.sent++
	p := m.region.Place(m.styles.local.Render(localTag) + " " + strings.TrimSuffix(line, "\n"))
	m.log.Debug("local line placed", "row", p.Row, "span", p.Span, "scrolled", p.Scrolled)
	return m, nil
}

func (m *chatModel) placePeer(text string) {
	m.received++
	p := m.region.Place(m.styles.peer.Render(m.peerName) + ": " + text)
	m.log.Debug("peer line placed", "row", p.Row, "span", p.Span, "scrolled", p.Scrolled)
}

// --- View rendering ---

func (m chatModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.region.Frame(m.styles.title.Render(chatTitle)))
	b.WriteRune('\n')
	b.WriteString(m.renderInput())
	b.WriteRune('\n')
	b.WriteString(m.help.View(keys))
	return b.String()
}

// renderInput draws the input frame. Only the tail of the buffer that fits
// is shown, followed by the cursor cell.
func (m chatModel) renderInput() string {
	width := m.region.Width()
	line := m.input.Window(width-1) + m.styles.cursor.Render(" ")
	return region.Box(m.styles.border, m.styles.title.Render(inputTitle), width, []string{line})
}
