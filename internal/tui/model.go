package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"pix360/internal/cards"
	"pix360/internal/job"
	"pix360/internal/tracker"
)

const refreshInterval = 250 * time.Millisecond

// Board is the read side of the card board.
type Board interface {
	Cards() []cards.Card
	Focused() string
	Version() uint64
}

// Actions are the user operations the board can trigger.
type Actions interface {
	Submit(ctx context.Context, sub tracker.Submission) (job.Job, error)
	Retry(ctx context.Context, id string) (job.Job, error)
	Delete(ctx context.Context, id string) (job.Job, bool)
	Active() int
	Expired() bool
}

type tickMsg time.Time

type actionDoneMsg struct {
	verb string
	job  job.Job
	err  error
}

type formStep int

const (
	formClosed formStep = iota
	formURL
	formTitle
)

// Model is the bubbletea model for the board.
type Model struct {
	ctx     context.Context
	board   Board
	actions Actions
	theme   theme
	spinner spinner.Model

	cards    []cards.Card
	version  uint64
	seen     map[string]time.Time
	selected int
	focused  string
	status   string
	expired  bool
	width    int

	form       formStep
	urlInput   textinput.Model
	titleInput textinput.Model
}

// New builds a board model. ctx bounds the actions it triggers.
func New(ctx context.Context, board Board, actions Actions) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	urlInput := textinput.New()
	urlInput.Placeholder = "https://example.com/panorama"
	titleInput := textinput.New()
	titleInput.Placeholder = job.DefaultTitle

	m := &Model{
		ctx:        ctx,
		board:      board,
		actions:    actions,
		theme:      defaultTheme(),
		spinner:    s,
		seen:       make(map[string]time.Time),
		urlInput:   urlInput,
		titleInput: titleInput,
	}
	m.refresh(time.Now())
	return m
}

// Expired reports whether the board closed because the session expired.
func (m *Model) Expired() bool {
	return m.expired
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.refresh(time.Time(msg))
		if m.actions.Expired() {
			m.expired = true
			m.status = "Session expired. Log in again and restart pix360 watch."
			return m, tea.Quit
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionDoneMsg:
		m.status = describeAction(msg)
		m.refresh(time.Now())
		return m, nil

	case tea.KeyMsg:
		if m.form != formClosed {
			return m.updateForm(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m *Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.cards)-1 {
			m.selected++
		}
	case "n":
		m.form = formURL
		m.urlInput.SetValue("")
		m.titleInput.SetValue("")
		m.titleInput.Blur()
		return m, m.urlInput.Focus()
	case "r":
		if card, ok := m.current(); ok && card.State.Terminal() {
			id := card.ID
			return m, func() tea.Msg {
				retried, err := m.actions.Retry(m.ctx, id)
				return actionDoneMsg{verb: "retry", job: retried, err: err}
			}
		}
	case "h", "d", "delete":
		if card, ok := m.current(); ok {
			id := card.ID
			return m, func() tea.Msg {
				removed, _ := m.actions.Delete(m.ctx, id)
				if removed.ID == "" {
					removed.ID = id
				}
				return actionDoneMsg{verb: "hide", job: removed}
			}
		}
	}
	return m, nil
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.form = formClosed
		m.urlInput.Blur()
		m.titleInput.Blur()
		return m, nil
	case tea.KeyEnter:
		if m.form == formURL {
			if strings.TrimSpace(m.urlInput.Value()) == "" {
				m.status = "A URL is required."
				return m, nil
			}
			m.form = formTitle
			m.urlInput.Blur()
			return m, m.titleInput.Focus()
		}
		sub := tracker.Submission{URL: m.urlInput.Value(), Title: m.titleInput.Value()}
		m.form = formClosed
		m.titleInput.Blur()
		m.status = "Submitting..."
		return m, func() tea.Msg {
			submitted, err := m.actions.Submit(m.ctx, sub)
			return actionDoneMsg{verb: "submit", job: submitted, err: err}
		}
	}

	var cmd tea.Cmd
	if m.form == formURL {
		m.urlInput, cmd = m.urlInput.Update(msg)
	} else {
		m.titleInput, cmd = m.titleInput.Update(msg)
	}
	return m, cmd
}

// refresh pulls a new snapshot when the board changed. A newly focused card
// becomes the selection.
func (m *Model) refresh(now time.Time) {
	version := m.board.Version()
	if version == m.version && m.cards != nil {
		return
	}
	m.version = version
	m.cards = m.board.Cards()
	for _, card := range m.cards {
		if _, ok := m.seen[card.ID]; !ok {
			m.seen[card.ID] = now
		}
	}
	if focused := m.board.Focused(); focused != "" && focused != m.focused {
		m.focused = focused
		for i, card := range m.cards {
			if card.ID == focused {
				m.selected = i
			}
		}
	}
	if m.selected >= len(m.cards) {
		m.selected = len(m.cards) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) current() (cards.Card, bool) {
	if m.selected < 0 || m.selected >= len(m.cards) {
		return cards.Card{}, false
	}
	return m.cards[m.selected], true
}

func describeAction(msg actionDoneMsg) string {
	if msg.err != nil {
		return fmt.Sprintf("%s failed: %v", msg.verb, msg.err)
	}
	switch msg.verb {
	case "submit":
		return fmt.Sprintf("Submitted %q as %s.", msg.job.Title, msg.job.ID)
	case "retry":
		return fmt.Sprintf("Retrying %q as %s.", msg.job.Title, msg.job.ID)
	case "hide":
		return fmt.Sprintf("Removed %s.", msg.job.ID)
	default:
		return ""
	}
}

func (m *Model) View() string {
	var b strings.Builder
	header := fmt.Sprintf("pix360 · %d cards · %d polling", len(m.cards), m.actions.Active())
	b.WriteString(m.theme.title.Render(header))
	b.WriteString("\n\n")

	if len(m.cards) == 0 {
		b.WriteString(m.theme.label.Render("No conversions yet. Press n to submit one."))
		b.WriteString("\n")
	}
	now := time.Now()
	for i, card := range m.cards {
		b.WriteString(m.renderCard(card, i == m.selected, now))
		b.WriteString("\n")
	}

	if m.form != formClosed {
		b.WriteString("\n")
		b.WriteString(m.theme.prompt.Render("URL   "))
		b.WriteString(m.urlInput.View())
		b.WriteString("\n")
		b.WriteString(m.theme.prompt.Render("Title "))
		b.WriteString(m.titleInput.View())
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.footer.Render("n new · r retry · h hide · j/k move · q quit"))
	return b.String()
}

func (m *Model) renderCard(card cards.Card, focused bool, now time.Time) string {
	var state string
	switch card.State {
	case job.StateCompleted:
		state = m.theme.ok.Render("Export finished") + m.theme.label.Render(" · "+card.MediaLabel())
	case job.StateFailed:
		state = m.theme.bad.Render("Export failed")
	default:
		state = m.spinner.View() + m.theme.pending.Render(" Converting")
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(card.Title),
		state,
		m.theme.label.Render(card.ID),
	}
	if seen, ok := m.seen[card.ID]; ok {
		lines = append(lines, m.theme.label.Render("added "+humanize.RelTime(seen, now, "ago", "from now")))
	}
	if card.State == job.StateCompleted {
		lines = append(lines, m.theme.label.Render(card.DownloadURL))
	}
	style := m.theme.card
	if focused {
		style = m.theme.cardFocused
	}
	return style.Render(strings.Join(lines, "\n"))
}
