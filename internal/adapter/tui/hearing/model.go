// Package hearing is a Bubble Tea viewer that follows an exchange as each
// speaker's turn arrives.
package hearing

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"virtual-courtroom/internal/adapter/tui/theme"
	"virtual-courtroom/internal/domain"
)

// TurnMsg delivers one finished turn.
type TurnMsg struct{ Turn domain.Turn }

// DoneMsg ends the hearing. Err is nil on success.
type DoneMsg struct{ Err error }

// headerLines is the height taken by the header and status line.
const headerLines = 4

// Model renders the hearing transcript in a scrolling viewport.
type Model struct {
	title    string
	scenario string
	order    []string
	turns    []domain.Turn
	rendered []string
	pos      int // index in order of the next expected speaker

	viewport viewport.Model
	spinner  spinner.Model
	md       *glamour.TermRenderer
	ready    bool
	width    int

	done     bool
	err      error
	quitting bool
	cancel   context.CancelFunc
}

// New creates a viewer for a scenario spoken in order. cancel, if set, is
// called when the user quits before the hearing ends.
func New(title, scenario string, order []string, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)
	return Model{
		title:    title,
		scenario: scenario,
		order:    order,
		spinner:  s,
		cancel:   cancel,
	}
}

// Turns returns the turns received so far.
func (m Model) Turns() []domain.Turn { return m.turns }

// Err returns the error the hearing ended with.
func (m Model) Err() error { return m.err }

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case TurnMsg:
		m.advance(msg.Turn.Speaker)
		m.turns = append(m.turns, msg.Turn)
		m.rendered = append(m.rendered, m.renderTurn(msg.Turn))
		m.refresh()
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(theme.Header.Render(fmt.Sprintf("%s %s", theme.SymbolGavel, m.title)))
	b.WriteString("\n")
	b.WriteString(theme.TextMuted.Render(m.scenario))
	b.WriteString("\n")
	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(strings.Join(m.rendered, "\n"))
	}
	b.WriteString("\n")
	b.WriteString(m.status())
	return b.String()
}

// status describes who speaks next, or how the hearing ended.
func (m Model) status() string {
	switch {
	case m.err != nil:
		return theme.TextError.Render(fmt.Sprintf("%s hearing stopped: %v", theme.SymbolError, m.err))
	case m.done:
		return theme.TextSuccess.Render(fmt.Sprintf("%s hearing adjourned after %d turns", theme.SymbolSuccess, len(m.turns))) +
			theme.Dim.Render("  (q to quit)")
	}
	next := "…"
	if m.pos < len(m.order) {
		next = m.order[m.pos]
	}
	return fmt.Sprintf("%s waiting for %s", m.spinner.View(), theme.LabelFor(next).Render(next))
}

// advance moves past speaker's slot in the order. Keys the exchange skipped
// before it are passed over too.
func (m *Model) advance(speaker string) {
	for i := m.pos; i < len(m.order); i++ {
		if m.order[i] == speaker {
			m.pos = i + 1
			return
		}
	}
}

func (m *Model) resize(w, h int) {
	height := max(h-headerLines, 1)
	if !m.ready {
		m.viewport = viewport.New(w, height)
		m.viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = height
	}
	if w != m.width {
		m.width = w
		m.md = nil
		for i, t := range m.turns {
			m.rendered[i] = m.renderTurn(t)
		}
	}
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(m.rendered, "\n"))
	if atBottom || len(m.turns) <= 1 {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderTurn(t domain.Turn) string {
	label := theme.LabelFor(t.Speaker).Render(t.Name)
	role := theme.Dim.Render(fmt.Sprintf(" (%s)", t.Role))
	return label + role + "\n" + m.renderMarkdown(t.Message)
}

func (m *Model) renderMarkdown(content string) string {
	if m.width <= 0 {
		return "  " + content + "\n"
	}
	if m.md == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(m.width-4),
		)
		if err != nil {
			return "  " + content + "\n"
		}
		m.md = r
	}
	out, err := m.md.Render(content)
	if err != nil {
		return "  " + content + "\n"
	}
	return out
}

// Run shows the viewer while exchange runs in the background. exchange gets
// a context that is cancelled if the user quits, and a callback to report
// each turn. Run returns the turns seen and the exchange's error.
func Run(ctx context.Context, title, scenario string, order []string,
	exchange func(ctx context.Context, onTurn func(domain.Turn)) error, opts ...tea.ProgramOption) ([]domain.Turn, error) {
	exCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(title, scenario, order, cancel), append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)...)
	go func() {
		err := exchange(exCtx, func(t domain.Turn) { p.Send(TurnMsg{Turn: t}) })
		p.Send(DoneMsg{Err: err})
	}()

	final, err := p.Run()
	m, ok := final.(Model)
	if !ok {
		return nil, err
	}
	if err != nil {
		return m.turns, err
	}
	return m.turns, m.err
}
