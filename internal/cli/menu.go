package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ironsheep/signature-tools-mcp/internal/matcher"
	"github.com/ironsheep/signature-tools-mcp/internal/verifier"
)

func newMenuCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive enroll/verify menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, _, err := setup(cmd)
			if err != nil {
				return err
			}
			p := tea.NewProgram(newMenuModel(svc, svc.Threshold()), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

type menuAction int

const (
	actionEnroll menuAction = iota
	actionVerify
	actionQuit
)

var menuItems = []string{"Enroll a reference signature", "Verify a signature", "Quit"}

type menuStep int

const (
	stepChoose menuStep = iota
	stepKey
	stepPath
	stepRunning
	stepResult
)

type enrollDoneMsg struct{ res *verifier.EnrollResult }

type verifyDoneMsg struct{ decision *matcher.Decision }

type operationErrorMsg struct{ err error }

var (
	menuTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D56F4"})

	menuSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D56F4"})

	menuBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}).
			Padding(1, 2)
)

// menuModel is a thin dispatcher: it collects a key and an image path and
// calls Enroll or Verify on the service.
type menuModel struct {
	svc       *verifier.Service
	threshold float64

	step   menuStep
	cursor int
	action menuAction
	input  string
	key    string
	path   string

	enrolled *verifier.EnrollResult
	decision *matcher.Decision
	err      error
	quitting bool
}

func newMenuModel(svc *verifier.Service, threshold float64) menuModel {
	return menuModel{svc: svc, threshold: threshold}
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case enrollDoneMsg:
		m.step = stepResult
		m.enrolled = msg.res
	case verifyDoneMsg:
		m.step = stepResult
		m.decision = msg.decision
	case operationErrorMsg:
		m.step = stepResult
		m.err = msg.err
	}
	return m, nil
}

func (m menuModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.step {
	case stepChoose:
		return m.handleChoose(msg)
	case stepKey, stepPath:
		return m.handleInput(msg)
	case stepResult:
		return m.reset(), nil
	}
	return m, nil
}

func (m menuModel) handleChoose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(menuItems)-1 {
			m.cursor++
		}
	case "1", "2", "3":
		m.cursor = int(msg.String()[0] - '1')
		return m.choose()
	case "enter":
		return m.choose()
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m menuModel) choose() (tea.Model, tea.Cmd) {
	m.action = menuAction(m.cursor)
	if m.action == actionQuit {
		m.quitting = true
		return m, tea.Quit
	}
	m.step = stepKey
	m.input = ""
	return m, nil
}

func (m menuModel) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.reset(), nil
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input)
		if value == "" {
			return m, nil
		}
		m.input = ""
		if m.step == stepKey {
			m.key = value
			m.step = stepPath
			return m, nil
		}
		m.path = value
		m.step = stepRunning
		return m, m.run()
	}
	return m, nil
}

// run performs the chosen operation off the UI loop.
func (m menuModel) run() tea.Cmd {
	svc, action, key, path, threshold := m.svc, m.action, m.key, m.path, m.threshold
	return func() tea.Msg {
		if action == actionEnroll {
			res, err := svc.Enroll(key, path)
			if err != nil {
				return operationErrorMsg{err: err}
			}
			return enrollDoneMsg{res: res}
		}
		d, err := svc.Verify(key, path, threshold)
		if err != nil {
			return operationErrorMsg{err: err}
		}
		return verifyDoneMsg{decision: d}
	}
}

func (m menuModel) reset() menuModel {
	return menuModel{svc: m.svc, threshold: m.threshold, cursor: m.cursor}
}

func (m menuModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(menuTitleStyle.Render("Signature verification"))
	b.WriteString("\n\n")

	switch m.step {
	case stepChoose:
		for i, item := range menuItems {
			line := fmt.Sprintf("%d. %s", i+1, item)
			if i == m.cursor {
				b.WriteString(menuSelectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n" + labelStyle.Render("↑/↓ or 1-3 to choose, enter to select, q to quit"))
	case stepKey:
		fmt.Fprintf(&b, "%s\n\nKey: %s_\n", menuItems[m.action], m.input)
	case stepPath:
		fmt.Fprintf(&b, "%s\n\nKey: %s\nImage path: %s_\n", menuItems[m.action], m.key, m.input)
	case stepRunning:
		fmt.Fprintf(&b, "Processing %s...\n", m.path)
	case stepResult:
		b.WriteString(m.resultView())
		b.WriteString("\n\n" + labelStyle.Render("press any key to continue"))
	}

	return menuBoxStyle.Render(b.String())
}

func (m menuModel) resultView() string {
	switch {
	case m.err != nil:
		return formatError(m.err)
	case m.enrolled != nil:
		return fmt.Sprintf("Enrolled %s with %d descriptors.", m.enrolled.Key, m.enrolled.Descriptors)
	case m.decision != nil:
		verdict := authenticStyle.Render("AUTHENTIC")
		if !m.decision.Authentic {
			verdict = rejectedStyle.Render("NOT AUTHENTIC")
		}
		return fmt.Sprintf("%s  score %.4f (threshold %.2f)", verdict, m.decision.Score, m.decision.Threshold)
	}
	return ""
}
