// Package prompt asks the user for the project id when none was given.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/emilianohg/studycost/internal/apperr"
)

const question = "Enter the project's Prolific ID"

type ProjectIDProvider interface {
	ProjectID(ctx context.Context) (string, error)
}

// Static always answers with the same id.
type Static string

func (s Static) ProjectID(context.Context) (string, error) {
	return string(s), nil
}

// Interactive prompts on a terminal with a text input, and falls back to
// reading a single line when In is not a terminal.
type Interactive struct {
	In  io.Reader // os.Stdin when nil
	Out io.Writer // os.Stdout when nil
}

func (p Interactive) ProjectID(ctx context.Context) (string, error) {
	in := p.In
	if in == nil {
		in = os.Stdin
	}
	out := p.Out
	if out == nil {
		out = os.Stdout
	}

	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return runInput(ctx, f, out)
	}
	return readLine(in, out)
}

func readLine(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintf(out, "%s: ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read project id: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runInput(ctx context.Context, in *os.File, out io.Writer) (string, error) {
	p := tea.NewProgram(newInputModel(), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("project id prompt: %w", err)
	}

	m, ok := final.(*inputModel)
	if !ok || m.cancelled {
		return "", fmt.Errorf("project id prompt cancelled: %w", apperr.ErrConfig)
	}
	return m.value, nil
}

type inputModel struct {
	input     textinput.Model
	value     string
	cancelled bool
}

func newInputModel() *inputModel {
	ti := textinput.New()
	ti.Placeholder = "Project ID"
	ti.CharLimit = 64
	ti.Width = 40
	ti.Focus()

	return &inputModel{input: ti}
}

func (m *inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			m.value = strings.TrimSpace(m.input.Value())
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *inputModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("STUDYCOST"))
	b.WriteString("\n")
	b.WriteString(question)
	b.WriteString(":\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("[enter] Confirm  [esc] Cancel"))
	b.WriteString("\n")

	return b.String()
}
