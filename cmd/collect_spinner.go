package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type collectDoneMsg struct {
	err error
}

type collectProgressMsg struct {
	collected int
	total     int
}

type collectSpinnerModel struct {
	spinner   spinner.Model
	collected int
	total     int
	collect   tea.Cmd
	err       error
	done      bool
}

func newCollectSpinnerModel(total int, collect tea.Cmd) collectSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return collectSpinnerModel{
		spinner: s,
		total:   total,
		collect: collect,
	}
}

func (m collectSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.collect)
}

func (m collectSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case collectProgressMsg:
		m.collected = msg.collected
		return m, nil
	case collectDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m collectSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s Collecting data... %d/%d", m.spinner.View(), m.collected, m.total)
}

func runCollectSpinner(ctx context.Context, output io.Writer, total int, collect func(context.Context, func(collected, total int)) error) error {
	var p *tea.Program

	collectCmd := func() tea.Msg {
		return collectDoneMsg{err: collect(ctx, func(collected, total int) {
			p.Send(collectProgressMsg{collected: collected, total: total})
		})}
	}

	p = tea.NewProgram(
		newCollectSpinnerModel(total, collectCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(collectSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
