package cli

import (
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/mnemo-ai/mnemo/internal/service"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// fileDoneMsg reports one finished file from the ingest workers.
type fileDoneMsg struct {
	done  int
	total int
	name  string
	err   error
}

// batchDoneMsg carries the final results once the pool drains.
type batchDoneMsg struct {
	results []service.FileProcessingResult
}

// ingestModel is the bubbletea model for a running ingest batch.
type ingestModel struct {
	progress progress.Model
	theme    Theme

	done     int
	total    int
	lastFile string
	failed   int

	results  []service.FileProcessingResult
	finished bool
	quitting bool
}

func newIngestModel(total int) ingestModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return ingestModel{
		progress: prog,
		theme:    defaultTheme,
		total:    total,
	}
}

func (m ingestModel) Init() tea.Cmd {
	return m.progress.Init()
}

func (m ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case fileDoneMsg:
		m.done = msg.done
		m.lastFile = msg.name
		if msg.err != nil {
			m.failed++
		}
		return m, nil

	case batchDoneMsg:
		m.results = msg.results
		m.finished = true
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ingestModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m ingestModel) renderContent() string {
	if m.finished {
		return m.finalView()
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	status := m.theme.statusStyle().Render("[ingesting]")
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d files", m.done, m.total)

	line := fmt.Sprintf("%s %s %s", status, bar, counts)
	if m.lastFile != "" {
		line += "\n" + m.theme.hintStyle().Render(m.lastFile)
	}
	return line + "\n"
}

func (m ingestModel) finalView() string {
	var (
		chunks   int
		insights int
		failed   []service.FileProcessingResult
	)
	for _, r := range m.results {
		chunks += r.ChunkCount
		insights += r.Insights
		if r.Err != nil {
			failed = append(failed, r)
		}
	}

	out := m.theme.completedStyle().Render("✓ Ingest complete") + "\n\n"
	out += fmt.Sprintf("  Files processed: %d\n", len(m.results)-len(failed))
	out += fmt.Sprintf("  Chunks indexed:  %d\n", chunks)
	if insights > 0 {
		out += fmt.Sprintf("  Insights stored: %d\n", insights)
	}
	if len(failed) > 0 {
		out += m.theme.errorStyle().Render(fmt.Sprintf("\nFailures (%d):\n", len(failed)))
		for _, r := range failed {
			out += fmt.Sprintf("  • %s: %v\n", r.FileName, r.Err)
		}
	}
	return out
}

// runIngestProgress renders the interactive progress UI while run
// executes the batch in the background. cancel is invoked when the user
// quits, so the worker pool drains instead of finishing the batch.
func runIngestProgress(total int, cancel func(), run func(onFile func(done, totalFiles int, res service.FileProcessingResult)) []service.FileProcessingResult) ([]service.FileProcessingResult, error) {
	p := tea.NewProgram(newIngestModel(total))

	resultCh := make(chan []service.FileProcessingResult, 1)
	go func() {
		results := run(func(done, totalFiles int, res service.FileProcessingResult) {
			p.Send(fileDoneMsg{done: done, total: totalFiles, name: res.FileName, err: res.Err})
		})
		resultCh <- results
		p.Send(batchDoneMsg{results: results})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	quitting := false
	if m, ok := finalModel.(ingestModel); ok {
		quitting = m.quitting
	}
	if quitting {
		cancel()
	}
	results := <-resultCh

	if quitting {
		return results, fmt.Errorf("ingest interrupted")
	}
	return results, nil
}
