package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lsmsample/lsmsample/pkg/lsm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	engine    *lsm.Engine
	util      progress.Model
	startTime time.Time
	nextKey   int64
	appends   int64
	quitting  bool
}

func initialModel(engine *lsm.Engine) model {
	return model{engine: engine, util: progress.New(progress.WithDefaultGradient()), startTime: time.Now()}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		for i := 0; i < 50; i++ {
			m.engine.Append(m.nextKey, rand.Int63(), 1.0+rand.Float64()*9.0, false)
			m.nextKey++
			m.appends++
		}
		return m, tickCmd()
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return "stopping workload...\n"
	}

	title := titleStyle.Render("lsmsample live workload")

	stats := fmt.Sprintf(
		"elapsed:      %s\nappends:      %d\nrecords:      %d\ntombstones:   %d\nheight:       %d\nutilization:  %.1f%%",
		time.Since(m.startTime).Round(time.Second),
		m.appends,
		m.engine.RecordCount(),
		m.engine.TombstoneCount(),
		m.engine.Height(),
		m.engine.MemoryUtilization()*100,
	)

	bar := m.util.ViewAs(m.engine.MemoryUtilization())
	help := helpStyle.Render("q to quit")

	return title + "\n\n" + statsBoxStyle.Render(stats) + "\n\n" + bar + "\n\n" + help
}

func main() {
	opts := lsm.DefaultEngineOptions()
	opts.MemtableCap = 2000
	opts.MemtableCount = 2
	engine := lsm.NewEngine(opts, nil, nil)
	defer engine.Close()

	p := tea.NewProgram(initialModel(engine))
	if _, err := p.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}
