// # cmd/rust-affected/ui.go
package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/RobertRautenbach/rust-affected/internal/affected"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	changedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	binaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list         list.Model
	result       affected.Result
	lastUpdate   time.Time
	packageCount int
	memberCount  int
}

type updateMsg struct {
	result       affected.Result
	packageCount int
	memberCount  int
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.result = msg.result
		m.packageCount = msg.packageCount
		m.memberCount = msg.memberCount
		m.lastUpdate = time.Now()

		changed := make(map[string]bool, len(m.result.ChangedCrates))
		for _, c := range m.result.ChangedCrates {
			changed[c] = true
		}
		binaries := make(map[string]bool, len(m.result.AffectedBinaryMembers))
		for _, b := range m.result.AffectedBinaryMembers {
			binaries[b] = true
		}

		items := []list.Item{}
		for _, member := range m.result.AffectedLibraryMembers {
			desc := "dependent library"
			switch {
			case changed[member]:
				desc = "directly changed"
			case binaries[member]:
				desc = "binary target"
			}
			items = append(items, item{title: member, desc: desc})
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d packages | %d members",
		m.lastUpdate.Format("15:04:05"), m.packageCount, m.memberCount))

	var summary string
	switch {
	case m.result.ForceAll:
		summary = changedStyle.Render("⚠️  Force trigger: all members affected")
	case len(m.result.AffectedLibraryMembers) == 0:
		summary = successStyle.Render("✅ Workspace Clean")
	default:
		summary = fmt.Sprintf("⚠️  %s | %s",
			changedStyle.Render(fmt.Sprintf("%d Changed", len(m.result.ChangedCrates))),
			binaryStyle.Render(fmt.Sprintf("%d Binaries", len(m.result.AffectedBinaryMembers))))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Affected Set Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Affected Members"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}
