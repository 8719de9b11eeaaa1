package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const logo = `╔═╗╔═╗╔╗╔╔═╗╦═╗╔═╗╔╦╗╔═╗
╔═╝║ ║║║║║╣ ╠╦╝╠═╣║║║╠═╣
╚═╝╚═╝╝╚╝╚═╝╩╚═╩ ╩╩ ╩╩ ╩`

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{logoStyle.Width(m.width).Render(logo)}

	m.mu.RLock()
	prompt := m.prompt
	m.mu.RUnlock()
	if prompt != "" {
		sections = append(sections, promptStyle.Width(m.width-4).Render(
			"Sign in to Zonerama in the browser window and open your album list.\n"+prompt))
	}

	half := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(half),
		m.renderCurrentPanel(half),
		m.renderQueuePanel(half),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderExtractionPanel(half),
		m.renderLogsPanel(half),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q: stop • ?: help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderStatsPanel(width int) string {
	fraction := m.Progress()
	eta := m.ETA()

	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" RUN ")
	stat := func(label, value string) string {
		return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
	}

	lines := []string{
		stat("Directory:", truncate(m.directory, width-16)),
		stat("Elapsed:", formatDuration(time.Since(m.sessionStartTime))),
	}
	if !m.listed {
		lines = append(lines, dimStyle.Render("Listing albums... "+m.spinner.View()))
	} else {
		lines = append(lines,
			stat("Discovered:", fmt.Sprint(m.discovered)),
			stat("Skipped:", fmt.Sprint(m.skipped)),
			stat("Downloaded:", fmt.Sprintf("%d/%d", m.downloaded, len(m.albums))),
			stat("Failed:", fmt.Sprint(m.failed)),
			stat("ETA:", formatDuration(eta)),
		)
		bar := m.bar
		bar.Width = width - 6
		lines = append(lines, bar.ViewAs(fraction))
	}

	switch {
	case m.finished && m.cancelled:
		lines = append(lines, warningStyle.Render("Cancelled"))
	case m.finished:
		lines = append(lines, successStyle.Render("Done"))
	case m.stopping:
		lines = append(lines, warningStyle.Render("Stopping after the current album"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

func (m *Model) renderCurrentPanel(width int) string {
	title := titleStyle.Render(" CURRENT ALBUM ")
	cur := m.Current()
	if cur == nil {
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("Idle")),
		)
	}

	m.mu.RLock()
	state := cur.State.String()
	attempt := cur.Attempt
	started := cur.StartTime
	spin := m.spinner.View()
	m.mu.RUnlock()

	lines := []string{
		fmt.Sprintf("%s %s", spin, queueItemActiveStyle.Render(truncate(cur.Name, width-8))),
		fmt.Sprintf("%s %s  %s %d  %s %s",
			statsLabelStyle.Render("State:"), stateStyle(state).Render(state),
			statsLabelStyle.Render("Attempt:"), attempt,
			statsLabelStyle.Render("For:"), formatDuration(time.Since(started))),
	}
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

func (m *Model) renderQueuePanel(width int) string {
	title := titleStyle.Render(" QUEUE ")
	pending := m.Pending()
	done := m.Finished()

	var items []string
	if n := len(pending); n > 0 {
		items = append(items, warningStyle.Render(fmt.Sprintf("%d pending", n)))
		for i := 0; i < 3 && i < n; i++ {
			items = append(items, queueItemStyle.Render("• "+truncate(pending[i].Name, width-8)))
		}
		if n > 3 {
			items = append(items, dimStyle.Render(fmt.Sprintf("  ... and %d more", n-3)))
		}
	}
	if n := len(done); n > 0 {
		items = append(items, "", successStyle.Render(fmt.Sprintf("%d finished", n)))
		start := n - 3
		if start < 0 {
			start = 0
		}
		for _, a := range done[start:] {
			mark := "✓ "
			if a.Error != nil {
				mark = "✗ "
			}
			items = append(items, queueItemDoneStyle.Render(mark+truncate(a.Name, width-8)))
		}
	}
	if len(items) == 0 {
		items = append(items, dimStyle.Render("Nothing queued"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(items, "\n")),
	)
}

func (m *Model) renderExtractionPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" EXTRACTION ")
	if !m.extracting {
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("Not started")),
		)
	}
	content := fmt.Sprintf("%s %s  %s %s  %s %s",
		statsLabelStyle.Render("Extracted:"), successStyle.Render(fmt.Sprint(m.archives.Extracted)),
		statsLabelStyle.Render("Skipped:"), statsValueStyle.Render(fmt.Sprint(m.archives.Skipped)),
		statsLabelStyle.Render("Failed:"), errorStyle.Render(fmt.Sprint(m.archives.Failed)))
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 12
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, entry := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(entry.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(entry.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", entry.Level))
		message := logMessageStyle.Render(truncate(entry.Message, width-25))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = dimStyle.Render("No messages yet")
	}

	logsHeight := m.height - 20
	if logsHeight < 5 {
		logsHeight = 5
	}
	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q / ctrl+c  stop after the current album (quit once finished)
    ctrl+l      clear the log
    ?           toggle this help

  ` + successStyle.Render("✓") + ` downloaded   ` + errorStyle.Render("✗") + ` failed   ` + warningStyle.Render("retry_pending") + ` waiting to retry
`
	return panelStyle.Width(m.width - 2).Render(help)
}

// truncate shortens s to max runes
func truncate(s string, max int) string {
	if max < 2 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
