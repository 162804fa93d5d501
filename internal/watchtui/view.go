package watchtui

import (
	"fmt"
	"strings"

	"github.com/TheSmartAz/zaoya-sub000/internal/model"
	"github.com/TheSmartAz/zaoya-sub000/internal/streamclient"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	if m.pending != nil {
		b.WriteString(m.planView())
		b.WriteString("\n")
	}

	b.WriteString(m.timelineView())
	b.WriteString("\n")

	if m.typing {
		b.WriteString("  step> " + m.input.View() + "\n")
	}
	if m.streamErr != "" {
		b.WriteString(errorStyle.Render("  stream: "+m.streamErr) + "\n")
	}
	if m.actionErr != nil {
		b.WriteString(errorStyle.Render("  error: "+m.actionErr.Error()) + "\n")
	}

	b.WriteString("\n" + m.statusBarView())
	return b.String()
}

func (m Model) headerView() string {
	title := "zaoya · " + m.projectName
	if m.record != nil {
		title += fmt.Sprintf(" · %s · %s", m.record.BuildID, m.record.Phase)
	}
	return headerStyle.Render(title)
}

func (m Model) planView() string {
	var lines []string
	lines = append(lines, planTitleStyle.Render("Build plan awaiting approval"))
	if m.pending.Plan.Summary != "" {
		lines = append(lines, titleStyle.Render(m.pending.Plan.Summary))
	}
	for _, page := range m.pending.Plan.Pages {
		entry := "  • " + page.Title
		if page.Path != "" {
			entry += dimStyle.Render("  " + page.Path)
		}
		lines = append(lines, entry)
	}
	lines = append(lines, dimStyle.Render("a approve · d dismiss"))
	return planBoxStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) timelineView() string {
	if len(m.timeline) == 0 {
		return dimStyle.Render("  waiting for build events…")
	}

	var lines []string
	for i, entry := range m.timeline {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		lines = append(lines, marker+m.entryView(entry))
	}
	return strings.Join(lines, "\n")
}

func (m Model) entryView(entry model.LiveTaskMessage) string {
	var icon string
	switch entry.Status {
	case model.LiveRunning:
		icon = m.spin.View()
	case model.LiveDone:
		icon = doneStyle.Render("✓")
	case model.LiveFailed:
		icon = failedStyle.Render("✗")
	default:
		icon = dimStyle.Render("·")
	}

	title := entry.Title
	if title == "" {
		title = entryLabel(entry)
	}
	line := icon + " " + titleStyle.Render(title)
	if entry.Status == model.LiveFailed {
		line += dimStyle.Render("  (r to retry)")
	}
	return line
}

// entryLabel names untitled entries by what they carry.
func entryLabel(entry model.LiveTaskMessage) string {
	switch entry.Type {
	case model.LivePageCreated:
		return "Page created"
	case model.LiveVersionSummary:
		return "New version"
	case model.LiveBuildPlan:
		return "Build plan"
	case model.LiveValidationFailed:
		return "Validation failed"
	case model.LiveProductDocReady:
		return "Product document ready"
	case model.LiveBuildComplete:
		return "Build complete"
	default:
		return string(entry.Type)
	}
}

func (m Model) statusBarView() string {
	health := string(m.health)
	switch m.health {
	case streamclient.HealthConnected:
		health = doneStyle.Render(health)
	case streamclient.HealthReconnecting, streamclient.HealthConnecting:
		health = runningStyle.Render(health)
	case streamclient.HealthError:
		health = failedStyle.Render(health)
		if m.healthMsg != "" {
			health += " " + m.healthMsg
		}
	}

	hints := []string{"a approve", "d dismiss", "r retry", "s step", "x abort", "q quit"}
	var rendered []string
	for _, h := range hints {
		parts := strings.SplitN(h, " ", 2)
		rendered = append(rendered, statusKeyStyle.Render(parts[0])+" "+parts[1])
	}

	bar := "stream " + health + "  " + strings.Join(rendered, "  ")
	if m.width > 0 {
		return statusBarStyle.Width(m.width).Render(bar)
	}
	return statusBarStyle.Render(bar)
}
