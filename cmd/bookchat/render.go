package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	answerStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func renderAnswer(rsp *domain.ChatResponse) string {
	var b strings.Builder
	b.WriteString(answerStyle.Render(rsp.Response))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("%d ms", rsp.Metadata.LatencyMs)))
	for _, src := range rsp.Metadata.Sources {
		b.WriteString("\n")
		b.WriteString(metaStyle.Render("  " + src))
	}
	return b.String()
}

func renderDone(event *domain.StreamEvent) string {
	if event.LatencyMs == nil {
		return metaStyle.Render(event.MessageID)
	}
	return metaStyle.Render(fmt.Sprintf("%s · %d ms", event.MessageID, *event.LatencyMs))
}

func renderSession(s *domain.SessionWithMessages) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Session " + s.Session.ID))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render("created " + s.Session.CreatedAt.Format("2006-01-02 15:04:05")))
	for _, m := range s.Messages {
		b.WriteString("\n\n")
		if m.Role == domain.RoleUser {
			b.WriteString(userStyle.Render("you: "))
			b.WriteString(m.Content)
			if m.SelectedText != nil {
				b.WriteString("\n")
				b.WriteString(metaStyle.Render("  on: " + *m.SelectedText))
			}
			continue
		}
		b.WriteString(answerStyle.Render(m.Content))
	}
	return b.String()
}
