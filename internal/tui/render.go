package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xiaot623/embedchat/internal/session"
)

const (
	emptyHint      = "Start a conversation.\nEach message will be embedded automatically."
	thinkingText   = "Thinking..."
	previewLen     = 5
	showEmbedLabel = "View Embedding vector"
	hideEmbedLabel = "Hide Vector"
)

// EmbeddingPreview formats the first values of vec followed by its length,
// e.g. "[0.1000, 0.2000, ... 3072 dim]". The vector itself is not modified.
func EmbeddingPreview(vec []float64) string {
	n := len(vec)
	if n > previewLen {
		n = previewLen
	}
	parts := make([]string, 0, n)
	for _, v := range vec[:n] {
		parts = append(parts, fmt.Sprintf("%.4f", v))
	}
	return fmt.Sprintf("[%s, ... %d dim]", strings.Join(parts, ", "), len(vec))
}

// RenderMessages renders the log. expanded and cursor are message indices or -1.
func RenderMessages(msgs []session.Message, expanded, cursor, width int) string {
	if len(msgs) == 0 {
		return dimStyle.Render(emptyHint)
	}

	body := lipgloss.NewStyle()
	if width > 4 {
		body = body.Width(width - 2)
	}

	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderRole(m) + "\n")

		content := m.Content
		if m.Role == session.RoleAssistant && strings.HasPrefix(content, session.ErrorPrefix) {
			b.WriteString(errorStyle.Inherit(body).Render(content) + "\n")
		} else {
			b.WriteString(body.Render(content) + "\n")
		}

		if !m.HasEmbedding() {
			continue
		}
		label := showEmbedLabel
		if i == expanded {
			label = hideEmbedLabel
		}
		toggle := fmt.Sprintf("◆ %s (%d dim)", label, len(m.Embedding))
		if i == cursor {
			toggle = selectedStyle.Render(toggle)
		} else {
			toggle = embeddingStyle.Render(toggle)
		}
		b.WriteString(toggle + "\n")
		if i == expanded {
			b.WriteString(embeddingStyle.Render(EmbeddingPreview(m.Embedding)) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRole(m session.Message) string {
	if m.Role == session.RoleUser {
		return userRoleStyle.Render("You")
	}
	return assistantRoleStyle.Render("Assistant")
}
