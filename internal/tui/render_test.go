package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaot623/embedchat/internal/session"
)

func TestEmbeddingPreview(t *testing.T) {
	tests := []struct {
		name string
		vec  []float64
		want string
	}{
		{"long", []float64{0.1, -0.22222, 0.3, 0.4, 0.5, 0.6, 0.7}, "[0.1000, -0.2222, 0.3000, 0.4000, 0.5000, ... 7 dim]"},
		{"short", []float64{1, 2, 3}, "[1.0000, 2.0000, 3.0000, ... 3 dim]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EmbeddingPreview(tt.vec))
		})
	}
}

func TestEmbeddingPreviewLeavesVectorIntact(t *testing.T) {
	vec := make([]float64, 3072)
	vec[3071] = 0.123456789

	assert.True(t, strings.HasSuffix(EmbeddingPreview(vec), "... 3072 dim]"))
	assert.Len(t, vec, 3072)
	assert.Equal(t, 0.123456789, vec[3071])
}

func TestRenderMessagesEmpty(t *testing.T) {
	out := RenderMessages(nil, -1, -1, 80)

	assert.Contains(t, out, "Start a conversation.")
	assert.Contains(t, out, "Each message will be embedded automatically.")
}

func TestRenderMessagesEmbeddingToggle(t *testing.T) {
	msgs := []session.Message{
		{Role: session.RoleUser, Content: "hello"},
		{Role: session.RoleAssistant, Content: "hi there", Embedding: []float64{1, 2, 3}},
	}

	collapsed := RenderMessages(msgs, -1, -1, 80)
	assert.Contains(t, collapsed, "hello")
	assert.Contains(t, collapsed, "hi there")
	assert.Contains(t, collapsed, "View Embedding vector (3 dim)")
	assert.NotContains(t, collapsed, "1.0000")

	expanded := RenderMessages(msgs, 1, 1, 80)
	assert.Contains(t, expanded, "Hide Vector")
	assert.Contains(t, expanded, "[1.0000, 2.0000, 3.0000, ... 3 dim]")
}

func TestRenderMessagesError(t *testing.T) {
	out := RenderMessages([]session.Message{
		{Role: session.RoleUser, Content: "hello"},
		{Role: session.RoleAssistant, Content: "Error: overloaded"},
	}, -1, -1, 80)

	assert.Contains(t, out, "Error: overloaded")
	assert.NotContains(t, out, "dim)")
}
