package policy

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy, 10)
	require.NoError(t, err)

	tests := []struct {
		name    string
		message string
		want    Decision
	}{
		{"plain", "hello", Decision{Allow: true}},
		{"at limit", strings.Repeat("a", 10), Decision{Allow: true}},
		{"multibyte within limit", strings.Repeat("é", 10), Decision{Allow: true}},
		{"blank", "  \n", Decision{Allow: false, Reason: "Message must not be empty"}},
		{"too long", strings.Repeat("a", 11), Decision{Allow: false, Reason: "Message exceeds 10 characters"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(ctx, "sess_1", tt.message)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestZeroLimitDisablesLengthCheck(t *testing.T) {
	engine, err := NewEngine(context.Background(), DefaultPolicy, 0)
	require.NoError(t, err)

	got, err := engine.Evaluate(context.Background(), "s", strings.Repeat("a", 100000))
	require.NoError(t, err)
	assert.True(t, got.Allow)
}

func TestCustomPolicySeesSessionID(t *testing.T) {
	policy := `
package chat_guard

default decision := {"allow": true, "reason": ""}

decision := {"allow": false, "reason": "banned"} if {
	input.session_id == "sess_banned"
}
`
	engine, err := NewEngine(context.Background(), policy, 0)
	require.NoError(t, err)

	got, err := engine.Evaluate(context.Background(), "sess_banned", "hello")
	require.NoError(t, err)
	assert.Equal(t, Decision{Allow: false, Reason: "banned"}, got)
}

func TestNewEngineRejectsInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package chat_guard\n\ndecision := {", 0)
	assert.Error(t, err)
}

func TestUnexpectedResultType(t *testing.T) {
	engine, err := NewEngine(context.Background(), "package chat_guard\n\ndecision := \"allow\"\n", 0)
	require.NoError(t, err)

	_, err = engine.Evaluate(context.Background(), "s", "hi")
	assert.Error(t, err)
}
