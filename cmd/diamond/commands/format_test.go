package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/diamond/internal/contracts"
)

func TestShortHash(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
	assert.Equal(t, "abc", shortHash("abc"))
}

func TestFormatStatusValue(t *testing.T) {
	at := time.Date(2026, 3, 4, 9, 15, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"zero time", time.Time{}, "-"},
		{"time", at, "2026-03-04 09:15:00"},
		{"empty string", "", "-"},
		{"string", "2026-03-04", "2026-03-04"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatStatusValue(tt.in))
		})
	}
}

func TestStageSummary(t *testing.T) {
	ok := contracts.PipelineResult{Stage: contracts.StageScoring, Step: "Scoring", Outcome: contracts.OutcomeCompleted,
		InputCount: 8, OutputCount: 5, Duration: 12}
	assert.Equal(t, "8 → 5 (12ms)", stageSummary(ok))

	tripped := contracts.PipelineResult{Stage: contracts.StageGuard, Step: "Breaker", Outcome: contracts.OutcomeBreakerTripped,
		InputCount: 8}
	assert.Equal(t, "8 → 0 (0ms) ABORTED_BREAKER", stageSummary(tripped))
}

func TestCommandTree(t *testing.T) {
	want := map[string][]string{
		"strategy":   {"run"},
		"execution":  {"run"},
		"scheduler":  {"start", "list", "run", "status"},
		"quarantine": {"list", "add", "release"},
		"contract":   {"show"},
		"probe":      nil,
	}

	for name, subs := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, cmd.Name())
		}
		for _, sub := range subs {
			c, _, err := rootCmd.Find([]string{name, sub})
			if assert.NoError(t, err, name+" "+sub) {
				assert.Equal(t, sub, c.Name())
			}
		}
	}
}
