package s4_contract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/fileutil"
	"github.com/wonny/diamond/pkg/logger"
)

func candidates(scores ...int) []contracts.Candidate {
	out := make([]contracts.Candidate, len(scores))
	for i, s := range scores {
		out[i] = contracts.Candidate{
			Symbol: fmt.Sprintf("SYM%02d", i),
			Score:  s,
			Price:  100,
			Sector: "IT",
		}
	}
	return out
}

func meta() contracts.ContractMeta {
	return contracts.ContractMeta{
		Trend:      contracts.TrendBull,
		Dispersion: 32.1,
		Protocol:   contracts.ProtocolNormal,
		Timestamp:  time.Date(2026, 3, 2, 9, 16, 0, 0, time.UTC),
	}
}

func TestWriteSortsAndTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diamond_signal.json")
	w := NewWriter(path, 3, logger.Nop())

	c, err := w.Write(meta(), candidates(80, 95, 80, 90, 76))
	require.NoError(t, err)

	require.Len(t, c.Universe, 3)
	assert.Equal(t, 3, c.Count)
	assert.True(t, c.IsSorted())
	assert.Equal(t, []string{"SYM01", "SYM03", "SYM00"}, []string{c.Universe[0].Symbol, c.Universe[1].Symbol, c.Universe[2].Symbol})
	assert.NotEmpty(t, c.Meta.ContractID)

	loaded, err := NewReader(path, logger.Nop()).Load()
	require.NoError(t, err)
	assert.Equal(t, c.Universe, loaded.Universe)
	assert.Equal(t, c.Meta.ContractID, loaded.Meta.ContractID)
	assert.True(t, c.Meta.Timestamp.Equal(loaded.Meta.Timestamp))
	assert.Equal(t, contracts.ProtocolNormal, loaded.Meta.Protocol)
}

func TestWriteCountMatchesUniverse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diamond_signal.json")
	for _, n := range []int{0, 1, 20, 35} {
		scores := make([]int, n)
		for i := range scores {
			scores[i] = 76 + (i*7)%24
		}
		c, err := NewWriter(path, 20, logger.Nop()).Write(meta(), candidates(scores...))
		require.NoError(t, err)
		assert.Equal(t, len(c.Universe), c.Count)
		assert.LessOrEqual(t, c.Count, 20)
		assert.True(t, c.IsSorted())
	}
}

func TestWriteCrashBeforeRenameKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diamond_signal.json")
	w := NewWriter(path, 20, logger.Nop())

	prev, err := w.Write(meta(), candidates(90, 85))
	require.NoError(t, err)

	// temp file written, process dies before rename
	writeFile = func(p string, data []byte, perm os.FileMode) error {
		tmp := filepath.Join(filepath.Dir(p), "."+filepath.Base(p)+".tmp-crash")
		require.NoError(t, os.WriteFile(tmp, data[:len(data)/2], perm))
		return errors.New("killed")
	}
	t.Cleanup(func() { writeFile = fileutil.WriteAtomic })

	_, err = w.Write(meta(), candidates(99, 98, 97))
	require.Error(t, err)

	loaded, err := NewReader(path, logger.Nop()).Load()
	require.NoError(t, err)
	assert.Equal(t, prev.Meta.ContractID, loaded.Meta.ContractID)
	assert.Equal(t, 2, loaded.Count)
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	_, err := NewReader(filepath.Join(dir, "none.json"), logger.Nop()).Load()
	assert.ErrorIs(t, err, ErrContractNotFound)

	tests := []struct {
		name string
		body string
	}{
		{"truncated", `{"meta": {"protocol": "NORMAL_SIZE_100"`},
		{"no meta", `{"count": 0, "universe": []}`},
		{"unknown protocol", `{"meta": {"protocol": "YOLO", "timestamp": "2026-03-02T09:16:00Z"}, "universe": []}`},
		{"no timestamp", `{"meta": {"protocol": "NORMAL_SIZE_100"}, "universe": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := NewReader(path, logger.Nop()).Load()
			assert.ErrorIs(t, err, ErrContractCorrupt)
		})
	}
}

func TestLoadLegacyContract(t *testing.T) {
	body := `{
		"meta": {"trend": "BEAR", "dispersion": 9.5, "kill_switch": true, "recommendation": "REDUCE_SIZE_50"},
		"timestamp": "2025-01-01T09:16:02.123456+05:30",
		"count": 4,
		"universe": [
			{"symbol": "TCS", "score": 78, "price": 4000.5, "sl": 3900.1, "tgt": 4175.2, "sector": "Technology", "del_pct": 41.2, "perf_10d": 0.02},
			{"symbol": "INFY", "score": 91, "price": 1800, "sl": 1750, "tgt": 1890, "sector": "Technology"},
			{"score": 99},
			{"symbol": "BAD", "score": 140}
		]
	}`

	c, err := NewReader("", logger.Nop()).Parse([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, contracts.ProtocolReduce, c.Meta.Protocol)
	assert.True(t, c.Meta.KillSwitch)
	assert.Equal(t, 2025, c.Meta.Timestamp.Year())
	require.Equal(t, 2, c.Count)
	assert.Equal(t, "INFY", c.Universe[0].Symbol)
	assert.Equal(t, 3900.1, c.Universe[1].StopLoss)
	assert.Equal(t, 41.2, c.Universe[1].DeliveryPct)
}
