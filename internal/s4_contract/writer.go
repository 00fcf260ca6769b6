package s4_contract

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/fileutil"
	"github.com/wonny/diamond/pkg/logger"
	"github.com/wonny/diamond/pkg/metrics"
)

// writeFile is replaced in tests to simulate a crash before rename
var writeFile = fileutil.WriteAtomic

// Writer publishes the signal contract
// ⭐ SSOT: 계약 파일 기록은 여기서만 (임시 파일 → fsync → rename)
type Writer struct {
	path   string
	topN   int
	logger *logger.Logger
}

// NewWriter creates a contract writer for path
func NewWriter(path string, topN int, log *logger.Logger) *Writer {
	return &Writer{
		path:   path,
		topN:   topN,
		logger: log.WithModule("s4_contract"),
	}
}

// Path returns the canonical contract path
func (w *Writer) Path() string {
	return w.path
}

// Write sorts ranked (stable, score descending), keeps the top N and
// atomically replaces the contract file. On error the previous contract
// is left untouched.
func (w *Writer) Write(meta contracts.ContractMeta, ranked []contracts.Candidate) (*contracts.SignalContract, error) {
	start := time.Now()
	defer metrics.ObserveStage(string(contracts.StageContract), start)

	universe := append([]contracts.Candidate(nil), ranked...)
	contracts.SortCandidates(universe)
	if w.topN > 0 && len(universe) > w.topN {
		universe = universe[:w.topN]
	}

	if meta.ContractID == "" {
		meta.ContractID = uuid.New().String()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if !meta.Protocol.Valid() {
		meta.Protocol = contracts.ProtocolFor(meta.KillSwitch)
	}

	contract := &contracts.SignalContract{
		Meta:     meta,
		Count:    len(universe),
		Universe: universe,
	}

	data, err := json.MarshalIndent(contract, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal contract: %w", err)
	}

	if err := writeFile(w.path, data, 0o644); err != nil {
		w.logger.WithError(err).Error("Contract write failed, previous contract kept")
		return nil, fmt.Errorf("write contract: %w", err)
	}

	metrics.Candidates.Set(float64(contract.Count))
	metrics.SetBool(metrics.KillSwitch, meta.KillSwitch)

	w.logger.WithFields(map[string]interface{}{
		"contract_id": meta.ContractID,
		"count":       contract.Count,
		"protocol":    meta.Protocol,
		"path":        w.path,
	}).Info("Contract published")

	return contract, nil
}
