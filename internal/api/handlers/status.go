package handlers

import (
	"errors"
	"net/http"

	"github.com/wonny/diamond/internal/s0_guard"
	"github.com/wonny/diamond/internal/s4_contract"
	"github.com/wonny/diamond/internal/scheduler"
	"github.com/wonny/diamond/pkg/logger"
)

// JobSource exposes scheduler statistics
type JobSource interface {
	GetJobStats() map[string]scheduler.JobStats
}

// StatusSource reports orchestration state (last runs, due flags)
type StatusSource interface {
	Status() map[string]interface{}
}

// StatusHandler serves read-only pipeline state
// ⭐ SSOT: 상태 API 핸들러는 이 구조체에서만
type StatusHandler struct {
	reader     *s4_contract.Reader
	quarantine *s0_guard.Quarantine
	jobs       JobSource
	status     StatusSource
	logger     *logger.Logger
}

// NewStatusHandler creates a new status handler; jobs and status may be nil
func NewStatusHandler(
	reader *s4_contract.Reader,
	quarantine *s0_guard.Quarantine,
	jobs JobSource,
	status StatusSource,
	log *logger.Logger,
) *StatusHandler {
	return &StatusHandler{
		reader:     reader,
		quarantine: quarantine,
		jobs:       jobs,
		status:     status,
		logger:     log.WithModule("api"),
	}
}

// GetContract returns the current signal contract
// GET /api/contract
func (h *StatusHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	contract, err := h.reader.Load()
	switch {
	case errors.Is(err, s4_contract.ErrContractNotFound):
		respondError(w, http.StatusNotFound, "No contract published yet")
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to load contract")
		respondError(w, http.StatusUnprocessableEntity, "Contract is corrupt")
		return
	}

	respondJSON(w, http.StatusOK, contract)
}

// GetQuarantine returns the quarantine list
// GET /api/quarantine
func (h *StatusHandler) GetQuarantine(w http.ResponseWriter, r *http.Request) {
	entries := h.quarantine.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// GetJobs returns scheduler statistics and orchestration state
// GET /api/jobs
func (h *StatusHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	out := map[string]interface{}{}
	if h.jobs != nil {
		out["jobs"] = h.jobs.GetJobStats()
	}
	if h.status != nil {
		out["state"] = h.status.Status()
	}
	respondJSON(w, http.StatusOK, out)
}
