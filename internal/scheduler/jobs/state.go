package jobs

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/wonny/diamond/pkg/fileutil"
	"github.com/wonny/diamond/pkg/logger"
)

// State is the orchestrator's persisted memory across restarts
type State struct {
	LastStrategyDate string    `json:"last_strategy_date"` // YYYY-MM-DD
	LastExecutionAt  time.Time `json:"last_execution_at"`
}

// StateStore reads and writes State as a JSON file
type StateStore struct {
	path   string
	mu     sync.Mutex
	logger *logger.Logger
}

// NewStateStore creates a store at path
func NewStateStore(path string, log *logger.Logger) *StateStore {
	return &StateStore{path: path, logger: log.WithModule("scheduler_state")}
}

// Load returns the persisted state; a missing or corrupt file yields the zero state
func (s *StateStore) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st State
	if err := fileutil.ReadJSON(s.path, &st); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.WithError(err).Warn("Scheduler state unreadable, starting fresh")
		}
		return State{}
	}
	return st
}

// Save replaces the state file atomically
func (s *StateStore) Save(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fileutil.WriteJSONAtomic(s.path, st)
}
