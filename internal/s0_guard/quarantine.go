package s0_guard

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/wonny/diamond/internal/market"
	"github.com/wonny/diamond/pkg/fileutil"
	"github.com/wonny/diamond/pkg/logger"
)

// QuarantineRepository persists the jail list as symbol → YYYY-MM-DD
type QuarantineRepository interface {
	Load() (map[string]string, error)
	Save(entries map[string]string) error
}

// FileRepository stores the jail list as one JSON object (atomic replace)
type FileRepository struct {
	path string
}

// NewFileRepository creates a FileRepository
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Load reads the jail list; a missing file is an empty list.
// A corrupt file returns an empty list together with the decode error.
func (r *FileRepository) Load() (map[string]string, error) {
	entries := make(map[string]string)
	if err := fileutil.ReadJSON(r.path, &entries); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return map[string]string{}, err
	}
	return entries, nil
}

// Save atomically replaces the jail list
func (r *FileRepository) Save(entries map[string]string) error {
	return fileutil.WriteJSONAtomic(r.path, entries)
}

// QuarantineEntry is one jailed symbol
type QuarantineEntry struct {
	Symbol     string `json:"symbol"`
	JailedOn   string `json:"jailed_on"`
	DaysServed int    `json:"days_served"`
}

// Quarantine suppresses symbols with a bad data history for a fixed number of days
// ⭐ SSOT: 격리 목록 읽기/쓰기는 여기서만
type Quarantine struct {
	repo   QuarantineRepository
	days   int
	cal    *market.Calendar
	logger *logger.Logger

	mu      sync.Mutex
	entries map[string]string
	loaded  bool
}

// NewQuarantine creates a Quarantine over repo
func NewQuarantine(repo QuarantineRepository, days int, cal *market.Calendar, log *logger.Logger) *Quarantine {
	return &Quarantine{
		repo:   repo,
		days:   days,
		cal:    cal,
		logger: log.WithModule("quarantine"),
	}
}

// Reload re-reads the persisted list, discarding in-memory state
func (q *Quarantine) Reload() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reloadLocked()
}

func (q *Quarantine) reloadLocked() {
	entries, err := q.repo.Load()
	if err != nil {
		q.logger.WithError(err).Warn("Quarantine list unreadable, starting empty")
	}
	if entries == nil {
		entries = map[string]string{}
	}
	q.entries = entries
	q.loaded = true
}

func (q *Quarantine) ensureLoaded() {
	if !q.loaded {
		q.reloadLocked()
	}
}

// IsQuarantined reports whether symbol is still serving its sentence.
// A served sentence is removed and persisted before returning false.
// An unparseable date releases the symbol.
func (q *Quarantine) IsQuarantined(symbol string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ensureLoaded()

	jailedOn, ok := q.entries[symbol]
	if !ok {
		return false
	}

	served, err := q.daysServed(jailedOn)
	if err != nil {
		q.logger.WithFields(map[string]interface{}{
			"symbol":    symbol,
			"jailed_on": jailedOn,
		}).Warn("Corrupt quarantine date, releasing")
		q.releaseLocked(symbol)
		return false
	}

	if served >= q.days {
		q.logger.WithFields(map[string]interface{}{
			"symbol":      symbol,
			"days_served": served,
		}).Info("Paroled from quarantine")
		q.releaseLocked(symbol)
		return false
	}

	return true
}

// Filter splits symbols into tradable and jailed, re-reading the list first
func (q *Quarantine) Filter(symbols []string) (kept, jailed []string) {
	q.Reload()

	kept = make([]string, 0, len(symbols))
	for _, s := range symbols {
		if q.IsQuarantined(s) {
			jailed = append(jailed, s)
			continue
		}
		kept = append(kept, s)
	}
	return kept, jailed
}

// Add jails symbol as of today. Re-jailing refreshes the date.
// The in-memory entry stands even when persisting fails.
func (q *Quarantine) Add(symbol, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ensureLoaded()

	q.entries[symbol] = q.cal.Today().Format(market.DateLayout)

	q.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"reason": reason,
	}).Warn("Quarantining symbol")

	if err := q.repo.Save(q.entries); err != nil {
		q.logger.WithError(err).WithField("symbol", symbol).Error("Failed to persist quarantine")
		return fmt.Errorf("persist quarantine %s: %w", symbol, err)
	}
	return nil
}

// Release removes symbol; false when it was not jailed
func (q *Quarantine) Release(symbol string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ensureLoaded()

	if _, ok := q.entries[symbol]; !ok {
		return false, nil
	}
	return true, q.releaseLocked(symbol)
}

// List returns every entry sorted by symbol, without applying parole
func (q *Quarantine) List() []QuarantineEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reloadLocked()

	out := make([]QuarantineEntry, 0, len(q.entries))
	for symbol, jailedOn := range q.entries {
		served, err := q.daysServed(jailedOn)
		if err != nil {
			served = -1
		}
		out = append(out, QuarantineEntry{Symbol: symbol, JailedOn: jailedOn, DaysServed: served})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Size returns the number of entries currently held
func (q *Quarantine) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ensureLoaded()
	return len(q.entries)
}

func (q *Quarantine) releaseLocked(symbol string) error {
	delete(q.entries, symbol)
	if err := q.repo.Save(q.entries); err != nil {
		q.logger.WithError(err).WithField("symbol", symbol).Error("Failed to persist parole")
		return fmt.Errorf("persist parole %s: %w", symbol, err)
	}
	return nil
}

func (q *Quarantine) daysServed(jailedOn string) (int, error) {
	jailed, err := time.ParseInLocation(market.DateLayout, jailedOn, q.cal.Location())
	if err != nil {
		return 0, err
	}
	days := q.cal.Today().Sub(jailed).Hours() / 24
	return int(math.Round(days)), nil
}
