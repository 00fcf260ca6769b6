package s4_contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/logger"
)

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrContractCorrupt  = errors.New("contract corrupt")
)

// legacy timestamps were written without an explicit layout
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

// Reader loads and validates the published contract
type Reader struct {
	path     string
	validate *validator.Validate
	logger   *logger.Logger
}

// NewReader creates a contract reader for path
func NewReader(path string, log *logger.Logger) *Reader {
	return &Reader{
		path:     path,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log.WithModule("s4_contract"),
	}
}

// Load reads the contract. A missing file wraps ErrContractNotFound and an
// unparseable or invalid meta wraps ErrContractCorrupt. Universe entries
// lacking symbol/score or failing validation are dropped; the survivors
// are re-sorted by score.
func (r *Reader) Load() (*contracts.SignalContract, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrContractNotFound, r.path)
		}
		return nil, fmt.Errorf("read contract: %w", err)
	}
	return r.Parse(data)
}

// Parse decodes and validates a contract payload
func (r *Reader) Parse(data []byte) (*contracts.SignalContract, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrContractCorrupt)
	}
	root := gjson.ParseBytes(data)

	metaJSON := root.Get("meta")
	if !metaJSON.IsObject() {
		return nil, fmt.Errorf("%w: missing meta", ErrContractCorrupt)
	}

	meta, err := r.parseMeta(root, metaJSON)
	if err != nil {
		return nil, err
	}

	universe := make([]contracts.Candidate, 0)
	dropped := 0
	for _, entry := range root.Get("universe").Array() {
		c, ok := r.parseCandidate(entry)
		if !ok {
			dropped++
			continue
		}
		universe = append(universe, c)
	}
	contracts.SortCandidates(universe)

	if dropped > 0 {
		r.logger.WithField("dropped", dropped).Warn("Invalid contract entries dropped")
	}

	return &contracts.SignalContract{
		Meta:     meta,
		Count:    len(universe),
		Universe: universe,
	}, nil
}

func (r *Reader) parseMeta(root, metaJSON gjson.Result) (contracts.ContractMeta, error) {
	var meta contracts.ContractMeta
	// timestamp is parsed separately below
	raw := metaJSON.Raw
	if ts := metaJSON.Get("timestamp"); ts.Exists() {
		raw = removeKey(metaJSON, "timestamp")
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return meta, fmt.Errorf("%w: meta: %v", ErrContractCorrupt, err)
	}

	// meta.protocol → meta.recommendation → kill switch
	if p := metaJSON.Get("protocol").String(); p != "" {
		meta.Protocol = contracts.Protocol(p)
	} else if rec := metaJSON.Get("recommendation").String(); rec != "" {
		meta.Protocol = contracts.Protocol(rec)
	} else {
		meta.Protocol = contracts.ProtocolFor(meta.KillSwitch)
	}

	// meta.timestamp, or the top-level timestamp of older contracts
	ts := metaJSON.Get("timestamp")
	if !ts.Exists() {
		ts = root.Get("timestamp")
	}
	if ts.Exists() {
		parsed, ok := parseTimestamp(ts.String())
		if !ok {
			return meta, fmt.Errorf("%w: bad timestamp %q", ErrContractCorrupt, ts.String())
		}
		meta.Timestamp = parsed
	}

	if meta.Timestamp.IsZero() {
		return meta, fmt.Errorf("%w: missing timestamp", ErrContractCorrupt)
	}
	if err := r.validate.Struct(meta); err != nil {
		return meta, fmt.Errorf("%w: meta: %v", ErrContractCorrupt, err)
	}
	return meta, nil
}

func (r *Reader) parseCandidate(entry gjson.Result) (contracts.Candidate, bool) {
	var c contracts.Candidate
	if !entry.IsObject() || !entry.Get("symbol").Exists() || !entry.Get("score").Exists() {
		return c, false
	}
	if err := json.Unmarshal([]byte(entry.Raw), &c); err != nil {
		return c, false
	}
	if err := r.validate.Struct(c); err != nil {
		return c, false
	}
	return c, true
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// removeKey re-encodes an object without key
func removeKey(obj gjson.Result, key string) string {
	out := make(map[string]json.RawMessage)
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() != key {
			out[k.String()] = json.RawMessage(v.Raw)
		}
		return true
	})
	b, _ := json.Marshal(out)
	return string(b)
}
