package contracts

import (
	"sort"
	"time"
)

// Protocol is the position-sizing policy derived from sector dispersion
type Protocol string

const (
	ProtocolNormal Protocol = "NORMAL_SIZE_100"
	ProtocolReduce Protocol = "REDUCE_SIZE_50"
)

// ProtocolFor maps the kill switch onto a protocol
func ProtocolFor(killSwitch bool) Protocol {
	if killSwitch {
		return ProtocolReduce
	}
	return ProtocolNormal
}

// Valid reports whether p is a known protocol
func (p Protocol) Valid() bool {
	return p == ProtocolNormal || p == ProtocolReduce
}

// Candidate is a scored symbol passed from S3 to S4
// ⭐ SSOT: S3 → S4 후보 종목 (생성 후 불변)
type Candidate struct {
	Symbol      string  `json:"symbol" validate:"required"`
	Score       int     `json:"score" validate:"min=0,max=100"`
	Price       float64 `json:"price" validate:"omitempty,gt=0"`
	StopLoss    float64 `json:"sl"`
	Target      float64 `json:"tgt"`
	Sector      string  `json:"sector"`
	DeliveryPct float64 `json:"del_pct"`
	Perf10d     float64 `json:"perf_10d"`
}

// SortCandidates orders by score descending; ties keep input order
func SortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Score > cs[j].Score
	})
}

// Regime is the sector regime passed from S2 to S3/S4
// ⭐ SSOT: S2 → S3 섹터 점수 / 킬 스위치
type Regime struct {
	SectorScores map[string]int `json:"sector_scores"` // 랭크된 섹터만 포함
	Ranked       []SectorRank   `json:"ranked"`        // 중앙값 내림차순
	Dispersion   float64        `json:"dispersion"`
	KillSwitch   bool           `json:"kill_switch"`
	Protocol     Protocol       `json:"protocol"`
}

// SectorRank is one ranked sector
type SectorRank struct {
	Sector  string  `json:"sector"`
	Median  float64 `json:"median"`
	Members int     `json:"members"`
	Score   int     `json:"score"`
}

// NeutralSectorScore is used for sectors excluded from ranking
const NeutralSectorScore = 50

// SectorScore returns the sector's score or NeutralSectorScore
func (r *Regime) SectorScore(sector string) int {
	if r == nil {
		return NeutralSectorScore
	}
	if s, ok := r.SectorScores[sector]; ok {
		return s
	}
	return NeutralSectorScore
}

// Leader returns the top-ranked sector, "" when none
func (r *Regime) Leader() string {
	if r == nil || len(r.Ranked) == 0 {
		return ""
	}
	return r.Ranked[0].Sector
}

// Laggard returns the bottom-ranked sector, "" when none
func (r *Regime) Laggard() string {
	if r == nil || len(r.Ranked) == 0 {
		return ""
	}
	return r.Ranked[len(r.Ranked)-1].Sector
}

// Status is the journal label of the regime
func (r *Regime) Status() string {
	if r.KillSwitch {
		return "CHOPPY"
	}
	return "HEALTHY"
}

// ContractMeta is the run metadata of a signal contract
type ContractMeta struct {
	Trend         Trend     `json:"trend"`
	Dispersion    float64   `json:"dispersion"`
	KillSwitch    bool      `json:"kill_switch"`
	Protocol      Protocol  `json:"protocol" validate:"required,oneof=NORMAL_SIZE_100 REDUCE_SIZE_50"`
	Timestamp     time.Time `json:"timestamp" validate:"required"`
	ContractID    string    `json:"contract_id,omitempty"`
	StrategyID    string    `json:"strategy_id,omitempty"`
	ConfigHash    string    `json:"config_hash,omitempty"`
	MarketPerf10d float64   `json:"market_perf_10d"`
	SectorLeader  string    `json:"sector_leader,omitempty"`
}

// SignalContract is the sole interface between Strategy and Execution
// ⭐ SSOT: S4 → EX 계약 (원자적 교체로만 기록)
type SignalContract struct {
	Meta     ContractMeta `json:"meta" validate:"required"`
	Count    int          `json:"count"`
	Universe []Candidate  `json:"universe" validate:"dive"`
}

// IsSorted reports whether the universe is in descending score order
func (c *SignalContract) IsSorted() bool {
	for i := 1; i < len(c.Universe); i++ {
		if c.Universe[i].Score > c.Universe[i-1].Score {
			return false
		}
	}
	return true
}
