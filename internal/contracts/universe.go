package contracts

import "time"

// Universe represents the fetched universe passed from S1 to S2/S3
// ⭐ SSOT: S1 → S2 수집 결과 전달
type Universe struct {
	Date        time.Time               `json:"date"`
	Symbols     []string                `json:"symbols"`               // 지수 구성 종목 (격리 제외 전)
	Quarantined []string                `json:"quarantined,omitempty"` // 격리로 제외된 종목
	Series      map[string]*PriceSeries `json:"-"`                     // 수집 성공 종목
	Failures    map[string]*SymbolError `json:"failures,omitempty"`    // 종목별 실패 사유
	Attempted   int                     `json:"attempted"`
}

// Fetched returns the symbols with a usable series, in universe order
func (u *Universe) Fetched() []string {
	out := make([]string, 0, len(u.Series))
	for _, s := range u.Symbols {
		if _, ok := u.Series[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// FailedCount returns the number of per-symbol failures
func (u *Universe) FailedCount() int {
	return len(u.Failures)
}

// FailuresByKind counts failures per kind
func (u *Universe) FailuresByKind() map[FailureKind]int {
	out := make(map[FailureKind]int)
	for _, f := range u.Failures {
		out[f.Kind]++
	}
	return out
}

// MarketContext is the index backdrop used by regime and alpha scoring
type MarketContext struct {
	Trend   Trend   `json:"trend"`
	Perf10d float64 `json:"perf_10d"` // fractional
}

// Trend is the index trend classification
type Trend string

const (
	TrendBull    Trend = "BULL"
	TrendBear    Trend = "BEAR"
	TrendNeutral Trend = "NEUTRAL"
)
