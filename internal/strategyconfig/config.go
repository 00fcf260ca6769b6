package strategyconfig

import "time"

// Config는 Diamond 파이프라인의 전체 전략 설정
// ⭐ SSOT: 모든 임계값은 여기서만 정의 (Default + YAML override)
type Config struct {
	Meta         Meta         `yaml:"meta" json:"meta"`
	Market       Market       `yaml:"market" json:"market"`
	Guard        Guard        `yaml:"guard" json:"guard"`
	Universe     Universe     `yaml:"universe" json:"universe"`
	Fundamentals Fundamentals `yaml:"fundamentals" json:"fundamentals"`
	Delivery     Delivery     `yaml:"delivery" json:"delivery"`
	Regime       Regime       `yaml:"regime" json:"regime"`
	Scoring      Scoring      `yaml:"scoring" json:"scoring"`
	Contract     Contract     `yaml:"contract" json:"contract"`
	Execution    Execution    `yaml:"execution" json:"execution"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Market 시장 캘린더 / 세션
type Market struct {
	Timezone        string   `yaml:"timezone" json:"timezone"`
	IndexSymbol     string   `yaml:"index_symbol" json:"index_symbol"`
	SymbolSuffix    string   `yaml:"symbol_suffix" json:"symbol_suffix"` // ".NS"
	StrategyRunTime string   `yaml:"strategy_run_time" json:"strategy_run_time"`
	Session         Window   `yaml:"session" json:"session"`
	Holidays        []string `yaml:"holidays" json:"holidays"` // YYYY-MM-DD
}

type Window struct {
	Start string `yaml:"start" json:"start"` // HH:MM
	End   string `yaml:"end" json:"end"`     // HH:MM
}

// Guard S0: 사전 점검 / 격리 / 서킷 브레이커
type Guard struct {
	HealthProbe HealthProbe `yaml:"health_probe" json:"health_probe"`
	Quarantine  Quarantine  `yaml:"quarantine" json:"quarantine"`
	Breaker     Breaker     `yaml:"breaker" json:"breaker"`
}

type HealthProbe struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Symbol  string `yaml:"symbol" json:"symbol"`
	Period  string `yaml:"period" json:"period"`
	MinRows int    `yaml:"min_rows" json:"min_rows"`
}

type Quarantine struct {
	Days     int    `yaml:"days" json:"days"`
	AutoJail bool   `yaml:"auto_jail" json:"auto_jail"`
	File     string `yaml:"file" json:"file"`
}

type Breaker struct {
	MaxFailureRate   float64 `yaml:"max_failure_rate" json:"max_failure_rate"`
	FundamentalAbort float64 `yaml:"fundamental_abort" json:"fundamental_abort"`
}

// Universe S1: 수집 대상 / 병렬도
type Universe struct {
	ListURL        string  `yaml:"list_url" json:"list_url"`
	HistoryPeriod  string  `yaml:"history_period" json:"history_period"`
	MinFetchBars   int     `yaml:"min_fetch_bars" json:"min_fetch_bars"`
	Workers        int     `yaml:"workers" json:"workers"`
	RequestsPerSec float64 `yaml:"requests_per_sec" json:"requests_per_sec"`
}

// Fundamentals 캐시 정책
type Fundamentals struct {
	MaxAgeDays int           `yaml:"max_age_days" json:"max_age_days"`
	ChunkSize  int           `yaml:"chunk_size" json:"chunk_size"`
	Jitter     time.Duration `yaml:"jitter" json:"jitter"`
	File       string        `yaml:"file" json:"file"`
}

// Delivery 인도율 조회 정책
type Delivery struct {
	URLTemplate  string  `yaml:"url_template" json:"url_template"` // DDMMYYYY 치환
	LookbackDays int     `yaml:"lookback_days" json:"lookback_days"`
	DefaultPct   float64 `yaml:"default_pct" json:"default_pct"`
}

// Regime S2: 섹터 분산도
type Regime struct {
	MinSectorSize       int     `yaml:"min_sector_size" json:"min_sector_size"`
	DispersionThreshold float64 `yaml:"dispersion_threshold" json:"dispersion_threshold"`
	PerfLookback        int     `yaml:"perf_lookback" json:"perf_lookback"`
	JournalFile         string  `yaml:"journal_file" json:"journal_file"`
}

// Scoring S3: 7팩터 점수화
type Scoring struct {
	MinBars         int            `yaml:"min_bars" json:"min_bars"`
	Threshold       int            `yaml:"threshold" json:"threshold"`
	StopATRMult     float64        `yaml:"stop_atr_mult" json:"stop_atr_mult"`
	TargetATRMult   float64        `yaml:"target_atr_mult" json:"target_atr_mult"`
	DeliveryFullPct float64        `yaml:"delivery_full_pct" json:"delivery_full_pct"`
	WeightsPct      ScoringWeights `yaml:"weights_pct" json:"weights_pct"`
	AuditFile       string         `yaml:"audit_file" json:"audit_file"`
}

type ScoringWeights struct {
	Technical  int `yaml:"technical" json:"technical"`
	Liquidity  int `yaml:"liquidity" json:"liquidity"`
	Sector     int `yaml:"sector" json:"sector"`
	Alpha      int `yaml:"alpha" json:"alpha"`
	Valuation  int `yaml:"valuation" json:"valuation"`
	Solvency   int `yaml:"solvency" json:"solvency"`
	Volatility int `yaml:"volatility" json:"volatility"`
}

// Sum returns the sum of all weights
func (w ScoringWeights) Sum() int {
	return w.Technical + w.Liquidity + w.Sector + w.Alpha + w.Valuation + w.Solvency + w.Volatility
}

// Contract S4: 전략 → 실행 계약
type Contract struct {
	TopN         int    `yaml:"top_n" json:"top_n"`
	File         string `yaml:"file" json:"file"`
	SnapshotFile string `yaml:"snapshot_file" json:"snapshot_file"` // 계약을 만든 설정 스냅샷
}

// Execution 실행 단계
type Execution struct {
	MinBars          int           `yaml:"min_bars" json:"min_bars"`
	HistoryPeriod    string        `yaml:"history_period" json:"history_period"`
	MinInterval      time.Duration `yaml:"min_interval" json:"min_interval"`
	MaxDisplayNormal int           `yaml:"max_display_normal" json:"max_display_normal"`
	MaxDisplayKill   int           `yaml:"max_display_kill" json:"max_display_kill"`
	HighConviction   int           `yaml:"high_conviction" json:"high_conviction"`
	StateFile        string        `yaml:"state_file" json:"state_file"`
}

// Default returns the production NSE configuration
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "diamond_nse",
			Version:    "17.2",
		},
		Market: Market{
			Timezone:        "Asia/Kolkata",
			IndexSymbol:     "^NSEI",
			SymbolSuffix:    ".NS",
			StrategyRunTime: "09:15",
			Session:         Window{Start: "09:00", End: "16:00"},
			Holidays: []string{
				"2026-01-26", "2026-03-03", "2026-03-26", "2026-03-31",
				"2026-04-03", "2026-04-14", "2026-05-01", "2026-05-28",
				"2026-06-26", "2026-08-15", "2026-09-14", "2026-10-02",
				"2026-10-20", "2026-11-10", "2026-11-24", "2026-12-25",
			},
		},
		Guard: Guard{
			HealthProbe: HealthProbe{Enabled: true, Symbol: "SBIN", Period: "5d", MinRows: 2},
			Quarantine:  Quarantine{Days: 7, AutoJail: true, File: "quarantine_list.json"},
			Breaker:     Breaker{MaxFailureRate: 0.15, FundamentalAbort: 0.05},
		},
		Universe: Universe{
			ListURL:        "https://archives.nseindia.com/content/indices/ind_nifty200list.csv",
			HistoryPeriod:  "1y",
			MinFetchBars:   20,
			Workers:        4,
			RequestsPerSec: 4,
		},
		Fundamentals: Fundamentals{
			MaxAgeDays: 7,
			ChunkSize:  10,
			Jitter:     2 * time.Second,
			File:       "fundamentals_cache.json",
		},
		Delivery: Delivery{
			URLTemplate:  "https://archives.nseindia.com/products/content/sec_bhavdata_full_%s.csv",
			LookbackDays: 3,
			DefaultPct:   30,
		},
		Regime: Regime{
			MinSectorSize:       5,
			DispersionThreshold: 15,
			PerfLookback:        10,
			JournalFile:         "regime_journal.csv",
		},
		Scoring: Scoring{
			MinBars:         100,
			Threshold:       75,
			StopATRMult:     2.0,
			TargetATRMult:   3.5,
			DeliveryFullPct: 60,
			WeightsPct: ScoringWeights{
				Technical:  25,
				Liquidity:  20,
				Sector:     15,
				Alpha:      15,
				Valuation:  10,
				Solvency:   10,
				Volatility: 5,
			},
			AuditFile: "audit_rejections.csv",
		},
		Contract: Contract{
			TopN:         20,
			File:         "diamond_signal.json",
			SnapshotFile: "diamond_signal.config.json",
		},
		Execution: Execution{
			MinBars:          50,
			HistoryPeriod:    "1y",
			MinInterval:      15 * time.Minute,
			MaxDisplayNormal: 5,
			MaxDisplayKill:   2,
			HighConviction:   85,
			StateFile:        "scheduler_state.json",
		},
	}
}

// DecisionSnapshot 의사결정 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	CreatedAt  time.Time `json:"created_at"`
}
