package contracts

import "time"

// Bar is one daily OHLCV bar
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ascending daily history for one symbol
// ⭐ SSOT: PriceProvider → S1/S3/EX 가격 데이터 전달
type PriceSeries struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of bars
func (p *PriceSeries) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Bars)
}

// Closes returns the close column
func (p *PriceSeries) Closes() []float64 {
	out := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high column
func (p *PriceSeries) Highs() []float64 {
	out := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low column
func (p *PriceSeries) Lows() []float64 {
	out := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		out[i] = b.Low
	}
	return out
}

// LastClose returns the most recent close, 0 when empty
func (p *PriceSeries) LastClose() float64 {
	if p.Len() == 0 {
		return 0
	}
	return p.Bars[len(p.Bars)-1].Close
}

// PerfOver returns the fractional return from the close lookback bars
// before the last one (close[len-lookback]) to the last close.
// ok is false when the series is too short or the base close is not positive.
func (p *PriceSeries) PerfOver(lookback int) (float64, bool) {
	n := p.Len()
	if lookback < 1 || n < lookback {
		return 0, false
	}
	base := p.Bars[n-lookback].Close
	if base <= 0 {
		return 0, false
	}
	return (p.Bars[n-1].Close - base) / base, true
}

// Fundamentals is the cached per-symbol fundamentals record
type Fundamentals struct {
	Symbol       string    `json:"symbol"`
	PE           float64   `json:"pe"`
	DebtToEquity float64   `json:"de"`
	Sector       string    `json:"sector"`
	UpdatedAt    time.Time `json:"last_updated"`
	Placeholder  bool      `json:"placeholder,omitempty"` // 조회 실패 기본값 (하루만 유효)
}

// PlaceholderMaxAge bounds how long a failed lookup's defaults are reused
const PlaceholderMaxAge = 24 * time.Hour

// PlaceholderFundamentals is cached when a lookup fails
func PlaceholderFundamentals(symbol string, now time.Time) *Fundamentals {
	return &Fundamentals{Symbol: symbol, Sector: UnknownSector, UpdatedAt: now, Placeholder: true}
}

// UnknownSector is the sector of symbols without classification
const UnknownSector = "Unknown"

// SectorOrUnknown returns the sector, or UnknownSector when blank
func (f *Fundamentals) SectorOrUnknown() string {
	if f == nil || f.Sector == "" {
		return UnknownSector
	}
	return f.Sector
}

// IsStale reports whether the record is older than maxAge at now
func (f *Fundamentals) IsStale(now time.Time, maxAge time.Duration) bool {
	if f == nil || f.UpdatedAt.IsZero() {
		return true
	}
	if f.Placeholder && maxAge > PlaceholderMaxAge {
		maxAge = PlaceholderMaxAge
	}
	return now.Sub(f.UpdatedAt) > maxAge
}
