package s2_regime

import (
	"github.com/wonny/diamond/internal/contracts"
)

// Inputs builds regime inputs from every fetched series with a valid
// trailing return. Symbols without fundamentals fall into UnknownSector.
func Inputs(u *contracts.Universe, funds map[string]*contracts.Fundamentals, lookback int) []SectorPerf {
	out := make([]SectorPerf, 0, len(u.Series))
	for _, symbol := range u.Fetched() {
		perf, ok := u.Series[symbol].PerfOver(lookback)
		if !ok {
			continue
		}
		out = append(out, SectorPerf{
			Sector:  funds[symbol].SectorOrUnknown(),
			Perf10d: perf,
		})
	}
	return out
}
