package fundamentals

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/strategyconfig"
	"github.com/wonny/diamond/pkg/logger"
)

// Service resolves fundamentals from the cache, refreshing stale records
// ⭐ SSOT: 펀더멘털 캐시 정책 (7일 만료, 청크 + 지터)
type Service struct {
	provider contracts.FundamentalsProvider
	cache    Cache
	cfg      strategyconfig.Fundamentals
	workers  int
	logger   *logger.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewService creates a fundamentals service
func NewService(provider contracts.FundamentalsProvider, cache Cache, cfg strategyconfig.Fundamentals, workers int, log *logger.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		workers:  workers,
		logger:   log.WithModule("fundamentals"),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// WithClock replaces the wall clock (tests)
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithSleep replaces the inter-chunk pause (tests)
func (s *Service) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Service {
	s.sleep = sleep
	return s
}

// Resolve returns a record for every symbol.
// With refresh, missing and stale records are fetched in shuffled chunks
// and written back; failed lookups are stored as placeholders. Without
// refresh only the cache is read and gaps get unsaved placeholders.
func (s *Service) Resolve(ctx context.Context, symbols []string, refresh bool) (map[string]*contracts.Fundamentals, error) {
	cached, err := s.cache.Get(ctx, symbols)
	if err != nil {
		s.logger.WithError(err).Warn("Fundamentals cache unreadable, treating as empty")
	}
	if cached == nil {
		cached = make(map[string]*contracts.Fundamentals)
	}

	now := s.now()
	maxAge := time.Duration(s.cfg.MaxAgeDays) * 24 * time.Hour

	var stale []string
	for _, sym := range symbols {
		if f, ok := cached[sym]; !ok || f.IsStale(now, maxAge) {
			stale = append(stale, sym)
		}
	}

	if refresh && len(stale) > 0 {
		fresh, err := s.refresh(ctx, stale)
		if err != nil {
			return nil, err
		}
		for sym, f := range fresh {
			cached[sym] = f
		}
		if err := s.cache.Put(ctx, fresh); err != nil {
			s.logger.WithError(err).Warn("Fundamentals cache write failed")
		}
	}

	out := make(map[string]*contracts.Fundamentals, len(symbols))
	missing := 0
	for _, sym := range symbols {
		if f, ok := cached[sym]; ok {
			out[sym] = f
			continue
		}
		out[sym] = contracts.PlaceholderFundamentals(sym, now)
		missing++
	}

	s.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"stale":   len(stale),
		"refresh": refresh,
		"missing": missing,
	}).Info("Fundamentals resolved")

	return out, nil
}

// refresh fetches symbols chunk by chunk with a jittered pause in between
func (s *Service) refresh(ctx context.Context, symbols []string) (map[string]*contracts.Fundamentals, error) {
	order := append([]string(nil), symbols...)
	rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	chunk := s.cfg.ChunkSize
	if chunk < 1 {
		chunk = len(order)
	}

	out := make(map[string]*contracts.Fundamentals, len(order))
	var mu sync.Mutex
	failed := 0

	for start := 0; start < len(order); start += chunk {
		if start > 0 && s.cfg.Jitter > 0 {
			if err := s.sleep(ctx, rand.N(s.cfg.Jitter)); err != nil {
				return nil, err
			}
		}

		end := start + chunk
		if end > len(order) {
			end = len(order)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for _, sym := range order[start:end] {
			sym := sym
			g.Go(func() error {
				f, err := s.provider.FetchFundamentals(gctx, sym)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					s.logger.WithError(err).WithField("symbol", sym).Debug("Fundamentals lookup failed")
					out[sym] = contracts.PlaceholderFundamentals(sym, s.now())
					failed++
					return nil
				}
				f.Symbol = sym
				if f.Sector == "" {
					f.Sector = contracts.UnknownSector
				}
				if f.UpdatedAt.IsZero() {
					f.UpdatedAt = s.now()
				}
				out[sym] = f
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"refreshed": len(out) - failed,
		"failed":    failed,
	}).Info("Fundamentals refreshed")

	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
