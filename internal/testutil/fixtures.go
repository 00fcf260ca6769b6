package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/market"
	"github.com/wonny/diamond/internal/strategyconfig"
)

// LinearSeries returns n daily bars with close = start + step*i and
// high/low one point either side of the close.
func LinearSeries(symbol string, n int, start, step float64) *contracts.PriceSeries {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, n)
	for i := 0; i < n; i++ {
		c := start + step*float64(i)
		bars[i] = contracts.Bar{
			Date:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100000,
		}
	}
	return &contracts.PriceSeries{Symbol: symbol, Bars: bars}
}

// CalendarAt returns the default NSE calendar frozen at "YYYY-MM-DD HH:MM" IST
func CalendarAt(t testing.TB, at string) *market.Calendar {
	t.Helper()
	cal, err := market.NewCalendar(strategyconfig.Default().Market)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04", at, cal.Location())
	if err != nil {
		t.Fatalf("parse %q: %v", at, err)
	}
	return cal.WithClock(func() time.Time { return ts })
}

// FakePrices is a map-backed PriceProvider
type FakePrices struct {
	mu     sync.Mutex
	Series map[string]*contracts.PriceSeries
	Errs   map[string]error
	Calls  map[string]int
}

// NewFakePrices creates an empty FakePrices
func NewFakePrices() *FakePrices {
	return &FakePrices{
		Series: map[string]*contracts.PriceSeries{},
		Errs:   map[string]error{},
		Calls:  map[string]int{},
	}
}

func (f *FakePrices) FetchHistory(ctx context.Context, symbol, period string) (*contracts.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[symbol]++
	if err, ok := f.Errs[symbol]; ok {
		return nil, err
	}
	if s, ok := f.Series[symbol]; ok {
		return s, nil
	}
	return nil, contracts.ErrNoData
}

// FakeFundamentals is a map-backed FundamentalsProvider
type FakeFundamentals struct {
	mu    sync.Mutex
	Data  map[string]*contracts.Fundamentals
	Errs  map[string]error
	Calls []string
}

// NewFakeFundamentals creates an empty FakeFundamentals
func NewFakeFundamentals() *FakeFundamentals {
	return &FakeFundamentals{
		Data: map[string]*contracts.Fundamentals{},
		Errs: map[string]error{},
	}
}

func (f *FakeFundamentals) FetchFundamentals(ctx context.Context, symbol string) (*contracts.Fundamentals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, symbol)
	if err, ok := f.Errs[symbol]; ok {
		return nil, err
	}
	if d, ok := f.Data[symbol]; ok {
		cp := *d
		cp.UpdatedAt = time.Now()
		return &cp, nil
	}
	return nil, fmt.Errorf("no fundamentals for %s", symbol)
}

// CallCount returns the number of lookups so far
func (f *FakeFundamentals) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FakeUniverse returns a fixed symbol list
type FakeUniverse struct {
	Symbols []string
	Err     error
}

func (f *FakeUniverse) FetchUniverse(ctx context.Context) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]string(nil), f.Symbols...), nil
}

// FakeDelivery serves delivery data per YYYY-MM-DD
type FakeDelivery struct {
	mu    sync.Mutex
	Days  map[string]map[string]float64
	Tried []string
}

func (f *FakeDelivery) FetchDelivery(ctx context.Context, date time.Time) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := date.Format("2006-01-02")
	f.Tried = append(f.Tried, key)
	if d, ok := f.Days[key]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("no bhavcopy for %s", key)
}

// MemoryNotifier records sent messages
type MemoryNotifier struct {
	mu       sync.Mutex
	Messages []string
	Err      error
}

func (n *MemoryNotifier) Send(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages = append(n.Messages, text)
	return n.Err
}

// Sent returns a copy of the recorded messages
func (n *MemoryNotifier) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Messages...)
}

// MemoryStore is an in-memory RecordStore
type MemoryStore struct {
	mu      sync.Mutex
	Records []contracts.ExecutionRecord
	ReadErr error
}

func (s *MemoryStore) ReadExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	keys := make(map[string]struct{}, len(s.Records))
	for _, r := range s.Records {
		keys[r.Key()] = struct{}{}
	}
	return keys, nil
}

func (s *MemoryStore) Append(ctx context.Context, records []contracts.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Records = append(s.Records, records...)
	return nil
}

// Keys returns the sorted keys of stored records (duplicates kept)
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Records))
	for _, r := range s.Records {
		out = append(out, r.Key())
	}
	sort.Strings(out)
	return out
}

// MemoryCache is a JSON-encoding key/value cache (pkg/redis.Cache shape)
type MemoryCache struct {
	mu     sync.Mutex
	Data   map[string][]byte
	TTLs   map[string]time.Duration
	GetErr error
	SetErr error
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{Data: map[string][]byte{}, TTLs: map[string]time.Duration{}}
}

func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return false, c.GetErr
	}
	data, ok := c.Data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SetErr != nil {
		return c.SetErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.Data[key] = data
	c.TTLs[key] = ttl
	return nil
}
