package contracts

import (
	"context"
	"time"
)

// PriceProvider fetches daily history (Yahoo chart)
// ⭐ SSOT: 가격 데이터 포트
type PriceProvider interface {
	FetchHistory(ctx context.Context, symbol string, period string) (*PriceSeries, error)
}

// FundamentalsProvider fetches pe / debt-to-equity / sector
type FundamentalsProvider interface {
	FetchFundamentals(ctx context.Context, symbol string) (*Fundamentals, error)
}

// UniverseProvider fetches index constituents
type UniverseProvider interface {
	FetchUniverse(ctx context.Context) ([]string, error)
}

// DeliveryProvider fetches one trading day's delivery percentages
type DeliveryProvider interface {
	FetchDelivery(ctx context.Context, date time.Time) (map[string]float64, error)
}

// Notifier delivers operator messages (best effort)
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// RecordStore is the append-only execution history sink
// ⭐ SSOT: 멱등 게이트의 경계 계약
type RecordStore interface {
	ReadExistingKeys(ctx context.Context) (map[string]struct{}, error)
	Append(ctx context.Context, records []ExecutionRecord) error
}
