package contracts

import (
	"errors"
	"fmt"
)

// FailureKind classifies a per-symbol failure
type FailureKind string

const (
	KindFetch        FailureKind = "fetch"        // transport / upstream error
	KindEmpty        FailureKind = "empty"        // no rows returned
	KindInsufficient FailureKind = "insufficient" // fewer bars than required
	KindParse        FailureKind = "parse"        // malformed payload
	KindIndicator    FailureKind = "indicator"    // undefined / non-finite indicator
)

// ErrNoData is returned by providers when a symbol has no rows
var ErrNoData = errors.New("no data")

// SymbolError is a typed per-symbol failure
type SymbolError struct {
	Symbol string
	Kind   FailureKind
	Err    error
}

func (e *SymbolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Symbol, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Symbol, e.Kind, e.Err)
}

func (e *SymbolError) Unwrap() error {
	return e.Err
}

// NewSymbolError builds a SymbolError
func NewSymbolError(symbol string, kind FailureKind, err error) *SymbolError {
	return &SymbolError{Symbol: symbol, Kind: kind, Err: err}
}

// AsSymbolError classifies err for symbol: an existing SymbolError is
// returned as is, ErrNoData maps to KindEmpty, anything else to KindFetch.
func AsSymbolError(symbol string, err error) *SymbolError {
	var se *SymbolError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, ErrNoData) {
		return NewSymbolError(symbol, KindEmpty, err)
	}
	return NewSymbolError(symbol, KindFetch, err)
}

// IsDataQuality reports whether the failure reflects bad data rather than
// an unreachable upstream; only these are candidates for quarantine.
func (e *SymbolError) IsDataQuality() bool {
	switch e.Kind {
	case KindEmpty, KindInsufficient, KindParse, KindIndicator:
		return true
	default:
		return false
	}
}
