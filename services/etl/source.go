// Package etl implements the daily market-data pipeline: ingest raw bars
// into staging, normalize them into the canonical price fact, compute
// rolling indicators, and derive composite trading signals. Each stage is
// independently triggerable and idempotent; the Runner wraps invocations
// with run tracking.
package etl

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source identifies a market-data provider. The set is closed: anything
// outside the constants below is rejected at the ingest boundary.
type Source string

const (
	SourceVNDirect Source = "VNDIRECT"
	SourceTCBS     Source = "TCBS"
	SourceSSI      Source = "SSI"
)

// ErrUnsupportedSource is returned when a job names a provider outside the
// closed source set. It is a validation error and is never retried.
var ErrUnsupportedSource = errors.New("unsupported source")

// sourcePriorities ranks providers for conflict resolution. A higher rank
// wins; an incoming row overwrites the incumbent when its rank is >= the
// incumbent's, so equal-priority conflicts resolve last-write-wins.
var sourcePriorities = map[Source]int{
	SourceVNDirect: 3,
	SourceTCBS:     2,
	SourceSSI:      1,
}

// Priority returns the conflict-resolution rank of a source. Unknown
// sources rank 0 and lose to any known provider.
func (s Source) Priority() int {
	return sourcePriorities[s]
}

// ParseSource validates a provider name against the closed source set.
func ParseSource(name string) (Source, error) {
	s := Source(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := sourcePriorities[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSource, name)
	}
	return s, nil
}

// Sources returns the closed provider set in priority order, highest first.
func Sources() []Source {
	return []Source{SourceVNDirect, SourceTCBS, SourceSSI}
}

// RawBar is one daily OHLCV bar as returned by a provider.
type RawBar struct {
	Source     string    `json:"source"`
	Symbol     string    `json:"symbol"`
	Date       time.Time `json:"date"`
	Open       *float64  `json:"open"`
	High       *float64  `json:"high"`
	Low        *float64  `json:"low"`
	Close      *float64  `json:"close"`
	Volume     int64     `json:"volume"`
	RawPayload []byte    `json:"raw_payload"`
}

// RawBarSource fetches daily bars for one provider symbol. Concrete
// provider clients live in services/datafetcher.
type RawBarSource interface {
	FetchDailyBars(symbol string, from, to time.Time) ([]RawBar, error)
}
