package forecast

import (
	"context"
	"time"

	"trade-decision-engine/internal/regime"
	"trade-decision-engine/internal/timeframe"
)

// Direction is the predicted price direction for a candle.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// Forecast is a single directional prediction for one timeframe.
// RawConfidence is the model output; CalibratedConfidence is the
// probability after calibration. Both are in [0, 1].
type Forecast struct {
	Direction            Direction `json:"direction"`
	RawConfidence        float64   `json:"raw_confidence"`
	CalibratedConfidence float64   `json:"calibrated_confidence"`
	CandleTime           time.Time `json:"candle_time"`
}

// MarketSnapshot carries the price geometry needed to derive stop and
// target levels for one timeframe at evaluation time.
type MarketSnapshot struct {
	Entry        float64 `json:"entry"`
	ATR          float64 `json:"atr"`
	ATRRatio     float64 `json:"atr_ratio"` // current ATR over its rolling baseline
	SwingHigh    float64 `json:"swing_high"`
	SwingLow     float64 `json:"swing_low"`
	Balance      float64 `json:"balance"`
	ContractSize float64 `json:"contract_size"`
}

// ForecastProvider supplies the model prediction for a timeframe.
type ForecastProvider interface {
	GetForecast(ctx context.Context, tf timeframe.Timeframe, cycleID string) (Forecast, error)
}

// RegimeProvider supplies the market regime label for a timeframe.
type RegimeProvider interface {
	GetRegime(ctx context.Context, tf timeframe.Timeframe, cycleID string) (regime.Label, error)
}

// MarketDataProvider supplies the price snapshot used for sizing.
type MarketDataProvider interface {
	GetSnapshot(ctx context.Context, tf timeframe.Timeframe, cycleID string) (MarketSnapshot, error)
}
