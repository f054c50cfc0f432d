package decision

// ReasonCode explains why a forecast was rejected, or annotates an
// admitted trade in the audit trail.
type ReasonCode string

const (
	// Upstream availability.
	ReasonModelUnavailable      ReasonCode = "MODEL_UNAVAILABLE"
	ReasonRegimeUnavailable     ReasonCode = "REGIME_UNAVAILABLE"
	ReasonMarketDataUnavailable ReasonCode = "MARKET_DATA_UNAVAILABLE"
	ReasonConfigError           ReasonCode = "CONFIG_ERROR"
	ReasonEngineError           ReasonCode = "ENGINE_ERROR"

	// Admission gates.
	ReasonHighImpactNews      ReasonCode = "HIGH_IMPACT_NEWS"
	ReasonCalibrationUnstable ReasonCode = "CALIBRATION_UNSTABLE"
	ReasonCalibrationWarning  ReasonCode = "CALIBRATION_WARNING" // audit tag only
	ReasonHTFConflict         ReasonCode = "HTF_CONFLICT"
	ReasonLowConfidence       ReasonCode = "LOW_CONFIDENCE"
	ReasonRangeMarket         ReasonCode = "RANGE_MARKET"
	ReasonHighVolatility      ReasonCode = "HIGH_VOLATILITY"
	ReasonLowVolatility       ReasonCode = "LOW_VOLATILITY"
	ReasonRegimeFilter        ReasonCode = "REGIME_FILTER"

	// Risk and sizing.
	ReasonBadRR        ReasonCode = "BAD_RR"
	ReasonRiskTooLow   ReasonCode = "RISK_TOO_LOW"
	ReasonStopTooTight ReasonCode = "SL_TOO_TIGHT"
	ReasonLotCalcError ReasonCode = "LOT_CALC_ERROR"
	ReasonZeroRisk     ReasonCode = "ZERO_RISK"
)
