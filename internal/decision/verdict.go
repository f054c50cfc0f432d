package decision

import (
	"time"

	"trade-decision-engine/internal/drift"
	"trade-decision-engine/internal/forecast"
	"trade-decision-engine/internal/htf"
	"trade-decision-engine/internal/news"
	"trade-decision-engine/internal/regime"
	"trade-decision-engine/internal/risk"
	"trade-decision-engine/internal/timeframe"
)

// Decision is the binary admission outcome.
type Decision string

const (
	Trade   Decision = "TRADE"
	NoTrade Decision = "NO_TRADE"
)

// TradeSetup is the sized proposal attached to an admitted verdict.
type TradeSetup = risk.Setup

// Verdict is the complete, self-describing outcome of one evaluation.
// Every intermediate gate output is retained so the audit trail can
// reconstruct the decision without re-running it.
type Verdict struct {
	CycleID     string              `json:"cycle_id"`
	Timeframe   timeframe.Timeframe `json:"timeframe"`
	EvaluatedAt time.Time           `json:"evaluated_at"`

	Decision       Decision     `json:"decision"`
	ReasonCode     ReasonCode   `json:"reason_code,omitempty"`
	AuditTags      []ReasonCode `json:"audit_tags,omitempty"`
	RiskMultiplier float64      `json:"risk_multiplier"`
	Setup          TradeSetup   `json:"setup"`

	Forecast            *forecast.Forecast `json:"forecast,omitempty"`
	Drift               *drift.Result      `json:"drift,omitempty"`
	HTF                 *htf.Result        `json:"htf,omitempty"`
	Regime              regime.Label       `json:"regime,omitempty"`
	NewsBlock           *news.BlockState   `json:"news_block,omitempty"`
	ConfidenceThreshold float64            `json:"confidence_threshold"`
}

// Admitted reports whether the verdict allows a trade.
func (v Verdict) Admitted() bool {
	return v.Decision == Trade
}
