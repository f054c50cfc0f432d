package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trade-decision-engine/internal/decision"
	"trade-decision-engine/internal/news"
)

// VerdictRepository stores evaluation verdicts and news block history.
type VerdictRepository struct {
	db *DB
}

// NewVerdictRepository creates a repository over the shared pool.
func NewVerdictRepository(db *DB) *VerdictRepository {
	return &VerdictRepository{db: db}
}

// Record inserts one verdict row. The full verdict is kept as JSONB in
// the detail column; the hot columns are extracted for queries. This
// satisfies the audit.Recorder interface.
func (r *VerdictRepository) Record(ctx context.Context, v decision.Verdict) error {
	detail, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verdict detail: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO verdicts (
			cycle_id, timeframe, evaluated_at, decision, reason_code,
			risk_multiplier, entry, stop, target, lots, rr_ratio, detail
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12)`,
		v.CycleID, string(v.Timeframe), v.EvaluatedAt, string(v.Decision),
		string(v.ReasonCode), v.RiskMultiplier,
		v.Setup.Entry, v.Setup.Stop, v.Setup.Target, v.Setup.Lots, v.Setup.RRRatio,
		detail,
	)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// LatestByTimeframe returns the most recent verdict per timeframe.
func (r *VerdictRepository) LatestByTimeframe(ctx context.Context) (map[string]decision.Verdict, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT ON (timeframe) detail
		FROM verdicts
		ORDER BY timeframe, evaluated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query latest verdicts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]decision.Verdict)
	for rows.Next() {
		var detail []byte
		if err := rows.Scan(&detail); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		var v decision.Verdict
		if err := json.Unmarshal(detail, &v); err != nil {
			return nil, fmt.Errorf("unmarshal verdict: %w", err)
		}
		out[string(v.Timeframe)] = v
	}
	return out, rows.Err()
}

// History returns verdicts for one timeframe, newest first.
func (r *VerdictRepository) History(ctx context.Context, tf string, limit int) ([]decision.Verdict, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT detail FROM verdicts
		WHERE timeframe = $1
		ORDER BY evaluated_at DESC
		LIMIT $2`, tf, limit)
	if err != nil {
		return nil, fmt.Errorf("query verdict history: %w", err)
	}
	defer rows.Close()

	var out []decision.Verdict
	for rows.Next() {
		var detail []byte
		if err := rows.Scan(&detail); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		var v decision.Verdict
		if err := json.Unmarshal(detail, &v); err != nil {
			return nil, fmt.Errorf("unmarshal verdict: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// LogNewsBlock records a created block for history queries.
func (r *VerdictRepository) LogNewsBlock(ctx context.Context, b news.ActiveBlock) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO news_blocks_log (event_type, headline, source, origin_time, block_until)
		VALUES ($1, $2, $3, $4, $5)`,
		string(b.EventType), b.Headline, b.Source, b.OriginTime, b.BlockUntil,
	)
	if err != nil {
		return fmt.Errorf("insert news block: %w", err)
	}
	return nil
}

// RecentNewsBlocks returns logged blocks newer than the cutoff.
func (r *VerdictRepository) RecentNewsBlocks(ctx context.Context, since time.Time) ([]news.ActiveBlock, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT event_type, headline, source, origin_time, block_until
		FROM news_blocks_log
		WHERE origin_time >= $1
		ORDER BY origin_time DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("query news blocks: %w", err)
	}
	defer rows.Close()

	var out []news.ActiveBlock
	for rows.Next() {
		var b news.ActiveBlock
		var et string
		if err := rows.Scan(&et, &b.Headline, &b.Source, &b.OriginTime, &b.BlockUntil); err != nil {
			return nil, fmt.Errorf("scan news block: %w", err)
		}
		b.EventType = news.EventType(et)
		out = append(out, b)
	}
	return out, rows.Err()
}
