package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"trade-decision-engine/internal/decision"
)

// Recorder persists one verdict to an audit sink. Every evaluation is
// recorded, rejections included.
type Recorder interface {
	Record(ctx context.Context, v decision.Verdict) error
}

// JSONLRecorder appends verdicts to a local file, one JSON object per
// line. It is the always-available sink; database recording is layered
// on top of it.
type JSONLRecorder struct {
	mu     sync.Mutex
	file   *os.File
	logger zerolog.Logger
}

// NewJSONLRecorder opens (or creates) the audit file for appending.
func NewJSONLRecorder(path string, logger zerolog.Logger) (*JSONLRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	return &JSONLRecorder{
		file:   f,
		logger: logger.With().Str("component", "audit").Logger(),
	}, nil
}

// Record appends one verdict line.
func (r *JSONLRecorder) Record(_ context.Context, v decision.Verdict) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append verdict: %w", err)
	}
	return nil
}

// Close flushes and closes the audit file.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

// MultiRecorder fans a verdict out to several sinks. A failing sink is
// logged and skipped so one slow store never loses the local trail.
type MultiRecorder struct {
	sinks  []Recorder
	logger zerolog.Logger
}

// NewMultiRecorder combines recorders.
func NewMultiRecorder(logger zerolog.Logger, sinks ...Recorder) *MultiRecorder {
	return &MultiRecorder{
		sinks:  sinks,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Record writes to every sink.
func (m *MultiRecorder) Record(ctx context.Context, v decision.Verdict) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Record(ctx, v); err != nil {
			m.logger.Error().Err(err).
				Str("cycle_id", v.CycleID).
				Str("timeframe", string(v.Timeframe)).
				Msg("audit sink failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
