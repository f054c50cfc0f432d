package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trade-decision-engine/internal/regime"
	"trade-decision-engine/internal/timeframe"
)

// Client fetches forecasts, regimes, and market snapshots from the
// model-serving endpoint. It implements all three provider interfaces.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a provider client against the model server.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetForecast fetches the directional prediction for a timeframe.
func (c *Client) GetForecast(ctx context.Context, tf timeframe.Timeframe, cycleID string) (Forecast, error) {
	var fc Forecast
	if err := c.get(ctx, fmt.Sprintf("/forecast/%s", tf), cycleID, &fc); err != nil {
		return Forecast{}, err
	}
	if fc.Direction != DirectionUp && fc.Direction != DirectionDown {
		return Forecast{}, fmt.Errorf("forecast %s: bad direction %q", tf, fc.Direction)
	}
	return fc, nil
}

// GetRegime fetches the market regime label for a timeframe.
func (c *Client) GetRegime(ctx context.Context, tf timeframe.Timeframe, cycleID string) (regime.Label, error) {
	var body struct {
		Regime regime.Label `json:"regime"`
	}
	if err := c.get(ctx, fmt.Sprintf("/regime/%s", tf), cycleID, &body); err != nil {
		return regime.Unknown, err
	}
	if !body.Regime.Known() {
		return regime.Unknown, fmt.Errorf("regime %s: bad label %q", tf, body.Regime)
	}
	return body.Regime, nil
}

// GetSnapshot fetches the price geometry for a timeframe.
func (c *Client) GetSnapshot(ctx context.Context, tf timeframe.Timeframe, cycleID string) (MarketSnapshot, error) {
	var snap MarketSnapshot
	if err := c.get(ctx, fmt.Sprintf("/snapshot/%s", tf), cycleID, &snap); err != nil {
		return MarketSnapshot{}, err
	}
	return snap, nil
}

func (c *Client) get(ctx context.Context, path, cycleID string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("X-Cycle-ID", cycleID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
