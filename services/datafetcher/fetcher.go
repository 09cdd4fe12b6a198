// Package datafetcher holds the HTTP clients that implement the pipeline's
// RawBarSource collaborator, one per supported provider endpoint.
package datafetcher

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"marketetl/config"
	"marketetl/services/etl"
)

// BarClient fetches daily OHLCV bars from a provider's history endpoint.
type BarClient struct {
	source     etl.Source
	baseURL    string
	httpClient *http.Client
}

func NewBarClient(source etl.Source, baseURL string) *BarClient {
	return &BarClient{
		source:  source,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// barResponse is the common daily-bar envelope the provider endpoints share.
type barResponse struct {
	Data []json.RawMessage `json:"data"`
}

// barDTO is one daily bar. Prices are pointers so missing fields stay null
// instead of collapsing to zero.
type barDTO struct {
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume int64    `json:"volume"`
}

// FetchDailyBars implements etl.RawBarSource.
func (c *BarClient) FetchDailyBars(symbol string, from, to time.Time) ([]etl.RawBar, error) {
	reqURL := fmt.Sprintf("%s?symbol=%s&from=%s&to=%s",
		c.baseURL,
		url.QueryEscape(symbol),
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
	)

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s API error (status %d): %s", c.source, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var envelope barResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	bars := make([]etl.RawBar, 0, len(envelope.Data))
	for _, raw := range envelope.Data {
		var dto barDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			return nil, fmt.Errorf("failed to parse bar: %w", err)
		}
		date, err := time.Parse("2006-01-02", dto.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid bar date %q: %w", dto.Date, err)
		}
		bars = append(bars, etl.RawBar{
			Source:     string(c.source),
			Symbol:     symbol,
			Date:       date,
			Open:       dto.Open,
			High:       dto.High,
			Low:        dto.Low,
			Close:      dto.Close,
			Volume:     dto.Volume,
			RawPayload: raw,
		})
	}
	return bars, nil
}

// NewRegistry wires one client per supported source from config.
func NewRegistry(cfg *config.Config) map[etl.Source]etl.RawBarSource {
	return map[etl.Source]etl.RawBarSource{
		etl.SourceVNDirect: NewBarClient(etl.SourceVNDirect, cfg.VNDirectBaseURL),
		etl.SourceTCBS:     NewBarClient(etl.SourceTCBS, cfg.TCBSBaseURL),
		etl.SourceSSI:      NewBarClient(etl.SourceSSI, cfg.SSIBaseURL),
	}
}
