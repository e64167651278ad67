// Package stats wraps the external statistics collector. Hit recording is
// fire-and-forget; count queries degrade to zero when the collector is
// unreachable so listing reads stay available.
package stats

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/d-karpukhin/event-board/internal/model"
	"github.com/d-karpukhin/event-board/internal/monitoring"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// endpointHit is the collector's record payload.
type endpointHit struct {
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

// ViewStats is one aggregated row from the collector.
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

// Client speaks the collector's HTTP contract: POST /hit and GET /stats.
type Client struct {
	baseURL string
	app     string
	http    *http.Client
}

// NewClient constructs a Client with a bounded per-call timeout.
func NewClient(baseURL, app string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		app:     app,
		http:    &http.Client{Timeout: timeout},
	}
}

// RecordHit posts one access record. Failures are logged and counted,
// never propagated: a degraded collector must not fail the read path.
func (c *Client) RecordHit(ctx context.Context, uri, ip string) {
	hit := endpointHit{
		App:       c.app,
		URI:       uri,
		IP:        ip,
		Timestamp: model.NewDateTime(time.Now()).String(),
	}

	body, err := json.Marshal(hit)
	if err != nil {
		monitoring.TrackStatsFailure("hit")
		log.Printf("stats: encode hit: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
	if err != nil {
		monitoring.TrackStatsFailure("hit")
		log.Printf("stats: build hit request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		monitoring.TrackStatsFailure("hit")
		log.Printf("stats: record hit: %v", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		monitoring.TrackStatsFailure("hit")
		log.Printf("stats: record hit: unexpected status %d", resp.StatusCode)
	}
}

// Counts returns hit counts per URI for the given window. An error here is
// a soft failure: callers default the counts to zero.
func (c *Client) Counts(ctx context.Context, start, end time.Time, uris []string, unique bool) (map[string]int64, error) {
	params := url.Values{}
	params.Set("start", model.NewDateTime(start).String())
	params.Set("end", model.NewDateTime(end).String())
	for _, u := range uris {
		params.Add("uris", u)
	}
	if unique {
		params.Set("unique", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+params.Encode(), nil)
	if err != nil {
		monitoring.TrackStatsFailure("stats")
		return nil, fmt.Errorf("build stats request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		monitoring.TrackStatsFailure("stats")
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		monitoring.TrackStatsFailure("stats")
		return nil, fmt.Errorf("query stats: unexpected status %d", resp.StatusCode)
	}

	var rows []ViewStats
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		monitoring.TrackStatsFailure("stats")
		return nil, fmt.Errorf("decode stats response: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.URI] = row.Hits
	}
	return counts, nil
}
