package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MatchReport is the payload pushed to the external user-stats service
// after a match completes.
type MatchReport struct {
	Player1ID int       `json:"player1_id"`
	Player2ID int       `json:"player2_id"`
	WinnerID  int       `json:"winner_id"`
	Score     string    `json:"score"`
	PlayedAt  time.Time `json:"played_at"`
}

// StatsReporter reports a finished match to the stats collaborator. An empty
// token selects the server-to-server endpoint (used by the live-match
// orchestrator); otherwise the caller's bearer token is forwarded.
type StatsReporter interface {
	ReportMatch(ctx context.Context, report MatchReport, token string) error
}

type httpStatsReporter struct {
	baseURL string
	client  *http.Client
}

func NewHTTPStatsReporter(baseURL string) StatsReporter {
	return &httpStatsReporter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *httpStatsReporter) ReportMatch(ctx context.Context, report MatchReport, token string) error {
	endpoint := r.baseURL + "/matches"
	if token == "" {
		endpoint = r.baseURL + "/matches/server"
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode match report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build stats request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("stats service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("stats service responded with %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
