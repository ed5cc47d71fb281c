package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatsReporter(t *testing.T) {
	report := MatchReport{
		Player1ID: 1,
		Player2ID: 2,
		WinnerID:  2,
		Score:     "3-5",
		PlayedAt:  time.Now().UTC(),
	}

	t.Run("forwards the caller token to the user endpoint", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotReport MatchReport
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReport))
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		reporter := NewHTTPStatsReporter(server.URL)
		err := reporter.ReportMatch(context.Background(), report, "user-token")
		require.NoError(t, err)

		assert.Equal(t, "/matches", gotPath)
		assert.Equal(t, "Bearer user-token", gotAuth)
		assert.Equal(t, report.Score, gotReport.Score)
	})

	t.Run("empty token selects the server endpoint", func(t *testing.T) {
		var gotPath, gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		reporter := NewHTTPStatsReporter(server.URL)
		err := reporter.ReportMatch(context.Background(), report, "")
		require.NoError(t, err)

		assert.Equal(t, "/matches/server", gotPath)
		assert.Empty(t, gotAuth)
	})

	t.Run("non-2xx response surfaces as an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "stats database unavailable", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		reporter := NewHTTPStatsReporter(server.URL)
		err := reporter.ReportMatch(context.Background(), report, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("unreachable service surfaces as an error", func(t *testing.T) {
		reporter := NewHTTPStatsReporter("http://127.0.0.1:1")
		err := reporter.ReportMatch(context.Background(), report, "")
		assert.Error(t, err)
	})
}
