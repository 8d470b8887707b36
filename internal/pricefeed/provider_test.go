package pricefeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func chartJSON(symbol string, timestamps []int64, closes []string) string {
	ts := make([]string, len(timestamps))
	for i, t := range timestamps {
		ts[i] = fmt.Sprintf("%d", t)
	}
	return fmt.Sprintf(`{
		"chart": {
			"result": [{
				"meta": {"symbol": %q, "currency": "CNY"},
				"timestamp": [%s],
				"indicators": {"quote": [{"close": [%s]}]}
			}],
			"error": null
		}
	}`, symbol, strings.Join(ts, ","), strings.Join(closes, ","))
}

func TestClient_RecentQuotes(t *testing.T) {
	t.Run("parses daily closes", func(t *testing.T) {
		day1 := time.Date(2024, 3, 1, 1, 30, 0, 0, time.UTC).Unix()
		day2 := time.Date(2024, 3, 4, 1, 30, 0, 0, time.UTC).Unix()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/005827") {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("range") != "5d" {
				t.Errorf("Expected range=5d, got %s", r.URL.Query().Get("range"))
			}
			fmt.Fprint(w, chartJSON("005827", []int64{day1, day2}, []string{"1.234", "1.25"}))
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL)
		quotes, err := client.RecentQuotes(context.Background(), "005827")
		if err != nil {
			t.Fatalf("Failed to fetch quotes: %v", err)
		}

		if len(quotes) != 2 {
			t.Fatalf("Expected 2 quotes, got %d", len(quotes))
		}
		if quotes[0].Close.String() != "1.234" {
			t.Errorf("Expected close 1.234, got %s", quotes[0].Close)
		}
		if !quotes[1].Date.Equal(time.Unix(day2, 0).UTC()) {
			t.Errorf("Unexpected quote date %v", quotes[1].Date)
		}
	})

	t.Run("null closes are dropped", func(t *testing.T) {
		day1 := time.Date(2024, 3, 1, 1, 30, 0, 0, time.UTC).Unix()
		day2 := time.Date(2024, 3, 2, 1, 30, 0, 0, time.UTC).Unix()
		day3 := time.Date(2024, 3, 4, 1, 30, 0, 0, time.UTC).Unix()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Market holidays report a timestamp with a null close.
			fmt.Fprint(w, chartJSON("005827", []int64{day1, day2, day3}, []string{"1.2", "null", "1.3"}))
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL)
		quotes, err := client.RecentQuotes(context.Background(), "005827")
		if err != nil {
			t.Fatalf("Failed to fetch quotes: %v", err)
		}

		if len(quotes) != 2 {
			t.Fatalf("Expected 2 quotes after dropping the null, got %d", len(quotes))
		}
		if quotes[1].Close.String() != "1.3" {
			t.Errorf("Expected close 1.3, got %s", quotes[1].Close)
		}
	})

	t.Run("provider error is surfaced", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"chart": {"result": [], "error": "Not Found"}}`)
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL)
		if _, err := client.RecentQuotes(context.Background(), "bogus"); err == nil {
			t.Error("Expected an error from the provider payload")
		}
	})

	t.Run("empty result is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"chart": {"result": [], "error": null}}`)
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL)
		if _, err := client.RecentQuotes(context.Background(), "005827"); err == nil {
			t.Error("Expected an error for an empty result")
		}
	})

	t.Run("mismatched close and timestamp lengths are rejected", func(t *testing.T) {
		day1 := time.Date(2024, 3, 1, 1, 30, 0, 0, time.UTC).Unix()
		day2 := time.Date(2024, 3, 4, 1, 30, 0, 0, time.UTC).Unix()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chartJSON("005827", []int64{day1, day2}, []string{"1.2"}))
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL)
		if _, err := client.RecentQuotes(context.Background(), "005827"); err == nil {
			t.Error("Expected an error for mismatched data lengths")
		}
	})
}

func TestClient_QuotesByDateRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("period1") != fmt.Sprintf("%d", start.Unix()) {
			t.Errorf("Unexpected period1 %s", r.URL.Query().Get("period1"))
		}
		if r.URL.Query().Get("period2") != fmt.Sprintf("%d", end.Unix()) {
			t.Errorf("Unexpected period2 %s", r.URL.Query().Get("period2"))
		}
		fmt.Fprint(w, chartJSON("005827", []int64{start.Unix()}, []string{"1.1"}))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	quotes, err := client.QuotesByDateRange(context.Background(), "005827", start, end)
	if err != nil {
		t.Fatalf("Failed to fetch quotes: %v", err)
	}
	if len(quotes) != 1 {
		t.Errorf("Expected 1 quote, got %d", len(quotes))
	}
}
