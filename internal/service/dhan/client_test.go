package dhan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
)

var testInstrument = models.Instrument{
	ID:              7,
	Symbol:          "RELIANCE",
	SecurityID:      "2885",
	ExchangeSegment: "NSE_EQ",
	InstrumentType:  "EQUITY",
	Active:          true,
}

func TestFetchParsesParallelArrays(t *testing.T) {
	var gotReq intradayRequest
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("access-token")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(intradayResponse{
			Open:      []float64{100, 101},
			High:      []float64{102, 103},
			Low:       []float64{99, 100},
			Close:     []float64{101, 102},
			Volume:    []float64{1000, 1100},
			Timestamp: []int64{1700000000, 1700000300},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "cid", WithMaxRPS(1000))
	from := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	candles, err := c.Fetch(context.Background(), testInstrument, domainrepo.TF5, from, to)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotToken != "tok" {
		t.Errorf("access-token = %s", gotToken)
	}
	if gotReq.SecurityID != "2885" || gotReq.ExchangeSegment != "NSE_EQ" || gotReq.Interval != 5 {
		t.Errorf("request = %+v", gotReq)
	}
	if len(candles) != 2 {
		t.Fatalf("candles = %d", len(candles))
	}
	if candles[0].InstrumentID != 7 || candles[0].Timeframe != "5" {
		t.Errorf("candle key = %+v", candles[0])
	}
	if candles[1].Close != 102 || candles[1].Timestamp != 1700000300 {
		t.Errorf("candle values = %+v", candles[1])
	}
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessage":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad", "cid", WithMaxRPS(1000))
	_, err := c.Fetch(context.Background(), testInstrument, domainrepo.TF5, time.Now().Add(-time.Hour), time.Now())
	var pe *models.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("want ProviderError, got %v", err)
	}
}

func TestFetchMalformedPayload(t *testing.T) {
	cases := map[string]intradayResponse{
		"missing close": {
			Open:      []float64{100},
			High:      []float64{102},
			Low:       []float64{99},
			Volume:    []float64{1000},
			Timestamp: []int64{1700000000},
		},
		"length mismatch": {
			Open:      []float64{100, 101},
			High:      []float64{102},
			Low:       []float64{99},
			Close:     []float64{101},
			Volume:    []float64{1000},
			Timestamp: []int64{1700000000},
		},
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(resp)
			}))
			defer srv.Close()

			c := New(srv.URL, "tok", "cid", WithMaxRPS(1000))
			_, err := c.Fetch(context.Background(), testInstrument, domainrepo.TF5, time.Now().Add(-time.Hour), time.Now())
			var pe *models.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("want ProviderError, got %v", err)
			}
		})
	}
}

func TestFetchEmptySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(intradayResponse{
			Open:      []float64{},
			High:      []float64{},
			Low:       []float64{},
			Close:     []float64{},
			Volume:    []float64{},
			Timestamp: []int64{},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "cid", WithMaxRPS(1000))
	candles, err := c.Fetch(context.Background(), testInstrument, domainrepo.TF15, time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(candles) != 0 {
		t.Errorf("candles = %d, want 0", len(candles))
	}
}
