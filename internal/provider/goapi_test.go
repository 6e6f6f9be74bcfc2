package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicholaslie90/stock-scanner/internal/flow"
)

func flowTestClient(url string) *FlowClient {
	return NewFlowClient("test-key", time.Millisecond, zerolog.Nop(), WithFlowBaseURL(url))
}

func TestFlowSummaryNestedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/idx/BBRI/broker_summary" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("date") != "2024-03-11" {
			t.Errorf("unexpected date: %s", r.URL.Query().Get("date"))
		}
		if r.Header.Get("X-API-KEY") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(`{"status":"success","data":{
			"top_buyers":[{"code":"AK","value":"1200000000","avg_price":"1000"}],
			"top_sellers":[{"code":"YP","value":"900000000","avg_price":"1010"}]
		}}`))
	}))
	defer srv.Close()

	payload, err := flowTestClient(srv.URL).FlowSummary(context.Background(), "BBRI",
		time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Summary == nil {
		t.Fatalf("expected nested shape")
	}
	snap := flow.Normalize(payload)
	if !snap.Valid() {
		t.Fatalf("expected valid snapshot")
	}
	if snap.Inflow[0].Participant != "AK" || snap.Inflow[0].NetValue != 1.2e9 {
		t.Fatalf("unexpected inflow: %+v", snap.Inflow)
	}
	if snap.Outflow[0].NetValue != -9e8 {
		t.Fatalf("unexpected outflow: %+v", snap.Outflow)
	}
}

func TestFlowSummaryFlatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"success","data":[
			{"code":"AK","value":"500000000","avg_price":"100"},
			{"code":"YP","value":"-200000000","avg_price":"101"}
		]}`))
	}))
	defer srv.Close()

	payload, err := flowTestClient(srv.URL).FlowSummary(context.Background(), "BBRI", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Summary != nil || len(payload.Transactions) != 2 {
		t.Fatalf("expected flat shape with 2 records, got %+v", payload)
	}
	if payload.Transactions[1].Value != -2e8 {
		t.Fatalf("signed value must survive decoding: %+v", payload.Transactions[1])
	}
}

func TestFlowSummaryRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := flowTestClient(srv.URL).FlowSummary(context.Background(), "BBRI", time.Now())
	if !flow.IsRateLimited(err) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestFlowSummaryProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"error","message":"no data"}`))
	}))
	defer srv.Close()

	_, err := flowTestClient(srv.URL).FlowSummary(context.Background(), "BBRI", time.Now())
	if err == nil || flow.IsRateLimited(err) {
		t.Fatalf("expected plain error for non-success status, got %v", err)
	}
}

func TestBrokersDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/idx/brokers" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"success","data":[
			{"id":"YP","name":"PT MIRAE ASSET SEKURITAS INDONESIA"},
			{"id":"AK","name":"UBS SEKURITAS INDONESIA"}
		]}`))
	}))
	defer srv.Close()

	names, err := flowTestClient(srv.URL).Brokers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names["YP"] != "PT MIRAE ASSET SEKURITAS INDONESIA" {
		t.Fatalf("unexpected directory: %+v", names)
	}
}
