package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"price-peak-monitor/internal/core/domain/snapshot"
	"price-peak-monitor/internal/metrics"
	"price-peak-monitor/internal/monitor"
	"price-peak-monitor/internal/notifier"
)

type staticStatus monitor.Status

func (s staticStatus) Status() monitor.Status { return monitor.Status(s) }

type fixedCounter struct {
	n   int64
	err error
}

func (c fixedCounter) Count(context.Context) (int64, error) { return c.n, c.err }

func TestHealthz(t *testing.T) {
	srv := NewServer(0, staticStatus{}, nil, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	status := staticStatus{
		RunID:       "run-1",
		State:       monitor.StateSleeping,
		Cycles:      3,
		LastOutcome: monitor.OutcomeNewMaximum,
		Maximum:     &snapshot.RunningMaximum{MaxPrice: 829900, MaxPriceAt: at},
	}

	tests := []struct {
		name    string
		counter fixedCounter
		key     string
	}{
		{name: "with count", counter: fixedCounter{n: 3}, key: "snapshots"},
		{name: "count failure", counter: fixedCounter{err: errors.New("db down")}, key: "snapshots_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(0, status, tt.counter, nil)

			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("unexpected status %d", rec.Code)
			}

			var body struct {
				Monitor monitor.Status `json:"monitor"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Monitor.RunID != "run-1" || body.Monitor.Maximum == nil || body.Monitor.Maximum.MaxPrice != 829900 {
				t.Fatalf("unexpected monitor status %+v", body.Monitor)
			}
			if !strings.Contains(rec.Body.String(), `"`+tt.key+`"`) {
				t.Fatalf("expected key %q in %s", tt.key, rec.Body.String())
			}
		})
	}
}

type flakyChannel struct{ fail bool }

func (c *flakyChannel) Name() string { return "flaky" }

func (c *flakyChannel) Notify(context.Context, string) error {
	if c.fail {
		return errors.New("unreachable")
	}
	return nil
}

func TestStatusIncludesNotificationStats(t *testing.T) {
	channel := &flakyChannel{}
	alerts := notifier.NewCompositeNotificationService(channel)
	_ = alerts.Notify(context.Background(), "first")
	channel.fail = true
	_ = alerts.Notify(context.Background(), "second")

	srv := NewServer(0, staticStatus{RunID: "run-1"}, fixedCounter{n: 2}, nil).WithNotificationStats(alerts)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var body struct {
		Notifications notifier.NotificationStats `json:"notifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Notifications.TotalSent != 2 || body.Notifications.Successful != 1 || body.Notifications.Failed != 1 {
		t.Fatalf("unexpected notification stats %+v", body.Notifications)
	}
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	m.ObserveCycle("standing", time.Millisecond)
	srv := NewServer(0, staticStatus{}, nil, m.Handler())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "pricepeak_cycles_total") {
		t.Fatalf("unexpected metrics response %d", rec.Code)
	}
}
