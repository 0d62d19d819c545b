package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunTakesWorstStatus(t *testing.T) {
	tests := []struct {
		name     string
		redis    error
		postgres error
		want     Status
	}{
		{"all up", nil, nil, StatusUp},
		{"optional down", errors.New("refused"), nil, StatusDegraded},
		{"required down", nil, errors.New("refused"), StatusDown},
		{"both down", errors.New("refused"), errors.New("refused"), StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			c.RegisterPing("redis", true, func(context.Context) error { return tt.redis })
			c.RegisterPing("postgres", false, func(context.Context) error { return tt.postgres })
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != 2 {
				t.Errorf("components = %v", report.Components)
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("corpus", func(context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusUp, Message: "12 sentences"}
	})
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Components["corpus"].Message != "12 sentences" {
		t.Errorf("report = %+v", report)
	}

	c.RegisterPing("postgres", false, func(context.Context) error { return errors.New("refused") })
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
