package main

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/dokzlo13/lumictl/internal/api"
)

func keyOnly(key string, _ map[string]any) string { return key }

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthorized", &api.APIError{Status: 401, Message: "bad token"}, "errors.unauthorized"},
		{"not found", fmt.Errorf("get region: %w", &api.APIError{Status: 404}), "errors.not_found"},
		{"server", &api.APIError{Status: 500, Message: "boom"}, "errors.server"},
		{"network", &net.OpError{Op: "dial", Err: errors.New("refused")}, "errors.network"},
		{"other", errors.New("strange"), "errors.unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage(keyOnly, tt.err); got != tt.want {
				t.Errorf("errorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTimeRange(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	r, err := timeRange(24*time.Hour, "", "", now)
	if err != nil {
		t.Fatalf("timeRange() error = %v", err)
	}
	if !r.Start.Equal(now.Add(-24*time.Hour)) || !r.End.IsZero() {
		t.Errorf("timeRange(since) = %+v", r)
	}

	r, err = timeRange(0, "2024-05-01T00:00:00Z", "2024-05-01T06:00:00Z", now)
	if err != nil {
		t.Fatalf("timeRange() error = %v", err)
	}
	if r.End.Sub(r.Start) != 6*time.Hour {
		t.Errorf("timeRange(start, end) = %+v", r)
	}

	if _, err := timeRange(0, "2024-05-01T06:00:00Z", "2024-05-01T00:00:00Z", now); err == nil {
		t.Error("expected error for end before start")
	}
	if _, err := timeRange(0, "yesterday", "", now); err == nil {
		t.Error("expected error for invalid start")
	}
}

func TestCheckState(t *testing.T) {
	for _, v := range []float64{-1, -0.5, 0, 0.25, 1} {
		if err := checkState(v); err != nil {
			t.Errorf("checkState(%v) error = %v", v, err)
		}
	}
	for _, v := range []float64{-1.01, 1.5} {
		if err := checkState(v); err == nil {
			t.Errorf("checkState(%v) expected error", v)
		}
	}
}
