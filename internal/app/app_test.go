package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dokzlo13/lumictl/internal/api"
	"github.com/dokzlo13/lumictl/internal/config"
	"github.com/dokzlo13/lumictl/internal/eventbus"
	"github.com/dokzlo13/lumictl/internal/store"
)

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	t.Setenv("LUMISYNC_API_URL", apiURL)
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	cfg.Database.Path = filepath.Join(t.TempDir(), "lumictl.sqlite")
	cfg.Stream.MinRetryBackoff = config.Duration(10 * time.Millisecond)
	cfg.Stream.MaxRetryBackoff = config.Duration(10 * time.Millisecond)
	return cfg
}

// backend serves canned JSON per path; a status other than 200 is returned with an error message.
func backend(t *testing.T, routes map[string]any, failing map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, ok := failing[r.URL.Path]; ok {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"message":"broken"}`)
			return
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServices(t *testing.T, srv *httptest.Server) *Services {
	t.Helper()
	s, err := NewServices(testConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}
	t.Cleanup(func() {
		s.Bus.Close(context.Background())
		s.Close()
	})
	return s
}

func TestSync_AllSettled(t *testing.T) {
	srv := backend(t, map[string]any{
		"/regions":  []api.Region{{ID: 1, GroupID: 1, Name: "Living Room", Light: 300, Temperature: 22}},
		"/sensors":  []api.Sensor{{ID: 10, RegionID: 1}},
		"/settings": []api.Setting{},
	}, map[string]int{"/windows": http.StatusInternalServerError})
	s := newTestServices(t, srv)

	err := s.Sync.Sync(context.Background())
	if err == nil || !strings.Contains(err.Error(), "windows") {
		t.Fatalf("Sync() error = %v, want windows failure", err)
	}
	if s.Sync.Ready() {
		t.Error("Ready() = true after a failed load")
	}

	regions := s.Registry.Regions().State()
	if regions.Loading || regions.Err != nil || regions.Len() != 1 {
		t.Errorf("regions state = %+v", regions)
	}
	if _, ok := s.Registry.Sensors().Get(10); !ok {
		t.Error("sensor 10 not loaded")
	}

	windows := s.Registry.Windows().State()
	if windows.Loading || !api.IsStatus(windows.Err, http.StatusInternalServerError) {
		t.Errorf("windows state = loading %v err %v", windows.Loading, windows.Err)
	}
}

func TestSync_Ready(t *testing.T) {
	srv := backend(t, map[string]any{
		"/regions":  []api.Region{},
		"/sensors":  []api.Sensor{},
		"/windows":  []api.Window{},
		"/settings": []api.Setting{},
	}, nil)
	s := newTestServices(t, srv)

	if err := s.Sync.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !s.Sync.Ready() {
		t.Error("Ready() = false after a full sync")
	}
}

func TestEventService_MergesReadings(t *testing.T) {
	srv := backend(t, nil, nil)
	s := newTestServices(t, srv)

	s.Registry.Regions().Dispatch(store.Upsert[api.Region]{Item: api.Region{ID: 1}})
	s.Registry.Sensors().Dispatch(store.Upsert[api.Sensor]{Item: api.Sensor{ID: 10, RegionID: 1}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Events.Start(ctx)

	s.Bus.Publish(eventbus.Event{Type: eventbus.EventTypeSensorData, Payload: eventbus.SensorData{
		SensorID: 10,
		Readings: []api.SensorData{{ID: 1, SensorID: 10, Light: 640, Temperature: 21.5}},
	}})
	s.Bus.Close(context.Background())

	region, _ := s.Registry.Regions().Get(1)
	if region.Light != 640 || region.Temperature != 21.5 {
		t.Errorf("region = %+v", region)
	}
}

func TestHealthService_Endpoints(t *testing.T) {
	srv := backend(t, nil, nil)
	s := newTestServices(t, srv)
	s.Metrics.ObserveDispatch("regions", "upsert", true)

	h := httptest.NewServer(s.Health.Handler())
	defer h.Close()

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/health", http.StatusOK, "healthy"},
		{"/ready", http.StatusServiceUnavailable, "syncing"},
		{"/metrics", http.StatusOK, "lumictl_store_dispatches_total"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := h.Client().Get(h.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if !strings.Contains(string(body), tt.body) {
				t.Errorf("body = %q, want %q", body, tt.body)
			}
		})
	}
}

func TestServices_StartRequiresLogin(t *testing.T) {
	srv := backend(t, nil, nil)
	s := newTestServices(t, srv)

	if err := s.Start(context.Background(), nil, nil); err == nil {
		t.Error("Start() without a token should fail")
	}
}

func TestServices_WatchPipeline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/regions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.Region{{ID: 1, Name: "Living Room"}})
	})
	mux.HandleFunc("/sensors", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.Sensor{{ID: 10, RegionID: 1}})
	})
	mux.HandleFunc("/windows", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "[]") })
	mux.HandleFunc("/settings", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "[]") })
	mux.HandleFunc("/sensors/data/sse/10", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "abc" {
			t.Errorf("stream token = %q", r.URL.Query().Get("token"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [{\"id\":1,\"sensor_id\":10,\"light\":500,\"temperature\":20}]\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newTestServices(t, srv)
	if err := s.Session.SetToken("abc"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx, nil, nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if region, _ := s.Registry.Regions().Get(1); region.Light == 500 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("live reading never reached the region")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	shutdown, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	s.Streams.Wait(shutdown)
}
