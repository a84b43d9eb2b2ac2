//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "github.com/pulsegrid-lab/pulsegrid/internal/api/v1"
	"github.com/pulsegrid-lab/pulsegrid/internal/core/series"
	"github.com/pulsegrid-lab/pulsegrid/internal/core/storage"
	"github.com/pulsegrid-lab/pulsegrid/internal/ingestion"
	"github.com/pulsegrid-lab/pulsegrid/internal/pipeline"
	"github.com/pulsegrid-lab/pulsegrid/internal/query"
	"github.com/pulsegrid-lab/pulsegrid/internal/server"
)

// manualClock lets tests move resampling time forward explicitly while
// the scheduler ticks on real time.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type integrationHarness struct {
	baseURL       string
	client        *http.Client
	clock         *manualClock
	store         *storage.MemoryStore
	base          time.Time
	cancel        context.CancelFunc
	serverDone    chan error
	schedulerDone chan error
}

func (h *integrationHarness) close(t *testing.T) {
	t.Helper()

	h.cancel()
	select {
	case <-h.serverDone:
	case <-time.After(5 * time.Second):
		t.Log("server shutdown timed out")
	}
	select {
	case <-h.schedulerDone:
	case <-time.After(5 * time.Second):
		t.Log("scheduler shutdown timed out")
	}
}

func startHarness(t *testing.T) *integrationHarness {
	t.Helper()

	seriesDir := t.TempDir()
	writeSeriesFiles(t, seriesDir)

	repo, err := series.NewFileSystemRepository(seriesDir)
	require.NoError(t, err)
	defs := repo.List()
	require.Len(t, defs, 2)

	base := time.Now().UTC().Truncate(time.Minute)
	clock := &manualClock{now: base}
	store := storage.NewMemoryStore()

	engine, err := pipeline.NewEngine(defs, store, clock)
	require.NoError(t, err)
	scheduler := pipeline.NewScheduler(50*time.Millisecond, engine)

	ingestionSvc := ingestion.NewService(engine, 1)
	querySvc := query.NewService(store, defs)

	port := freePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpServer := server.New(addr, nil, "release")
	ingestionSvc.RegisterRoutes(httpServer.Engine)
	querySvc.RegisterRoutes(httpServer.Engine)

	ctx, cancel := context.WithCancel(context.Background())
	serverDone := make(chan error, 1)
	schedulerDone := make(chan error, 1)
	go func() { serverDone <- httpServer.Run(ctx) }()
	go func() { schedulerDone <- scheduler.Start(ctx) }()

	baseURL := "http://" + addr
	waitForHealthy(t, baseURL)

	return &integrationHarness{
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 5 * time.Second},
		clock:         clock,
		store:         store,
		base:          base,
		cancel:        cancel,
		serverDone:    serverDone,
		schedulerDone: schedulerDone,
	}
}

func writeSeriesFiles(t *testing.T, dir string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "grid_power.yaml"), []byte(`
name: "grid_power"
interval: "5s"
function: "average"
max_age_intervals: 1
first_timestamp: false
`), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "meter_ticks.yaml"), []byte(`
name: "meter_ticks"
interval: "5s"
function: "count"
max_age_intervals: 1
`), 0o644))
}

func TestResampleAPI_IngestFlushQuery(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	// Ten samples at one-second spacing, values 1..10.
	for i := 0; i < 10; i++ {
		sample := v1.Sample{
			Series:    "grid_power",
			Timestamp: h.base.Add(time.Duration(i) * time.Second),
			Value:     floatPtr(float64(i + 1)),
		}
		status, body := postJSON(t, h.client, h.baseURL+"/v1/samples", sample)
		require.Equal(t, http.StatusAccepted, status, string(body))
	}

	// Two full buckets elapse; the third is still open.
	h.clock.Advance(12 * time.Second)

	payload := waitForPoints(t, h, "grid_power", 2)
	require.Equal(t, "grid_power", payload.Series)
	require.Equal(t, h.base.Add(5*time.Second), payload.Points[0].Timestamp.UTC())
	require.NotNil(t, payload.Points[0].Value)
	require.InDelta(t, 3.0, *payload.Points[0].Value, 1e-9)
	require.Equal(t, h.base.Add(10*time.Second), payload.Points[1].Timestamp.UTC())
	require.NotNil(t, payload.Points[1].Value)
	require.InDelta(t, 8.0, *payload.Points[1].Value, 1e-9)
}

func TestResampleAPI_CountSeriesEmitsZeroForEmptyBuckets(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	sample := v1.Sample{
		Series:    "meter_ticks",
		Timestamp: h.base.Add(time.Second),
		Value:     floatPtr(1),
	}
	status, body := postJSON(t, h.client, h.baseURL+"/v1/samples", sample)
	require.Equal(t, http.StatusAccepted, status, string(body))

	h.clock.Advance(11 * time.Second)

	payload := waitForPoints(t, h, "meter_ticks", 2)
	require.NotNil(t, payload.Points[0].Value)
	require.InDelta(t, 1.0, *payload.Points[0].Value, 1e-9)
	// Empty bucket: a count of zero is still a value.
	require.NotNil(t, payload.Points[1].Value)
	require.InDelta(t, 0.0, *payload.Points[1].Value, 1e-9)
}

func TestResampleAPI_UnknownSeriesRejected(t *testing.T) {
	h := startHarness(t)
	defer h.close(t)

	sample := v1.Sample{
		Series:    "absent",
		Timestamp: h.base,
		Value:     floatPtr(1),
	}
	status, body := postJSON(t, h.client, h.baseURL+"/v1/samples", sample)
	require.Equal(t, http.StatusNotFound, status, string(body))
}

func waitForPoints(t *testing.T, h *integrationHarness, seriesName string, want int) v1.AggregateQueryResponse {
	t.Helper()

	queryURL := fmt.Sprintf(
		"%s/v1/series/%s/aggregates?from=%s&to=%s",
		h.baseURL,
		seriesName,
		h.base.Add(-time.Minute).Format(time.RFC3339),
		h.base.Add(time.Hour).Format(time.RFC3339),
	)

	var payload v1.AggregateQueryResponse
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := h.client.Get(queryURL)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		require.NoError(t, json.Unmarshal(body, &payload))
		if len(payload.Points) >= want {
			return payload
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("series %s did not reach %d aggregated points within 5s (got %d)",
		seriesName, want, len(payload.Points))
	return payload
}

func waitForHealthy(t *testing.T, baseURL string) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server did not become healthy at %s", baseURL)
}

func postJSON(t *testing.T, client *http.Client, endpoint string, payload interface{}) (int, []byte) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func floatPtr(v float64) *float64 { return &v }
