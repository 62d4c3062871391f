package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridguard/leop-server/internal/domain"
	"github.com/gridguard/leop-server/internal/planner"
)

const (
	testWeatherBody = `{
		"hourly": {
			"time": ["2024-01-15T10:00", "2024-01-15T11:00"],
			"temperature_2m": [2.5, 3.0],
			"relative_humidity_2m": [80, 78],
			"cloud_cover": [40, 35],
			"wind_speed_10m": [3.2, 4.1],
			"shortwave_radiation": [120.0, 180.0]
		}
	}`
	testPriceBody = `[
		{"SEK_per_kWh": 0.45, "EUR_per_kWh": 0.040, "EXR": 11.3,
		 "time_start": "2024-01-15T10:00:00+01:00", "time_end": "2024-01-15T11:00:00+01:00"},
		{"SEK_per_kWh": 1.55, "EUR_per_kWh": 0.137, "EXR": 11.3,
		 "time_start": "2024-01-15T11:00:00+01:00", "time_end": "2024-01-15T12:00:00+01:00"}
	]`
)

// stubFetcher routes URLs by host substring and counts calls.
type stubFetcher struct {
	mu          sync.Mutex
	calls       int
	weatherErr  bool
	priceErr    bool
	weatherBody string
	priceBody   string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (domain.FetchResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	switch {
	case strings.Contains(url, "open-meteo"):
		if f.weatherErr {
			return domain.FetchResult{}, fmt.Errorf("op=fetcher.Fetch url=%s: %w", url, domain.ErrUpstreamStatus)
		}
		return domain.FetchResult{Status: 200, Body: []byte(f.weatherBody)}, nil
	case strings.Contains(url, "elprisetjustnu"):
		if f.priceErr {
			return domain.FetchResult{}, fmt.Errorf("op=fetcher.Fetch url=%s: %w", url, domain.ErrUpstreamStatus)
		}
		return domain.FetchResult{Status: 200, Body: []byte(f.priceBody)}, nil
	}
	return domain.FetchResult{}, fmt.Errorf("op=fetcher.Fetch url=%s: %w", url, domain.ErrUpstreamStatus)
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeConn records everything written and signals Release.
type fakeConn struct {
	mu       sync.Mutex
	buf      strings.Builder
	released chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{released: make(chan struct{})}
}

func (c *fakeConn) WriteString(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.WriteString(s)
	return nil
}

func (c *fakeConn) Release() { close(c.released) }

func (c *fakeConn) output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *fakeConn) awaitRelease(t *testing.T) {
	t.Helper()
	select {
	case <-c.released:
	case <-time.After(5 * time.Second):
		t.Fatal("connection never released")
	}
}

// memCache is an in-memory BodyCache for wiring tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok
}

func (m *memCache) Set(_ context.Context, key string, body []byte, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = body
}

func testEngine() *planner.Engine {
	return planner.New(
		domain.SolarConfig{PanelEfficiency: 0.18, PanelAreaM2: 20, PeakPowerKW: 3.6},
		domain.BatteryConfig{
			CapacityKWh: 10, MaxChargeKW: 5, MaxDischargeKW: 5,
			MinSoCPct: 20, MaxSoCPct: 95, CurrentSoCPct: 50, RoundtripEfficiency: 0.9,
		},
		domain.ConsumptionProfile{BaseLoadKW: 0.5, PeakLoadKW: 3.0, AvgDailyKWh: 15},
		1.0,
	)
}

func startTestPipeline(t *testing.T, f domain.Fetcher, cache domain.BodyCache) *Pipeline {
	t.Helper()
	p := New(f, cache, testEngine(), Options{
		QueueCapacity:  8,
		FetchWorkers:   1,
		ParseWorkers:   1,
		ComputeWorkers: 1,
	})
	p.Start(context.Background())
	t.Cleanup(p.Shutdown)
	return p
}

func TestPipeline_EndToEnd(t *testing.T) {
	f := &stubFetcher{weatherBody: testWeatherBody, priceBody: testPriceBody}
	p := startTestPipeline(t, f, nil)

	conn := newFakeConn()
	req := domain.PlanRequest{ID: "req-1", Location: "stockholm", Region: "SE3", Conn: conn}
	require.NoError(t, p.Submit(req))

	conn.awaitRelease(t)
	out := conn.output()
	assert.Contains(t, out, "=== Energy Plan for stockholm/SE3 ===")
	assert.Contains(t, out, "Entries: 2")
	assert.Contains(t, out, "First 10 hours:")
	assert.Equal(t, 2, f.callCount())
}

func TestPipeline_PartialFetchFailureYieldsEmptyPlan(t *testing.T) {
	f := &stubFetcher{weatherBody: testWeatherBody, priceErr: true}
	p := startTestPipeline(t, f, nil)

	conn := newFakeConn()
	require.NoError(t, p.Submit(domain.PlanRequest{ID: "req-2", Location: "malmo", Region: "SE4", Conn: conn}))

	conn.awaitRelease(t)
	out := conn.output()
	assert.Contains(t, out, "=== Energy Plan for malmo/SE4 ===")
	assert.Contains(t, out, "Entries: 0")
	assert.Contains(t, out, "Total Cost: 0.00 SEK")
}

func TestPipeline_TotalFetchFailureWritesNotice(t *testing.T) {
	f := &stubFetcher{weatherErr: true, priceErr: true}
	p := startTestPipeline(t, f, nil)

	conn := newFakeConn()
	require.NoError(t, p.Submit(domain.PlanRequest{ID: "req-3", Location: "umea", Region: "SE1", Conn: conn}))

	conn.awaitRelease(t)
	assert.Contains(t, conn.output(), "ERROR: Failed to fetch forecast data")
	assert.NotContains(t, conn.output(), "=== Energy Plan")
}

func TestPipeline_UnknownRegionSkipsPriceFetch(t *testing.T) {
	f := &stubFetcher{weatherBody: testWeatherBody, priceBody: testPriceBody}
	p := startTestPipeline(t, f, nil)

	conn := newFakeConn()
	require.NoError(t, p.Submit(domain.PlanRequest{ID: "req-4", Location: "stockholm", Region: "XX9", Conn: conn}))

	conn.awaitRelease(t)
	// only the weather fetch happened; no prices means an empty plan
	assert.Equal(t, 1, f.callCount())
	assert.Contains(t, conn.output(), "Entries: 0")
}

func TestPipeline_SubmitFullQueue(t *testing.T) {
	f := &stubFetcher{weatherBody: testWeatherBody, priceBody: testPriceBody}
	// never started: ingress fills up
	p := New(f, nil, testEngine(), Options{QueueCapacity: 1})

	conn := newFakeConn()
	require.NoError(t, p.Submit(domain.PlanRequest{ID: "a", Location: "stockholm", Region: "SE3", Conn: conn}))
	err := p.Submit(domain.PlanRequest{ID: "b", Location: "stockholm", Region: "SE3", Conn: conn})
	assert.ErrorIs(t, err, domain.ErrQueueFull)
}

func TestPipeline_SubmitAfterShutdown(t *testing.T) {
	f := &stubFetcher{weatherBody: testWeatherBody, priceBody: testPriceBody}
	p := New(f, nil, testEngine(), Options{})
	p.Start(context.Background())
	p.Shutdown()

	err := p.Submit(domain.PlanRequest{ID: "late", Location: "stockholm", Region: "SE3", Conn: newFakeConn()})
	assert.ErrorIs(t, err, domain.ErrQueueClosed)
}

func TestPipeline_ShutdownDrainsInFlight(t *testing.T) {
	f := &stubFetcher{weatherBody: testWeatherBody, priceBody: testPriceBody}
	p := New(f, nil, testEngine(), Options{QueueCapacity: 8})
	p.Start(context.Background())

	conns := make([]*fakeConn, 5)
	for i := range conns {
		conns[i] = newFakeConn()
		require.NoError(t, p.Submit(domain.PlanRequest{
			ID: fmt.Sprintf("req-%d", i), Location: "stockholm", Region: "SE3", Conn: conns[i],
		}))
	}
	p.Shutdown()

	for _, c := range conns {
		c.awaitRelease(t)
		assert.Contains(t, c.output(), "=== Energy Plan for stockholm/SE3 ===")
	}
}

func TestPipeline_CacheAvoidsSecondFetch(t *testing.T) {
	f := &stubFetcher{weatherBody: testWeatherBody, priceBody: testPriceBody}
	p := startTestPipeline(t, f, newMemCache())

	first := newFakeConn()
	require.NoError(t, p.Submit(domain.PlanRequest{ID: "c-1", Location: "stockholm", Region: "SE3", Conn: first}))
	first.awaitRelease(t)
	require.Equal(t, 2, f.callCount())

	second := newFakeConn()
	require.NoError(t, p.Submit(domain.PlanRequest{ID: "c-2", Location: "stockholm", Region: "SE3", Conn: second}))
	second.awaitRelease(t)
	assert.Equal(t, 2, f.callCount(), "second request should be served from cache")
	assert.Contains(t, second.output(), "Entries: 2")
}

func TestPipeline_Stats(t *testing.T) {
	f := &stubFetcher{weatherBody: testWeatherBody, priceBody: testPriceBody}
	p := New(f, nil, testEngine(), Options{QueueCapacity: 4})

	require.NoError(t, p.Submit(domain.PlanRequest{ID: "s-1", Location: "stockholm", Region: "SE3", Conn: newFakeConn()}))
	st := p.Stats()
	assert.Equal(t, 1, st.IngressDepth)
	assert.Equal(t, 0, st.FetchedDepth)
	assert.Equal(t, 0, st.ParsedDepth)
}
