package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridguard/leop-server/internal/pipeline"
)

type fakePool struct{}

func (fakePool) TotalConnections() int { return 3 }
func (fakePool) WorkerLoads() []int    { return []int{2, 1} }

type fakePipe struct{}

func (fakePipe) Stats() pipeline.QueueStats {
	return pipeline.QueueStats{IngressDepth: 4, FetchedDepth: 1, ParsedDepth: 0}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := New("127.0.0.1:0", fakePool{}, fakePipe{})
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got statusPayload
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 3, got.Connections)
	assert.Equal(t, []int{2, 1}, got.WorkerLoads)
	assert.Equal(t, 4, got.Queues.IngressDepth)
	assert.False(t, got.Timestamp.IsZero())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestWebsocketStatusStream(t *testing.T) {
	ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer res.Body.Close()
	defer conn.Close()

	var got statusPayload
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 3, got.Connections)
}
