package http_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/webitel/push-bridge-service/internal/adapter/sdk"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
	httphandler "github.com/webitel/push-bridge-service/internal/handler/http"
	"github.com/webitel/push-bridge-service/internal/handler/ws"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStats struct{ st model.BridgeStats }

func (f fakeStats) Stats() model.BridgeStats { return f.st }

type fakeSessions int

func (f fakeSessions) Sessions() int { return int(f) }

type mockDisplayer struct{ mock.Mock }

func (m *mockDisplayer) Display(id string) bool        { return m.Called(id).Bool(0) }
func (m *mockDisplayer) PreventDefault(id string) bool { return m.Called(id).Bool(0) }

type fixture struct {
	server    *httptest.Server
	loopback  *sdk.Loopback
	displayer *mockDisplayer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	f := &fixture{
		loopback:  sdk.NewLoopback(newTestLogger()),
		displayer: new(mockDisplayer),
	}
	h := httphandler.NewHandler(newTestLogger(),
		fakeStats{st: model.BridgeStats{Attached: true, Policy: "sync"}},
		fakeSessions(3), f.loopback, f.displayer)
	router := httphandler.NewRouter(h, ws.NewWSHandler(newTestLogger(), nil, f.displayer), reg, httphandler.NewMetrics(reg))

	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRouter_Stats(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st model.BridgeStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.True(t, st.Attached)
	assert.Equal(t, 3, st.Sessions)
}

func TestRouter_InjectNative(t *testing.T) {
	f := newFixture(t)

	got := make(chan any, 4)
	_, err := f.loopback.Subscribe(event.UserStateChanged, func(state any) { got <- state })
	require.NoError(t, err)

	t.Run("Callback reaches observers", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/native/user-state-changed", `{"current":{"onesignalId":"os-1"}}`)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		var out struct {
			Event     string `json:"event"`
			Observers int    `json:"observers"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, 1, out.Observers)
		st, ok := (<-got).(*model.UserChangedState)
		require.True(t, ok)
		assert.Equal(t, "os-1", *st.Current.OnesignalID)
	})

	t.Run("Unknown event", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/native/outcome-sent", `{}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Malformed state", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/native/user-state-changed", `{"current":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Empty body", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/native/user-state-changed", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRouter_DisplayDecisions(t *testing.T) {
	f := newFixture(t)
	f.displayer.On("Display", "n-1").Return(true).Once()
	f.displayer.On("PreventDefault", "n-2").Return(false).Once()

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/notifications/n-1/display", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/notifications/n-2/prevent-default", "").StatusCode)
	f.displayer.AssertExpectations(t)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").StatusCode)

	// The middleware records after the response is flushed, so poll.
	want := `push_bridge_http_requests_total{method="GET",path="/healthz",status="200"} 1`
	require.Eventually(t, func() bool {
		resp, err := http.Get(f.server.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		return err == nil && resp.StatusCode == http.StatusOK && strings.Contains(string(body), want)
	}, 2*time.Second, 20*time.Millisecond)
}
