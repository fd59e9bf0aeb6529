package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.IncCommands("play_part", "ok")
	m.IncCommands("play_part", "ok")
	m.IncCommands("play_group", "rejected")
	m.IncScheduleActivations()
	m.IncRPCRequests("/cuebox.v1.PlayoutService/PlayPart", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("play_part", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("play_group", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scheduleActivations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcRequestsTotal.WithLabelValues("/cuebox.v1.PlayoutService/PlayPart", "ok")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObservePrepare(2 * time.Millisecond)

	called := false
	srv := httptest.NewServer(m.Handler(func() {
		called = true
		m.SetPlayingGroups(3)
		m.SetSubscribers(1)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, called)
	assert.Contains(t, string(body), "cuebox_playing_groups 3")
	assert.Contains(t, string(body), "cuebox_event_subscribers 1")
	assert.Contains(t, string(body), "cuebox_prepare_duration_seconds_count 1")
}
