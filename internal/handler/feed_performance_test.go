package handler_test

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/middleware"
)

func TestFeedWebsocketGreetingP95Under250ms(t *testing.T) {
	if testing.Short() {
		t.Skip("performance check")
	}

	ta := newTestApp(t, appOptions{})
	addr, shutdown := startFiberServer(t, ta.app)
	defer shutdown()

	clients := 200
	durations := make([]time.Duration, 0, clients)
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	for i := 0; i < clients; i++ {
		start := time.Now()
		conn, resp, err := dialer.Dial("ws://"+addr+"/api/feed/ws", http.Header{
			middleware.HeaderCorrelationID: {"perf-" + strconv.Itoa(i)},
		})
		require.NoError(t, err)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		greeting := readFeedEvent(t, conn)
		require.Equal(t, dto.FeedEventStats, greeting.Type)
		_ = conn.Close()

		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	if p95 := percentile(durations, 0.95); p95 > 250*time.Millisecond {
		t.Fatalf("expected feed greeting P95 <= 250ms, got %s", p95)
	}
}

func percentile(values []time.Duration, pct float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	index := int(math.Ceil(pct*float64(len(values)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index]
}
