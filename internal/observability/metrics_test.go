package observability

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordRequest("/chat/", "POST", 500, time.Millisecond)
	m.RecordRequest("/chat/", "POST", 500, time.Millisecond)
	m.RecordRequest("/chat/", "POST", 200, time.Millisecond)
	m.RecordRetry("/chat/", "POST")
	m.RecordError("/chat/", "POST", "server")

	snap := m.Snapshot()
	require.Equal(t, int64(2), snap.Requests["/chat/|POST|500"])
	require.Equal(t, int64(1), snap.Requests["/chat/|POST|200"])
	require.Equal(t, int64(1), snap.Retries["/chat/|POST"])
	require.Equal(t, int64(1), snap.Errors["/chat/|POST|server"])

	// the snapshot is a copy
	snap.Requests["/chat/|POST|200"] = 99
	require.Equal(t, int64(1), m.Snapshot().Requests["/chat/|POST|200"])
}

func TestMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, 0)
		m.RecordError("/", "GET", "x")
		m.RecordRetry("/", "GET")
	})
	require.Empty(t, m.Snapshot().Requests)
}

func TestMetrics_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordRequest("/founder/trails", "GET", 200, time.Microsecond)
		}()
	}
	wg.Wait()
	require.Equal(t, int64(50), m.Snapshot().Requests["/founder/trails|GET|200"])
}
