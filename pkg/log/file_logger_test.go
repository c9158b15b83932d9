package log

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discoveryEvent(session string, phase DiscoveryPhase) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		SessionID: session,
		Direction: DirectionOut,
		Layer:     LayerEngine,
		Category:  CategoryDiscovery,
		LocalRole: RoleController,
		Port:      "bus0",
		Discovery: &DiscoveryEvent{Phase: phase},
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.rlog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	logger.Log(discoveryEvent("a", PhaseUnMute))
	logger.Log(discoveryEvent("a", PhaseProbe))
	logger.Log(discoveryEvent("b", PhaseFound))
	require.NoError(t, logger.Close())

	// Close is idempotent and later Log calls are dropped.
	require.NoError(t, logger.Close())
	logger.Log(discoveryEvent("a", PhaseMute))

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var phases []DiscoveryPhase
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		phases = append(phases, ev.Discovery.Phase)
	}
	assert.Equal(t, []DiscoveryPhase{PhaseUnMute, PhaseProbe, PhaseFound}, phases)
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.rlog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	logger.Log(discoveryEvent("a", PhaseProbe))
	logger.Log(discoveryEvent("b", PhaseProbe))
	logger.Log(discoveryEvent("a", PhaseFound))
	require.NoError(t, logger.Close())

	reader, err := NewFilteredReader(path, Filter{SessionID: "a"})
	require.NoError(t, err)
	defer reader.Close()

	count := 0
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "a", ev.SessionID)
		count++
	}
	assert.Equal(t, 2, count)
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.rlog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				logger.Log(discoveryEvent("c", PhaseProbe))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
		count++
	}
	assert.Equal(t, writers*perWriter, count)
}

func TestMultiLogger(t *testing.T) {
	var a, b recordingLogger
	multi := NewMultiLogger(&a, &b, NoopLogger{})
	multi.Log(discoveryEvent("m", PhaseFound))

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}
