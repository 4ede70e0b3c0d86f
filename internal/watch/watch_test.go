package watch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasteward/hubconsole/internal/api"
	"github.com/datasteward/hubconsole/internal/bus"
	"github.com/datasteward/hubconsole/internal/model"
)

type refreshRecorder struct {
	mu    sync.Mutex
	calls []string
	ch    chan string
}

func newRefreshRecorder() *refreshRecorder {
	return &refreshRecorder{ch: make(chan string, 16)}
}

func (r *refreshRecorder) refresh(entity string, payload json.RawMessage) {
	r.mu.Lock()
	r.calls = append(r.calls, entity)
	r.mu.Unlock()
	r.ch <- entity
}

func (r *refreshRecorder) wait(t *testing.T) string {
	t.Helper()
	select {
	case e := <-r.ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh within deadline")
		return ""
	}
}

func newHubStub() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/sources", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[{"name":"mygene"}]}`))
	})
	mux.HandleFunc("/builds", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[]}`))
	})
	return httptest.NewServer(mux)
}

func TestChangeEventTriggersRefetch(t *testing.T) {
	server := newHubStub()
	defer server.Close()

	b := bus.New(nil)
	rec := newRefreshRecorder()

	cfg := DefaultConfig()
	cfg.Entities = []string{"source"}
	cfg.RefreshInterval = time.Hour // keep the ticker out of this test

	m := NewManager(cfg, api.NewClient(server.URL), rec.refresh, nil)
	require.NoError(t, m.Start(context.Background(), b))
	defer m.Stop(context.Background())

	b.Publish(model.Event{Topic: "change_source", ID: "mygene", Op: "update"})

	assert.Equal(t, "source", rec.wait(t))
}

func TestUnwatchedEntityIgnored(t *testing.T) {
	server := newHubStub()
	defer server.Close()

	b := bus.New(nil)
	rec := newRefreshRecorder()

	cfg := DefaultConfig()
	cfg.Entities = []string{"build"}
	cfg.RefreshInterval = time.Hour

	m := NewManager(cfg, api.NewClient(server.URL), rec.refresh, nil)
	require.NoError(t, m.Start(context.Background(), b))
	defer m.Stop(context.Background())

	b.Publish(model.Event{Topic: "change_source", ID: "mygene"})

	select {
	case e := <-rec.ch:
		t.Fatalf("unexpected refresh for %q", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnknownEntitySkipped(t *testing.T) {
	server := newHubStub()
	defer server.Close()

	b := bus.New(nil)
	cfg := DefaultConfig()
	cfg.Entities = []string{"nonsense"}

	m := NewManager(cfg, api.NewClient(server.URL), nil, nil)
	require.NoError(t, m.Start(context.Background(), b))
	require.NoError(t, m.Stop(context.Background()))
}

func TestPeriodicRefresh(t *testing.T) {
	server := newHubStub()
	defer server.Close()

	b := bus.New(nil)
	rec := newRefreshRecorder()

	cfg := DefaultConfig()
	cfg.Entities = []string{"source", "build"}
	cfg.RefreshInterval = 50 * time.Millisecond

	m := NewManager(cfg, api.NewClient(server.URL), rec.refresh, nil)
	require.NoError(t, m.Start(context.Background(), b))
	defer m.Stop(context.Background())

	seen := map[string]bool{}
	for len(seen) < 2 {
		seen[rec.wait(t)] = true
	}
	assert.True(t, seen["source"])
	assert.True(t, seen["build"])
}

func TestRefreshAll(t *testing.T) {
	server := newHubStub()
	defer server.Close()

	b := bus.New(nil)
	rec := newRefreshRecorder()

	cfg := DefaultConfig()
	cfg.Entities = []string{"source"}
	cfg.RefreshInterval = time.Hour

	m := NewManager(cfg, api.NewClient(server.URL), rec.refresh, nil)
	require.NoError(t, m.Start(context.Background(), b))
	defer m.Stop(context.Background())

	m.RefreshAll()
	assert.Equal(t, "source", rec.wait(t))
}
