package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakePinger) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakePinger) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakePinger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recorder struct {
	mu  sync.Mutex
	ups []bool
}

func (r *recorder) SetDatabaseUp(up bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ups = append(r.ups, up)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestDatabaseProbe_TracksOutcome(t *testing.T) {
	pinger := &fakePinger{}
	rec := &recorder{}
	probe := NewDatabaseProbe(pinger, rec, discard())

	require.NoError(t, probe.RunNow())
	assert.True(t, probe.Healthy())

	pinger.set(errors.New("connection refused"))
	assert.Error(t, probe.RunNow())
	assert.False(t, probe.Healthy())

	pinger.set(nil)
	require.NoError(t, probe.RunNow())
	assert.True(t, probe.Healthy())

	assert.Equal(t, []bool{true, false, true}, rec.ups)
}

func TestDatabaseProbe_StartRunsImmediately(t *testing.T) {
	pinger := &fakePinger{}
	probe := NewDatabaseProbe(pinger, nil, discard())
	probe.CheckInterval = time.Hour

	probe.Start()
	probe.Start()
	probe.Stop()
	probe.Stop()

	assert.Equal(t, 1, pinger.count())
}

func TestHealth_ReflectsProbe(t *testing.T) {
	s := newTestServer(t, Options{})
	pinger := &fakePinger{err: errors.New("down")}
	probe := NewDatabaseProbe(pinger, nil, discard())

	h := NewHandler(s.engine, discard())
	h.Probe = probe
	router := NewRouter(h, Options{Secret: secret})
	srv := &testServer{router: router, engine: s.engine}

	rec := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	_ = probe.RunNow()
	rec = srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode[map[string]string](t, rec)["status"])
}
