package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/webprobe/internal/domain"
	"github.com/shaiso/webprobe/internal/repo"
	"github.com/shaiso/webprobe/internal/telemetry"
	"github.com/shaiso/webprobe/internal/worker"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeSchedule struct {
	entries    []domain.ScheduleEntry
	listErr    error
	requeueErr error

	gotLimit int
	requeued []int64
}

func (f *fakeSchedule) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduleEntry, error) {
	f.gotLimit = limit
	return f.entries, f.listErr
}

func (f *fakeSchedule) RequeueNow(ctx context.Context, id int64, now time.Time) error {
	if f.requeueErr != nil {
		return f.requeueErr
	}
	f.requeued = append(f.requeued, id)
	return nil
}

type fakeWorkers struct {
	woken   int
	stopped bool
}

func (f *fakeWorkers) Wake()               { f.woken++ }
func (f *fakeWorkers) IsStopped() bool     { return f.stopped }
func (f *fakeWorkers) Stats() worker.Stats { return worker.Stats{Busy: 2, Processed: 17} }

func newTestServer(t *testing.T, sched *fakeSchedule, workers Workers) *httptest.Server {
	t.Helper()

	h := NewHandler(Config{
		Schedule: sched,
		Workers:  workers,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:    func() time.Time { return testNow },
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestListDue(t *testing.T) {
	claimed := testNow.Add(-time.Minute)
	sched := &fakeSchedule{entries: []domain.ScheduleEntry{
		{ScenarioID: 1, Name: "login", HostID: 10, Host: "web-01", NextCheck: testNow.Add(-time.Hour)},
		{ScenarioID: 2, Name: "search", HostID: 11, Host: "web-02", NextCheck: testNow, ClaimedAt: &claimed},
	}}
	srv := newTestServer(t, sched, nil)

	resp, err := http.Get(srv.URL + "/api/v1/scenarios/due?limit=5")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body := decode[struct {
		Data  []ScheduleEntryResponse `json:"data"`
		Total int                     `json:"total"`
	}](t, resp)

	assert.Equal(t, 5, sched.gotLimit)
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "web-01", body.Data[0].Host)
	assert.Nil(t, body.Data[0].ClaimedAt)
	require.NotNil(t, body.Data[1].ClaimedAt)
	assert.True(t, claimed.Equal(*body.Data[1].ClaimedAt))
}

func TestListDue_Limit(t *testing.T) {
	sched := &fakeSchedule{}
	srv := newTestServer(t, sched, nil)

	resp, err := http.Get(srv.URL + "/api/v1/scenarios/due")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, defaultDueLimit, sched.gotLimit)

	resp, err = http.Get(srv.URL + "/api/v1/scenarios/due?limit=100000")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, maxDueLimit, sched.gotLimit)

	resp, err = http.Get(srv.URL + "/api/v1/scenarios/due?limit=-1")
	require.NoError(t, err)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, ErrCodeBadRequest, body.Error.Code)
}

func TestListDue_StoreError(t *testing.T) {
	srv := newTestServer(t, &fakeSchedule{listErr: errors.New("db down")}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/scenarios/due")
	require.NoError(t, err)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal server error", body.Error.Message, "details are not exposed")
}

func TestCheckNow(t *testing.T) {
	sched := &fakeSchedule{}
	workers := &fakeWorkers{}
	srv := newTestServer(t, sched, workers)
	counter := telemetry.APIRequests.WithLabelValues("POST /api/v1/scenarios/{id}/check-now", "202")
	before := testutil.ToFloat64(counter)

	resp, err := http.Post(srv.URL+"/api/v1/scenarios/42/check-now", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decode[struct {
		Data CheckNowResponse `json:"data"`
	}](t, resp)
	assert.Equal(t, int64(42), body.Data.ScenarioID)
	assert.True(t, testNow.Equal(body.Data.NextCheck))
	assert.Equal(t, []int64{42}, sched.requeued)
	assert.Equal(t, 1, workers.woken)
	assert.Equal(t, before+1, testutil.ToFloat64(counter), "route label is the mux pattern")
}

func TestCheckNow_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		sched    *fakeSchedule
		workers  *fakeWorkers
		wantCode int
	}{
		{"bad id", "/api/v1/scenarios/abc/check-now", &fakeSchedule{}, &fakeWorkers{}, http.StatusBadRequest},
		{"zero id", "/api/v1/scenarios/0/check-now", &fakeSchedule{}, &fakeWorkers{}, http.StatusBadRequest},
		{"unknown scenario", "/api/v1/scenarios/7/check-now", &fakeSchedule{requeueErr: repo.ErrNotFound}, &fakeWorkers{}, http.StatusNotFound},
		{"store error", "/api/v1/scenarios/7/check-now", &fakeSchedule{requeueErr: errors.New("boom")}, &fakeWorkers{}, http.StatusInternalServerError},
		{"stopped pool", "/api/v1/scenarios/7/check-now", &fakeSchedule{}, &fakeWorkers{stopped: true}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.sched, tt.workers)

			resp, err := http.Post(srv.URL+tt.path, "application/json", nil)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Zero(t, tt.workers.woken)
			assert.Empty(t, tt.sched.requeued)
		})
	}
}

func TestCheckNow_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeSchedule{}, &fakeWorkers{})

	resp, err := http.Get(srv.URL + "/api/v1/scenarios/42/check-now")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWorkerStats(t *testing.T) {
	srv := newTestServer(t, &fakeSchedule{}, &fakeWorkers{})

	resp, err := http.Get(srv.URL + "/api/v1/workers")
	require.NoError(t, err)
	body := decode[struct {
		Data WorkerStatsResponse `json:"data"`
	}](t, resp)
	assert.Equal(t, WorkerStatsResponse{Busy: 2, Processed: 17}, body.Data)

	srv = newTestServer(t, &fakeSchedule{}, nil)
	resp, err = http.Get(srv.URL + "/api/v1/workers")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRecovery(t *testing.T) {
	var called bool
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(Recovery(logger), Observe(logger))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
