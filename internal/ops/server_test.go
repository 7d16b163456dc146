package ops

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logos-backend/internal/scheduler"
	"logos-backend/internal/store"
)

func newTestRouter(t *testing.T) (*store.Store, http.Handler) {
	t.Helper()
	st := store.New(nil)
	sched := scheduler.New(st, nil)
	return st, NewRouter(st, sched, false)
}

func TestHealthz(t *testing.T) {
	_, router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStatsReflectsStore(t *testing.T) {
	st, router := newTestRouter(t)

	_, err := store.Write(st, 1, store.Mimics, func(mu *store.MimicUser) (struct{}, error) {
		mu.Mimics = append(mu.Mimics, store.Mimic{Name: "Fox"}, store.Mimic{Name: "Wolf"})
		return struct{}{}, nil
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Users         int   `json:"users"`
		Mimics        int   `json:"mimics"`
		Events        int   `json:"events"`
		PendingTimers int64 `json:"pending_timers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Users)
	assert.Equal(t, 2, body.Mimics)
	assert.Equal(t, 0, body.Events)
	assert.Equal(t, int64(0), body.PendingTimers)
}
