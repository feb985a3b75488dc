package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRouterLogsRequestsAndServesHealth(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewRouter(zap.New(core))
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entries := logs.FilterMessage("request").All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "/healthz", entries[0].ContextMap()["path"])
		assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
		assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
	}
}

func TestMergeKeepsRoutesFromEverySubRouter(t *testing.T) {
	a := chi.NewRouter()
	a.Get("/members/{id}/payments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payments " + chi.URLParam(r, "id")))
	})
	b := chi.NewRouter()
	b.With(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Limited", "yes")
			next.ServeHTTP(w, r)
		})
	}).Post("/members/{id}/entry-fee", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	r := NewRouter(zap.NewNop())
	require.NoError(t, Merge(r, a, b))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/members/42/payments", nil))
	assert.Equal(t, "payments 42", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/members/42/entry-fee", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Limited"))
}
