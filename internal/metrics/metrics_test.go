package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/items/1", "/items/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	out := scrape(t, m)
	assert.Contains(t, out, `expense_ledger_http_requests_total{code="418",method="GET",route="/items/{id}"} 2`)
	assert.NotContains(t, out, `route="/items/1"`)
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.LoginAttempt(true)
	m.LoginAttempt(false)
	m.LoginAttempt(false)
	m.UserRegistered()
	m.ExpenseOp("add")

	out := scrape(t, m)
	assert.Contains(t, out, `expense_ledger_logins_total{result="failure"} 2`)
	assert.Contains(t, out, `expense_ledger_logins_total{result="success"} 1`)
	assert.Contains(t, out, `expense_ledger_registrations_total 1`)
	assert.Contains(t, out, `expense_ledger_expense_operations_total{op="add"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LoginAttempt(true)
		m.UserRegistered()
		m.ExpenseOp("clear")
	})
}
