package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/services"
	"github.com/username/tesoreria/backend/src/storage"
)

func newMovementFixture(t *testing.T) (*storage.MemoryStore, *http.ServeMux, int64) {
	t.Helper()
	store := storage.NewMemoryStore()
	projections := services.NewProjectionService(store, cache.New(time.Minute, time.Minute))
	handler := NewMovementHandler(services.NewMovementService(store, projections))
	accountHandler := NewAccountHandler(store)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/movements", handler.HandleCreateMovement)
	mux.HandleFunc("POST /api/movements/{id}/confirm", handler.HandleConfirm)
	mux.HandleFunc("POST /api/movements/{id}/reconcile", handler.HandleReconcile)
	mux.HandleFunc("GET /api/accounts/{id}/movements/export", accountHandler.HandleExportMovements)

	accountID, err := store.AddAccount(context.Background(), models.Account{
		Alias:          "Corriente",
		Currency:       "EUR",
		Scope:          models.ScopePersonal,
		OpeningBalance: decimal.NewFromInt(500),
		Balance:        decimal.NewFromInt(500),
		Active:         true,
	})
	require.NoError(t, err)
	return store, mux, accountID
}

func TestMovementLifecycleOverHTTP(t *testing.T) {
	store, mux, accountID := newMovementFixture(t)

	// Create a forecast entry.
	body := fmt.Sprintf(`{"accountId":%d,"date":"2025-07-05","amount":"-120.00","description":"Seguro coche","forecast":true}`, accountID)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/movements", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Movement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.StatusPrevisto, created.Status)
	assert.Equal(t, models.OriginForecast, created.Origin)

	// Forecast entries do not touch the stored balance.
	acct, err := store.Account(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, "500", acct.Balance.String())

	// Confirm, then reconcile.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/movements/%d/confirm", created.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	acct, err = store.Account(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, "380", acct.Balance.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/movements/%d/reconcile", created.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// conciliado is terminal.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/movements/%d/confirm", created.ID), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportMovementsSanitizesFormulas(t *testing.T) {
	store, mux, accountID := newMovementFixture(t)

	_, err := store.AddMovement(context.Background(), models.Movement{
		AccountID:   accountID,
		Date:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromInt(-10),
		Description: "=HYPERLINK(\"http://evil\")",
		Origin:      models.OriginImport,
		Status:      models.StatusNoPlanificado,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/accounts/%d/movements/export", accountID), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `'=HYPERLINK`)
}

func TestCreateMovementValidation(t *testing.T) {
	_, mux, accountID := newMovementFixture(t)

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"bad date", fmt.Sprintf(`{"accountId":%d,"date":"someday","amount":"1.00","description":"x"}`, accountID)},
		{"bad amount", fmt.Sprintf(`{"accountId":%d,"date":"2025-07-01","amount":"uno","description":"x"}`, accountID)},
		{"zero amount", fmt.Sprintf(`{"accountId":%d,"date":"2025-07-01","amount":"0","description":"x"}`, accountID)},
		{"no description", fmt.Sprintf(`{"accountId":%d,"date":"2025-07-01","amount":"1.00"}`, accountID)},
		{"unknown account", `{"accountId":404,"date":"2025-07-01","amount":"1.00","description":"x"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/movements", strings.NewReader(tc.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
