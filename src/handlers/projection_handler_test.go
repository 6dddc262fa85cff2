package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
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

func newProjectionFixture(t *testing.T) (*storage.MemoryStore, *ProjectionHandler, int64) {
	t.Helper()
	store := storage.NewMemoryStore()
	svc := services.NewProjectionService(store, cache.New(time.Minute, time.Minute))
	handler := NewProjectionHandler(svc)

	accountID, err := store.AddAccount(context.Background(), models.Account{
		Alias:          "Corriente",
		Currency:       "EUR",
		Scope:          models.ScopePersonal,
		OpeningBalance: decimal.NewFromInt(1000),
		Balance:        decimal.NewFromInt(1000),
		Active:         true,
	})
	require.NoError(t, err)

	_, err = store.AddMovement(context.Background(), models.Movement{
		AccountID:   accountID,
		Date:        time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromInt(200),
		Description: "Alquiler previsto",
		Origin:      models.OriginForecast,
		Status:      models.StatusPrevisto,
	})
	require.NoError(t, err)
	return store, handler, accountID
}

func TestHandleProjection(t *testing.T) {
	_, handler, accountID := newProjectionFixture(t)

	url := fmt.Sprintf("/api/projection?accountId=%d&start=2025-07-01&end=2025-07-03", accountID)
	rec := httptest.NewRecorder()
	handler.HandleProjection(rec, httptest.NewRequest(http.MethodGet, url, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	assert.NotEmpty(t, etag)

	var result models.ProjectionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, accountID, result.AccountID)
	require.Len(t, result.Days, 3)
	assert.Equal(t, "1200", result.ProjectedBalance.String())
	assert.Equal(t, models.RiskVerde, result.Risk)

	// A conditional request with the returned ETag short-circuits.
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	handler.HandleProjection(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestHandleProjectionBadRequests(t *testing.T) {
	_, handler, accountID := newProjectionFixture(t)

	rec := httptest.NewRecorder()
	handler.HandleProjection(rec, httptest.NewRequest(http.MethodGet, "/api/projection", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	url := fmt.Sprintf("/api/projection?accountId=%d&start=July-1st", accountID)
	rec = httptest.NewRecorder()
	handler.HandleProjection(rec, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// End before start is a validation error, not a 500.
	url = fmt.Sprintf("/api/projection?accountId=%d&start=2025-07-10&end=2025-07-01", accountID)
	rec = httptest.NewRecorder()
	handler.HandleProjection(rec, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProjectionRisk(t *testing.T) {
	_, handler, accountID := newProjectionFixture(t)

	url := fmt.Sprintf("/api/projection/risk?accountId=%d&start=2025-07-01&end=2025-07-03", accountID)
	rec := httptest.NewRecorder()
	handler.HandleProjectionRisk(rec, httptest.NewRequest(http.MethodGet, url, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "verde", body["risk"])
}
