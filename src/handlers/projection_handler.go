package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/username/tesoreria/backend/src/logger"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/services"
	"github.com/username/tesoreria/backend/src/utils"
)

// defaultProjectionDays is the horizon used when the caller gives no period.
const defaultProjectionDays = 30

type ProjectionHandler struct {
	projectionService services.ProjectionService
}

func NewProjectionHandler(service services.ProjectionService) *ProjectionHandler {
	return &ProjectionHandler{
		projectionService: service,
	}
}

// HandleProjection serves GET /api/projection?accountId=&start=&end= with
// ETag support, so the dashboard can poll cheaply.
func (h *ProjectionHandler) HandleProjection(w http.ResponseWriter, r *http.Request) {
	result, ok := h.projectionFromQuery(w, r)
	if !ok {
		return
	}

	currentETag, etagErr := utils.GenerateETag(result)
	if etagErr != nil {
		logger.L.Error("Failed to generate ETag for projection", "error", etagErr)
	}
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("%q", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, cETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	utils.SendJSON(w, result, http.StatusOK)
}

// HandleProjectionRisk serves GET /api/projection/risk?accountId=&start=&end=
// with just the traffic-light summary, for the account list view.
func (h *ProjectionHandler) HandleProjectionRisk(w http.ResponseWriter, r *http.Request) {
	result, ok := h.projectionFromQuery(w, r)
	if !ok {
		return
	}
	utils.SendJSON(w, map[string]interface{}{
		"accountId":        result.AccountID,
		"risk":             result.Risk,
		"minimumBalance":   result.MinimumBalance,
		"projectedBalance": result.ProjectedBalance,
	}, http.StatusOK)
}

func (h *ProjectionHandler) projectionFromQuery(w http.ResponseWriter, r *http.Request) (*models.ProjectionResult, bool) {
	accountID, err := strconv.ParseInt(r.URL.Query().Get("accountId"), 10, 64)
	if err != nil || accountID <= 0 {
		utils.SendJSONError(w, "A valid 'accountId' query parameter is required.", http.StatusBadRequest)
		return nil, false
	}

	start := utils.Day(time.Now())
	end := start.AddDate(0, 0, defaultProjectionDays)
	if s := r.URL.Query().Get("start"); s != "" {
		if start, err = time.Parse("2006-01-02", s); err != nil {
			utils.SendJSONError(w, "Invalid 'start' date, expected YYYY-MM-DD.", http.StatusBadRequest)
			return nil, false
		}
		end = start.AddDate(0, 0, defaultProjectionDays)
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if end, err = time.Parse("2006-01-02", s); err != nil {
			utils.SendJSONError(w, "Invalid 'end' date, expected YYYY-MM-DD.", http.StatusBadRequest)
			return nil, false
		}
	}

	result, err := h.projectionService.Projection(r.Context(), accountID, start, end)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return nil, false
		}
		logger.L.Error("Error computing projection", "accountID", accountID, "error", err)
		utils.SendJSONError(w, "Error computing projection", http.StatusInternalServerError)
		return nil, false
	}
	return result, true
}
