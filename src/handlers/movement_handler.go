package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tesoreria/backend/src/logger"
	"github.com/username/tesoreria/backend/src/services"
	"github.com/username/tesoreria/backend/src/utils"
)

type MovementHandler struct {
	movementService services.MovementService
}

func NewMovementHandler(service services.MovementService) *MovementHandler {
	return &MovementHandler{
		movementService: service,
	}
}

type createMovementRequest struct {
	AccountID   int64  `json:"accountId"`
	Date        string `json:"date"` // YYYY-MM-DD
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Forecast    bool   `json:"forecast"`
}

func (h *MovementHandler) HandleCreateMovement(w http.ResponseWriter, r *http.Request) {
	var req createMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		utils.SendJSONError(w, "Invalid 'date', expected YYYY-MM-DD.", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		utils.SendJSONError(w, "Invalid 'amount'.", http.StatusBadRequest)
		return
	}

	movement, err := h.movementService.Create(r.Context(), services.CreateMovementRequest{
		AccountID:   req.AccountID,
		Date:        date,
		Amount:      amount,
		Description: req.Description,
		Category:    req.Category,
		Forecast:    req.Forecast,
	})
	if err != nil {
		h.writeServiceError(w, err, "creating movement")
		return
	}
	utils.SendJSON(w, movement, http.StatusCreated)
}

func (h *MovementHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	movementID, ok := pathID(w, r)
	if !ok {
		return
	}
	movement, err := h.movementService.Confirm(r.Context(), movementID)
	if err != nil {
		h.writeServiceError(w, err, "confirming movement")
		return
	}
	utils.SendJSON(w, movement, http.StatusOK)
}

func (h *MovementHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	movementID, ok := pathID(w, r)
	if !ok {
		return
	}
	movement, err := h.movementService.Reconcile(r.Context(), movementID)
	if err != nil {
		h.writeServiceError(w, err, "reconciling movement")
		return
	}
	utils.SendJSON(w, movement, http.StatusOK)
}

func (h *MovementHandler) writeServiceError(w http.ResponseWriter, err error, action string) {
	if errors.Is(err, services.ErrValidation) {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.L.Error("Internal error "+action, "error", err)
	utils.SendJSONError(w, "An internal error occurred.", http.StatusInternalServerError)
}
