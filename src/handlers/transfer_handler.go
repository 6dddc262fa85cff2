package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/tesoreria/backend/src/logger"
	"github.com/username/tesoreria/backend/src/services"
	"github.com/username/tesoreria/backend/src/utils"
)

type TransferHandler struct {
	transferService services.TransferService
}

func NewTransferHandler(service services.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: service,
	}
}

type createTransferRequest struct {
	OutMovementID int64  `json:"outMovementId"`
	InMovementID  int64  `json:"inMovementId"`
	Note          string `json:"note"`
}

// HandleCreateTransfer links two movements the detector missed.
func (h *TransferHandler) HandleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.OutMovementID <= 0 || req.InMovementID <= 0 {
		utils.SendJSONError(w, "Fields 'outMovementId' and 'inMovementId' are required.", http.StatusBadRequest)
		return
	}

	transfer, err := h.transferService.CreateTransfer(r.Context(), services.CreateTransferRequest{
		OutMovementID: req.OutMovementID,
		InMovementID:  req.InMovementID,
		Note:          req.Note,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Internal error creating transfer", "error", err)
		utils.SendJSONError(w, "An internal error occurred.", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, transfer, http.StatusCreated)
}

// HandleDeleteTransfer undoes a detected or manual transfer link.
func (h *TransferHandler) HandleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.transferService.UnlinkTransfer(r.Context(), transferID); err != nil {
		if errors.Is(err, services.ErrValidation) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Internal error unlinking transfer", "transferID", transferID, "error", err)
		utils.SendJSONError(w, "An internal error occurred.", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
