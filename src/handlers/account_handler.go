package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/username/tesoreria/backend/src/logger"
	"github.com/username/tesoreria/backend/src/models"
	"github.com/username/tesoreria/backend/src/security/validation"
	"github.com/username/tesoreria/backend/src/storage"
	"github.com/username/tesoreria/backend/src/utils"
)

type AccountHandler struct {
	store storage.Store
}

func NewAccountHandler(store storage.Store) *AccountHandler {
	return &AccountHandler{
		store: store,
	}
}

func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.Accounts(r.Context())
	if err != nil {
		logger.L.Error("Error listing accounts", "error", err)
		utils.SendJSONError(w, "Error retrieving accounts", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	utils.SendJSON(w, accounts, http.StatusOK)
}

func (h *AccountHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	account, err := h.store.Account(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			utils.SendJSONError(w, fmt.Sprintf("Account %d not found", accountID), http.StatusNotFound)
			return
		}
		logger.L.Error("Error loading account", "accountID", accountID, "error", err)
		utils.SendJSONError(w, "Error retrieving account", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, account, http.StatusOK)
}

type createAccountRequest struct {
	Alias          string `json:"alias"`
	BankName       string `json:"bankName"`
	IBAN           string `json:"iban"`
	Currency       string `json:"currency"`
	Scope          string `json:"scope"`
	OpeningBalance string `json:"openingBalance"`
	MinimumBalance string `json:"minimumBalance"`
}

func (h *AccountHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Alias == "" {
		utils.SendJSONError(w, "Field 'alias' is required", http.StatusBadRequest)
		return
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	scope := models.AccountScope(req.Scope)
	switch scope {
	case models.ScopePersonal, models.ScopeProperty, models.ScopeMixed:
	case "":
		scope = models.ScopePersonal
	default:
		utils.SendJSONError(w, fmt.Sprintf("Unknown scope %q", req.Scope), http.StatusBadRequest)
		return
	}

	opening := decimal.Zero
	if req.OpeningBalance != "" {
		var err error
		if opening, err = decimal.NewFromString(req.OpeningBalance); err != nil {
			utils.SendJSONError(w, "Invalid 'openingBalance' amount", http.StatusBadRequest)
			return
		}
	}
	minimum := decimal.Zero
	if req.MinimumBalance != "" {
		var err error
		if minimum, err = decimal.NewFromString(req.MinimumBalance); err != nil {
			utils.SendJSONError(w, "Invalid 'minimumBalance' amount", http.StatusBadRequest)
			return
		}
	}

	account := models.Account{
		Alias:          req.Alias,
		BankName:       req.BankName,
		IBAN:           req.IBAN,
		Currency:       req.Currency,
		Scope:          scope,
		OpeningBalance: opening,
		Balance:        opening,
		MinimumBalance: minimum,
		Active:         true,
	}
	id, err := h.store.AddAccount(r.Context(), account)
	if err != nil {
		logger.L.Error("Error creating account", "alias", req.Alias, "error", err)
		utils.SendJSONError(w, "Error creating account", http.StatusInternalServerError)
		return
	}
	account.ID = id
	logger.L.Info("Account created", "accountID", id, "alias", account.Alias)
	utils.SendJSON(w, account, http.StatusCreated)
}

func (h *AccountHandler) HandleListMovements(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	movements, err := h.store.MovementsByAccount(r.Context(), accountID)
	if err != nil {
		logger.L.Error("Error listing movements", "accountID", accountID, "error", err)
		utils.SendJSONError(w, "Error retrieving movements", http.StatusInternalServerError)
		return
	}
	if movements == nil {
		movements = []models.Movement{}
	}
	utils.SendJSON(w, movements, http.StatusOK)
}

// HandleExportMovements streams an account's movements as a CSV download.
// Text fields are sanitized so the file opens safely in spreadsheet software.
func (h *AccountHandler) HandleExportMovements(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	account, err := h.store.Account(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			utils.SendJSONError(w, fmt.Sprintf("Account %d not found", accountID), http.StatusNotFound)
			return
		}
		logger.L.Error("Error loading account for export", "accountID", accountID, "error", err)
		utils.SendJSONError(w, "Error retrieving account", http.StatusInternalServerError)
		return
	}
	movements, err := h.store.MovementsByAccount(r.Context(), accountID)
	if err != nil {
		logger.L.Error("Error loading movements for export", "accountID", accountID, "error", err)
		utils.SendJSONError(w, "Error retrieving movements", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("movimientos_%s.csv", account.Alias)))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"fecha", "importe", "concepto", "beneficiario", "estado", "origen"})
	for _, m := range movements {
		_ = cw.Write([]string{
			m.Date.Format("2006-01-02"),
			m.Amount.StringFixed(2),
			validation.SanitizeForFormulaInjection(m.Description),
			validation.SanitizeForFormulaInjection(m.Counterparty),
			string(m.Status),
			string(m.Origin),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logger.L.Error("Error writing CSV export", "accountID", accountID, "error", err)
	}
}

// pathID parses the {id} path segment, writing the error response itself.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.SendJSONError(w, "Invalid id in path", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
