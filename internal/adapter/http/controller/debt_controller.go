package controller

import (
	"net/http"
	"time"

	"encoding/json"

	"github.com/splitledger/debtsync/internal/adapter/http/models"
	"github.com/splitledger/debtsync/internal/commons"
	"github.com/splitledger/debtsync/internal/domain"
	"github.com/splitledger/debtsync/internal/usecase/service_interfaces"
)

type DebtController struct {
	batchService service_interfaces.BatchService
}

func NewDebtController(batchService service_interfaces.BatchService) *DebtController {
	return &DebtController{batchService: batchService}
}

func (c *DebtController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(h http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(h)
		}
		return h
	}

	mux.Handle("/debts", wrap(c.listDebts))
	mux.Handle("/debts/batch", wrap(c.proposeBatch))
}

func (c *DebtController) listDebts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		response := commons.ErrorResponse[[]models.DebtResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	caller := callerAccount(r)
	if caller == "" {
		response := commons.ErrorResponse[[]models.DebtResponse]("missing account header")
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
		return
	}

	records, err := c.batchService.ListDebts(r.Context(), caller, r.URL.Query().Get("counterpartyUserId"))
	if err != nil {
		logError(r, err, nil)
		status := statusForKind(domain.KindOf(err))
		response := commons.ErrorResponse[[]models.DebtResponse]("failed to list debts", err.Error())
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	payload := make([]models.DebtResponse, 0, len(records))
	for _, record := range records {
		payload = append(payload, models.DebtResponseFrom(record))
	}

	response := commons.SuccessResponse("debts", payload)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *DebtController) proposeBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[[]commons.ItemResult[models.DebtResponse]]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	caller := callerAccount(r)
	if caller == "" {
		response := commons.ErrorResponse[[]commons.ItemResult[models.DebtResponse]]("missing account header")
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
		return
	}

	var req models.ProposeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[[]commons.ItemResult[models.DebtResponse]]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		response := commons.ErrorResponse[[]commons.ItemResult[models.DebtResponse]]("validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	outcomes, err := c.batchService.ProposeBatch(r.Context(), caller, req.ToDomain())
	if err != nil {
		logError(r, err, nil)
		status := statusForKind(domain.KindOf(err))
		response := commons.ErrorResponse[[]commons.ItemResult[models.DebtResponse]]("batch rejected", err.Error())
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	items := make([]commons.ItemResult[models.DebtResponse], len(outcomes))
	for idx, outcome := range outcomes {
		items[idx] = commons.ItemResult[models.DebtResponse]{Index: idx, Success: outcome.OK()}
		if outcome.OK() {
			payload := models.DebtResponseFrom(*outcome.Debt)
			items[idx].Data = &payload
		} else {
			items[idx].Kind = string(outcome.Err.Kind)
			items[idx].Errors = []string{outcome.Err.Message}
		}
	}

	response := commons.PartialResponse("batch processed", items)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
