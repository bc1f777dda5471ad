package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/splitledger/debtsync/internal/adapter/http/models"
	"github.com/splitledger/debtsync/internal/commons"
	"github.com/splitledger/debtsync/internal/domain"
	"github.com/splitledger/debtsync/internal/logger"
	"github.com/splitledger/debtsync/internal/usecase/service_interfaces"
)

type IntentionController struct {
	intentionService service_interfaces.IntentionService
}

func NewIntentionController(intentionService service_interfaces.IntentionService) *IntentionController {
	return &IntentionController{intentionService: intentionService}
}

func (c *IntentionController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(h http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(h)
		}
		return h
	}

	mux.Handle("/intentions", wrap(c.listPending))
	mux.Handle("/intentions/accept", wrap(c.accept))
	mux.Handle("/intentions/accept-all", wrap(c.acceptAll))
}

func (c *IntentionController) listPending(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		response := commons.ErrorResponse[[]models.IntentionResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	caller := callerAccount(r)
	if caller == "" {
		response := commons.ErrorResponse[[]models.IntentionResponse]("missing account header")
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
		return
	}

	intentions, err := c.intentionService.ListPending(r.Context(), caller)
	if err != nil {
		logError(r, err, nil)
		status := statusForKind(domain.KindOf(err))
		response := commons.ErrorResponse[[]models.IntentionResponse]("failed to list intentions", err.Error())
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	payload := make([]models.IntentionResponse, 0, len(intentions))
	for _, intention := range intentions {
		payload = append(payload, models.IntentionResponseFrom(intention))
	}

	response := commons.SuccessResponse("pending intentions", payload)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *IntentionController) accept(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.DebtResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	caller := callerAccount(r)
	if caller == "" {
		response := commons.ErrorResponse[models.DebtResponse]("missing account header")
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
		return
	}

	var req models.AcceptIntentionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.DebtResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		response := commons.ErrorResponse[models.DebtResponse]("validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	record, err := c.intentionService.Accept(r.Context(), caller, req.IntentionID)
	if err != nil {
		logError(r, err, logger.Fields{"intentionId": req.IntentionID})
		status := statusForKind(domain.KindOf(err))
		message := "failed to accept intention"
		if domain.KindOf(err) == domain.KindNotFound {
			// Benign: the intention was already handled, possibly by a
			// concurrent request.
			message = "intention already handled"
		}
		response := commons.ErrorResponse[models.DebtResponse](message, err.Error())
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("intention accepted", models.DebtResponseFrom(record))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *IntentionController) acceptAll(w http.ResponseWriter, r *http.Request) {
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

	outcomes, err := c.intentionService.AcceptAll(r.Context(), caller)
	if err != nil {
		logError(r, err, nil)
		status := statusForKind(domain.KindOf(err))
		response := commons.ErrorResponse[[]commons.ItemResult[models.DebtResponse]]("failed to accept intentions", err.Error())
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

	response := commons.PartialResponse("intentions processed", items)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
