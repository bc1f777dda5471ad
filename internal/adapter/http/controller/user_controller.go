package controller

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/splitledger/debtsync/internal/adapter/http/models"
	"github.com/splitledger/debtsync/internal/commons"
	"github.com/splitledger/debtsync/internal/domain"
	"github.com/splitledger/debtsync/internal/usecase/service_interfaces"
)

type UserController struct {
	userService service_interfaces.UserService
}

func NewUserController(userService service_interfaces.UserService) *UserController {
	return &UserController{userService: userService}
}

func (c *UserController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(h http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(h)
		}
		return h
	}

	mux.Handle("/users", wrap(c.users))
	mux.Handle("/users/claim", wrap(c.claim))
}

func (c *UserController) users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		c.create(w, r)
	case http.MethodGet:
		c.get(w, r)
	default:
		response := commons.ErrorResponse[models.UserResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
	}
}

func (c *UserController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.UserResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		response := commons.ErrorResponse[models.UserResponse]("validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	user, err := c.userService.CreateUser(r.Context(), req.DisplayName)
	if err != nil {
		logError(r, err, nil)
		status := statusForKind(domain.KindOf(err))
		response := commons.ErrorResponse[models.UserResponse]("failed to create user", err.Error())
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("user created", models.UserResponseFrom(user))
	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *UserController) get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	user, err := c.userService.GetUser(r.Context(), id)
	if err != nil {
		logError(r, err, nil)
		status := statusForKind(domain.KindOf(err))
		response := commons.ErrorResponse[models.UserResponse]("failed to get user", err.Error())
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("user", models.UserResponseFrom(user))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *UserController) claim(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.UserResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.ClaimUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.UserResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		response := commons.ErrorResponse[models.UserResponse]("validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	user, err := c.userService.ClaimUser(r.Context(), req.UserID, req.AccessKey)
	if err != nil {
		logError(r, err, nil)
		status := statusForKind(domain.KindOf(err))
		response := commons.ErrorResponse[models.UserResponse]("failed to claim user", err.Error())
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("user claimed", models.UserResponseFrom(user))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
