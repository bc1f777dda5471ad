package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type DebtRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type IntentionRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type UserRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

func New(
	debtController DebtRouteRegistrar,
	intentionController IntentionRouteRegistrar,
	userController UserRouteRegistrar,
	authMiddleware func(http.Handler) http.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	if debtController != nil {
		debtController.RegisterRoutes(mux, authMiddleware)
	}
	if intentionController != nil {
		intentionController.RegisterRoutes(mux, authMiddleware)
	}
	if userController != nil {
		userController.RegisterRoutes(mux, authMiddleware)
	}

	return mux
}
