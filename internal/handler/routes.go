package handler

import (
	"github.com/Dan9191/finsight/internal/config"
	"github.com/Dan9191/finsight/internal/middleware"
	"github.com/gorilla/mux"
)

// Router registers the public and the gated routes
func (h *Handler) Router(cfg *config.Config) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(h.log))
	r.Use(middleware.VisitorMiddleware(cfg, h.log))

	// Public routes
	r.HandleFunc("/", h.Home).Methods("GET")
	r.HandleFunc("/signin", h.SignIn).Methods("POST")
	r.HandleFunc("/healthz", h.Health).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(h.svc, h.log))
	authRouter.HandleFunc("/signout", h.SignOut).Methods("POST")
	authRouter.HandleFunc("/dashboard", h.Dashboard).Methods("GET")
	authRouter.HandleFunc("/upload", h.Upload).Methods("POST")
	authRouter.HandleFunc("/uploads", h.Uploads).Methods("GET")
	authRouter.HandleFunc("/selection", h.Selection).Methods("GET")
	authRouter.HandleFunc("/selection", h.UpdateSelection).Methods("POST")
	authRouter.HandleFunc("/forecast", h.Forecast).Methods("POST")
	authRouter.HandleFunc("/simulation", h.Simulate).Methods("POST")
	authRouter.HandleFunc("/simulation/presets", h.Presets).Methods("GET")
	authRouter.HandleFunc("/optimize", h.Optimize).Methods("POST")
	authRouter.HandleFunc("/advice", h.Advice).Methods("POST")
	authRouter.HandleFunc("/ask", h.Ask).Methods("POST")
	authRouter.HandleFunc("/report", h.Report).Methods("POST")

	return r
}
