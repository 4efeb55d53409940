package handler

import (
	"net/http"
	"time"

	"unlock-relay/internal/config"
	"unlock-relay/internal/logging"
	"unlock-relay/internal/middleware"
	"unlock-relay/internal/service"
	"unlock-relay/internal/websocket"
	"unlock-relay/pkg/response"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "unlock-relay"

type RouterDeps struct {
	Commands *service.CommandService
	Auth     *service.AuthService
	Events   *service.EventService
	Manager  *websocket.Manager
	Gatherer prometheus.Gatherer
	CORS     config.CORSConfig
	Logger   *logging.Logger
	Now      func() time.Time
}

func NewRouter(deps RouterDeps) *mux.Router {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	commandHandler := NewCommandHandler(deps.Commands, deps.Auth)
	eventHandler := NewEventHandler(deps.Events)
	authHandler := NewAuthHandler(deps.Auth)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORSMiddleware(
		deps.CORS.AllowedOrigins,
		deps.CORS.AllowedMethods,
		deps.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/unlock", commandHandler.Issue).Methods("POST", "OPTIONS")
	api.HandleFunc("/command", commandHandler.Poll).Methods("GET", "OPTIONS")
	api.HandleFunc("/ack", commandHandler.Acknowledge).Methods("POST", "OPTIONS")
	api.HandleFunc("/admin/token", authHandler.AdminToken).Methods("POST", "OPTIONS")

	admin := api.PathPrefix("").Subrouter()
	admin.Use(middleware.AdminAuthMiddleware(deps.Auth))

	admin.HandleFunc("/events", eventHandler.List).Methods("GET", "OPTIONS")

	if deps.Manager != nil {
		wsHandler := NewWebSocketHandler(deps.Manager, deps.Auth, deps.Events, deps.Logger)
		r.HandleFunc("/ws/events", wsHandler.HandleConnection)
	}

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{
			"status":  "healthy",
			"service": serviceName,
		})
	}).Methods("GET")

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]interface{}{
			"ok":      true,
			"service": serviceName,
			"time":    deps.Now().Unix(),
		})
	}).Methods("GET")

	return r
}
