package routes

import (
	"net/http"
	"net/url"
	"strings"
	"vetski/vetski/config"
	"vetski/vetski/controllers"
	"vetski/vetski/middlewares"
	"vetski/vetski/services/realtime"
	"vetski/vetski/utils/logging"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Health         *controllers.HealthController
	Profiles       *controllers.ProfileController
	Animals        *controllers.AnimalController
	Conversations  *controllers.ConversationController
	Consultations  *controllers.ConsultationController
	Transcriptions *controllers.TranscriptionController
	Chat           *controllers.ChatController
	Storage        *controllers.StorageController
	Hub            *realtime.Hub
}

// websocketOptions limits upgrades to the frontend's hosts.
func websocketOptions(frontend string) *websocket.AcceptOptions {
	var patterns []string
	for _, o := range strings.Split(frontend, ",") {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" {
			return &websocket.AcceptOptions{InsecureSkipVerify: true}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return &websocket.AcceptOptions{OriginPatterns: patterns}
}

// NewRouter mounts every route. auth runs before each user-facing route.
func NewRouter(cfg config.Config, h Handlers, auth Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestMiddleware)
	r.Use(middleware.Recoverer)

	r.Mount("/transcriptions/webhook", WebhookRoutes(h.Transcriptions))

	r.Group(func(api chi.Router) {
		api.Use(middlewares.CORS(cfg.FrontendURL))

		api.Mount("/health", HealthRoutes(h.Health))
		api.Mount("/users", UserRoutes(h.Profiles, auth))
		api.Mount("/animals", AnimalRoutes(h.Animals, auth))
		api.Mount("/conversations", ConversationRoutes(h.Conversations, h.Chat, auth))
		api.Mount("/consultations", ConsultationRoutes(h.Consultations, h.Chat, h.Hub, websocketOptions(cfg.FrontendURL), auth))
		api.Mount("/transcriptions", TranscriptionRoutes(h.Transcriptions, auth))
		api.Mount("/chat", ChatRoutes(h.Chat, auth))
		api.Mount("/storage", StorageRoutes(h.Storage, auth))
	})

	return r
}
