package httpd

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/attempt-service/internal/service"
	"github.com/RubachokBoss/attempt-service/pkg/utils"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type StatsProvider interface {
	GetStats() map[string]interface{}
}

type Handler struct {
	attemptService service.AttemptService
	storage        Pinger
	pool           StatsProvider
	logger         zerolog.Logger
}

func NewHandler(
	attemptService service.AttemptService,
	storage Pinger,
	pool StatsProvider,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		attemptService: attemptService,
		storage:        storage,
		pool:           pool,
		logger:         logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/assignments/{id}", func(r chi.Router) {
			r.Post("/attempts", h.BeginAttempt)
			r.Post("/submissions", h.SubmitAttempt)
		})

		api.Put("/attempts/{id}/grade", h.GradeAttempt)
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	storage := "up"
	if err := h.storage.Ping(ctx); err != nil {
		h.requestLogger(r).Error().Err(err).Msg("Storage health check failed")
		status = http.StatusServiceUnavailable
		storage = "down"
	}

	response := map[string]interface{}{
		"status":    http.StatusText(status),
		"service":   "attempt-service",
		"storage":   storage,
		"timestamp": time.Now().UTC(),
	}
	if h.pool != nil {
		response["notifications"] = h.pool.GetStats()
	}

	utils.WriteJSON(w, status, response)
}

// requestLogger prefers the logger the middleware stored in the request context.
func (h *Handler) requestLogger(r *http.Request) *zerolog.Logger {
	if log := zerolog.Ctx(r.Context()); log.GetLevel() != zerolog.Disabled {
		return log
	}
	return &h.logger
}
