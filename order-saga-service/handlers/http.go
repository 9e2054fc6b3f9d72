package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/draftea/order-fulfillment/order-saga-service/application"
	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SagaHandlers contains saga HTTP handlers
type SagaHandlers struct {
	requestFulfillment *application.RequestOrderFulfillment
	executeSaga        *application.ExecuteSaga
	getSaga            *application.GetSaga
	getSagaHistory     *application.GetSagaHistory
	breakerStats       *application.GetCircuitBreakerStats
	logger             *zap.Logger
}

// NewSagaHandlers creates new saga handlers
func NewSagaHandlers(
	requestFulfillment *application.RequestOrderFulfillment,
	executeSaga *application.ExecuteSaga,
	getSaga *application.GetSaga,
	getSagaHistory *application.GetSagaHistory,
	breakerStats *application.GetCircuitBreakerStats,
	logger *zap.Logger,
) *SagaHandlers {
	return &SagaHandlers{
		requestFulfillment: requestFulfillment,
		executeSaga:        executeSaga,
		getSaga:            getSaga,
		getSagaHistory:     getSagaHistory,
		breakerStats:       breakerStats,
		logger:             logger,
	}
}

// RequestFulfillment starts a saga for a stored order and queues its execution
func (h *SagaHandlers) RequestFulfillment(w http.ResponseWriter, r *http.Request) {
	var cmd application.RequestOrderFulfillmentCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.requestFulfillment.Execute(r.Context(), &cmd)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, response)
}

// ExecuteSaga runs a saga synchronously and returns its execution metrics
func (h *SagaHandlers) ExecuteSaga(w http.ResponseWriter, r *http.Request) {
	sagaID, err := models.NewID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid saga ID", http.StatusBadRequest)
		return
	}

	metrics, err := h.executeSaga.Execute(r.Context(), sagaID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}

// GetSaga handles saga retrieval requests
func (h *SagaHandlers) GetSaga(w http.ResponseWriter, r *http.Request) {
	saga, err := h.getSaga.Execute(r.Context(), &application.GetSagaQuery{
		SagaID: chi.URLParam(r, "id"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saga)
}

// GetSagaEvents lists the events recorded for a saga
func (h *SagaHandlers) GetSagaEvents(w http.ResponseWriter, r *http.Request) {
	history, err := h.getSagaHistory.Execute(r.Context(), &application.GetSagaQuery{
		SagaID: chi.URLParam(r, "id"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// GetCircuitBreakers reports every dependency breaker
func (h *SagaHandlers) GetCircuitBreakers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.breakerStats.Execute())
}

// Health reports liveness
func (h *SagaHandlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RegisterRoutes registers saga routes
func (h *SagaHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sagas", func(r chi.Router) {
			r.Post("/", h.RequestFulfillment)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSaga)
				r.Get("/events", h.GetSagaEvents)
				r.Post("/execute", h.ExecuteSaga)
			})
		})
		r.Get("/circuit-breakers", h.GetCircuitBreakers)
	})
}

func (h *SagaHandlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSagaNotFound), errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSagaAlreadyFinished):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
