// Package httpadapter serves the fee quote API alongside health, readiness
// and metrics endpoints.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

// Quoter computes delivery fee quotes.
type Quoter interface {
	Quote(ctx context.Context, city, vehicleType string) (domain.Quote, error)
}

// ObservationLister returns the latest observation of every catalog station.
type ObservationLister interface {
	ListLatest(ctx context.Context) ([]domain.Observation, error)
}

// Server exposes the quote API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer   *http.Server
	quoter       Quoter
	observations ObservationLister
	logger       *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the /api routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, quoter Quoter, observations ObservationLister, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		quoter:       quoter,
		observations: observations,
		logger:       logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/delivery-fee", s.handleDeliveryFee)
	mux.HandleFunc("GET /deliveryFee", s.handleDeliveryFee) // legacy path
	mux.HandleFunc("GET /api/observations", s.handleObservations)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type feeResponse struct {
	Status      string        `json:"status"`
	DeliveryFee *domain.Quote `json:"deliveryFee,omitempty"`
}

type observationsResponse struct {
	Observations []domain.Observation `json:"observations"`
}

func (s *Server) handleDeliveryFee(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	vehicleType := r.URL.Query().Get("vehicleType")
	if city == "" || vehicleType == "" {
		writeJSON(w, http.StatusBadRequest, feeResponse{Status: "ERROR - city and vehicleType are required"})
		return
	}

	q, err := s.quoter.Quote(r.Context(), city, vehicleType)
	if err != nil {
		status, msg := errorStatus(err)
		writeJSON(w, status, feeResponse{Status: "ERROR - " + msg})
		return
	}
	writeJSON(w, http.StatusOK, feeResponse{Status: "OK", DeliveryFee: &q})
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	obs, err := s.observations.ListLatest(r.Context())
	if err != nil {
		s.logger.Error("list observations failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "ERROR - Internal error"})
		return
	}
	if obs == nil {
		obs = []domain.Observation{}
	}
	writeJSON(w, http.StatusOK, observationsResponse{Observations: obs})
}

// errorStatus maps quote errors to an HTTP status and client message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnknownCity):
		return http.StatusBadRequest, "Invalid city"
	case errors.Is(err, domain.ErrUnknownVehicleType):
		return http.StatusBadRequest, "Invalid vehicle type"
	case errors.Is(err, domain.ErrForbiddenVehicleType):
		return http.StatusBadRequest, "Usage of selected vehicle type is forbidden"
	case errors.Is(err, domain.ErrNoWeatherData):
		return http.StatusServiceUnavailable, "No weather data available"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
