// Package server exposes the orchestrator and the mapping admin surface
// over a JSON HTTP API, plus health and Prometheus metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/parceldesk/courierhub/internal/bucketmap"
	"github.com/parceldesk/courierhub/internal/orchestrator"
	"github.com/parceldesk/courierhub/internal/reconciler"
	"github.com/parceldesk/courierhub/internal/store"
	"github.com/parceldesk/courierhub/internal/telemetry"
	"github.com/parceldesk/courierhub/pkg/courier"
)

// Server is the HTTP server for the courier aggregation service.
type Server struct {
	port       int
	orch       *orchestrator.Orchestrator
	mappings   *bucketmap.Service
	reconciler *reconciler.Reconciler
	metrics    *telemetry.Metrics
	logger     *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance. The reconciler may be nil when the
// process runs without the tracking loop; the trigger endpoint then
// answers 503.
func New(cfg Config, orch *orchestrator.Orchestrator, mappings *bucketmap.Service, rec *reconciler.Reconciler, metrics *telemetry.Metrics, logger *otelzap.Logger) *Server {
	return &Server{
		port:       cfg.Port,
		orch:       orch,
		mappings:   mappings,
		reconciler: rec,
		metrics:    metrics,
		logger:     logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /api/v1/serviceability", s.handleServiceability)
	mux.HandleFunc("POST /api/v1/shipments", s.handleCreateShipment)
	mux.HandleFunc("POST /api/v1/shipments/{awb}/cancel", s.handleCancelShipment)
	mux.HandleFunc("GET /api/v1/shipments/{awb}/track", s.handleTrackShipment)
	mux.HandleFunc("POST /api/v1/hubs", s.handleRegisterHub)
	mux.HandleFunc("POST /api/v1/pickups", s.handleSchedulePickup)
	mux.HandleFunc("POST /api/v1/ndr", s.handleNDRAction)

	mux.HandleFunc("GET /api/v1/mappings", s.handleListMappings)
	mux.HandleFunc("GET /api/v1/mappings/unmapped", s.handleUnmappedStatuses)
	mux.HandleFunc("GET /api/v1/mappings/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /api/v1/mappings/cache/invalidate", s.handleInvalidateCache)
	mux.HandleFunc("GET /api/v1/mappings/{courier}/{status}", s.handleGetMapping)
	mux.HandleFunc("PUT /api/v1/mappings/{courier}/{status}", s.handleUpdateMapping)
	mux.HandleFunc("DELETE /api/v1/mappings/{courier}/{status}", s.handleRemoveMapping)

	mux.HandleFunc("POST /api/v1/reconcile", s.handleReconcile)

	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, format string, args ...any) {
	s.writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: %s", err)
		return false
	}
	return true
}

func (s *Server) handleServiceability(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.PlanServiceabilityRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.orch.CheckServiceabilityForPlan(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "serviceability check failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type createShipmentRequest struct {
	orchestrator.CreateShipmentParams
	Vendor string `json:"vendor"`
}

func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	code, err := courier.ParseVendorCode(req.Vendor)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unknown vendor %q", req.Vendor)
		return
	}
	req.CreateShipmentParams.VendorCode = code

	res, err := s.orch.CreateShipment(r.Context(), req.CreateShipmentParams)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "hub not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "shipment creation failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancelShipment(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.orch.CancelShipment(r.Context(), r.PathValue("awb"), req.Reason)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "shipment not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "cancellation failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTrackShipment(w http.ResponseWriter, r *http.Request) {
	out, err := s.orch.TrackShipment(r.Context(), r.PathValue("awb"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "shipment not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "tracking failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

type registerHubRequest struct {
	Vendor string      `json:"vendor"`
	Hub    courier.Hub `json:"hub"`
}

func (s *Server) handleRegisterHub(w http.ResponseWriter, r *http.Request) {
	var req registerHubRequest
	if !s.decode(w, r, &req) {
		return
	}
	code, err := courier.ParseVendorCode(req.Vendor)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unknown vendor %q", req.Vendor)
		return
	}
	res := s.orch.RegisterHub(r.Context(), code, &courier.RegisterHubRequest{Hub: req.Hub})
	s.writeJSON(w, http.StatusOK, res)
}

type schedulePickupRequest struct {
	Vendor string `json:"vendor"`
	courier.SchedulePickupRequest
}

func (s *Server) handleSchedulePickup(w http.ResponseWriter, r *http.Request) {
	var req schedulePickupRequest
	if !s.decode(w, r, &req) {
		return
	}
	code, err := courier.ParseVendorCode(req.Vendor)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unknown vendor %q", req.Vendor)
		return
	}
	res := s.orch.SchedulePickup(r.Context(), code, &req.SchedulePickupRequest)
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleNDRAction(w http.ResponseWriter, r *http.Request) {
	var req courier.NDRActionRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.orch.NDRAction(r.Context(), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "shipment not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "ndr action failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	m, err := s.mappings.GetMapping(r.Context(), r.PathValue("courier"), r.PathValue("status"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "mapping not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "lookup failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

type updateMappingRequest struct {
	Bucket      int    `json:"bucket"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	var req updateMappingRequest
	if !s.decode(w, r, &req) {
		return
	}
	m := &store.CourierStatusMapping{
		CourierName: r.PathValue("courier"),
		StatusCode:  r.PathValue("status"),
		Bucket:      req.Bucket,
		Label:       req.Label,
		Description: req.Description,
	}
	if err := s.mappings.UpdateMapping(r.Context(), m); err != nil {
		if errors.Is(err, bucketmap.ErrInvalidBucket) {
			s.writeError(w, http.StatusBadRequest, "bucket %d is not a canonical bucket", req.Bucket)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "mapping update failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRemoveMapping(w http.ResponseWriter, r *http.Request) {
	err := s.mappings.RemoveMapping(r.Context(), r.PathValue("courier"), r.PathValue("status"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "mapping not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "mapping removal failed: %s", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	f := store.MappingFilter{
		CourierName: r.URL.Query().Get("courier"),
		OnlyActive:  r.URL.Query().Get("active") != "false",
	}
	if b := r.URL.Query().Get("bucket"); b != "" {
		n, err := strconv.Atoi(b)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid bucket %q", b)
			return
		}
		f.Bucket = &n
	}
	out, err := s.mappings.AllMappings(r.Context(), f)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "listing failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUnmappedStatuses(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit %q", l)
			return
		}
		limit = n
	}
	out, err := s.mappings.UnmappedStatuses(r.Context(), r.URL.Query().Get("courier"), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "listing failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.mappings.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "stats failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	courierName := r.URL.Query().Get("courier")
	var err error
	if courierName == "" {
		err = s.mappings.InvalidateAll(r.Context())
	} else {
		err = s.mappings.InvalidateCourier(r.Context(), courierName)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "invalidation failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"invalidated": true})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if s.reconciler == nil {
		s.writeError(w, http.StatusServiceUnavailable, "reconciler not running in this process")
		return
	}
	res, err := s.reconciler.Run(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "reconciliation failed: %s", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
