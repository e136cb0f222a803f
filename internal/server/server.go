// Package server exposes the place engine to the surrounding app over a thin
// JSON API, alongside health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/UnknownOlympus/forage/internal/geocoding"
	"github.com/UnknownOlympus/forage/internal/models"
	"github.com/UnknownOlympus/forage/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PlaceRegistrar is the create-or-get entry point consumed by the API.
type PlaceRegistrar interface {
	CreateOrGetWithOptions(ctx context.Context, input models.PlaceInput, opts service.Options) (*models.Place, error)
}

// Pinger reports backing-store connectivity for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the engine operations plus /healthz and /metrics routes.
type Server struct {
	httpServer *http.Server
	registrar  PlaceRegistrar
	geocoder   geocoding.ReverseGeocoder
	db         Pinger
	log        *slog.Logger
}

// NewServer creates the engine's HTTP server.
func NewServer(
	addr string,
	registrar PlaceRegistrar,
	geocoder geocoding.ReverseGeocoder,
	db Pinger,
	reg *prometheus.Registry,
	log *slog.Logger,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		registrar: registrar,
		geocoder:  geocoder,
		db:        db,
		log:       log,
	}

	mux.HandleFunc("POST /v1/places", s.handleCreateOrGetPlace)
	mux.HandleFunc("GET /v1/geocode/reverse", s.handleReverseGeocode)
	mux.HandleFunc("POST /v1/geocode/cache/clear", s.handleClearCache)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.log.Info("HTTP server starting", "addr", s.httpServer.Addr)
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

type createPlaceRequest struct {
	Name                    string  `json:"name"`
	Latitude                float64 `json:"latitude"`
	Longitude               float64 `json:"longitude"`
	AddressLine             string  `json:"address_line"`
	City                    string  `json:"city"`
	Region                  string  `json:"region"`
	PostalCode              string  `json:"postal_code"`
	Country                 string  `json:"country"`
	MapboxPlaceID           *string `json:"mapbox_place_id"`
	SuppressExternalIDMatch bool    `json:"suppress_external_id_match"`
}

type placeResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	AddressLine   string    `json:"address_line,omitempty"`
	City          string    `json:"city,omitempty"`
	Region        string    `json:"region,omitempty"`
	PostalCode    string    `json:"postal_code,omitempty"`
	Country       string    `json:"country,omitempty"`
	MapboxPlaceID *string   `json:"mapbox_place_id,omitempty"`
	Verified      bool      `json:"verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Server) handleCreateOrGetPlace(w http.ResponseWriter, r *http.Request) {
	var req createPlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !validCoordinates(req.Latitude, req.Longitude) {
		writeError(w, http.StatusBadRequest, "coordinates out of range")
		return
	}

	input := models.PlaceInput{
		Name:          req.Name,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		AddressLine:   req.AddressLine,
		City:          req.City,
		Region:        req.Region,
		PostalCode:    req.PostalCode,
		Country:       req.Country,
		MapboxPlaceID: req.MapboxPlaceID,
	}
	opts := service.Options{SuppressExternalIDMatch: req.SuppressExternalIDMatch}

	place, err := s.registrar.CreateOrGetWithOptions(r.Context(), input, opts)
	if err != nil {
		if errors.Is(err, service.ErrPlaceConflict) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.log.ErrorContext(r.Context(), "Create-or-get failed", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create place")
		return
	}

	writeJSON(w, http.StatusOK, toPlaceResponse(place))
}

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil || !validCoordinates(lat, lng) {
		writeError(w, http.StatusBadRequest, "lat and lng query parameters are required and must be valid coordinates")
		return
	}

	result := s.geocoder.Resolve(r.Context(), models.Coordinates{Latitude: lat, Longitude: lng})

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.geocoder.ClearCache()
	s.log.InfoContext(r.Context(), "Geocode cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "DB ping failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func toPlaceResponse(place *models.Place) placeResponse {
	return placeResponse{
		ID:            place.ID,
		Name:          place.Name,
		Latitude:      place.Latitude,
		Longitude:     place.Longitude,
		AddressLine:   place.AddressLine,
		City:          place.City,
		Region:        place.Region,
		PostalCode:    place.PostalCode,
		Country:       place.Country,
		MapboxPlaceID: place.MapboxPlaceID,
		Verified:      place.Verified,
		CreatedAt:     place.CreatedAt,
	}
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
