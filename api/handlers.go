package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"kuanb/civicgrid/apperr"
	"kuanb/civicgrid/correlate"
	"kuanb/civicgrid/feature"
)

// featureResponse is a GeoJSON Feature. Geometry is null for features whose
// source geometry was unusable.
type featureResponse struct {
	Type       string            `json:"type"`
	ID         feature.ID        `json:"id"`
	Properties map[string]any    `json:"properties"`
	Geometry   *geojson.Geometry `json:"geometry"`
}

type projectRef struct {
	ID    feature.ID `json:"id"`
	Title string     `json:"title,omitempty"`
}

type correlateRequest struct {
	Points   json.RawMessage `json:"points"`
	Polygons json.RawMessage `json:"polygons"`
}

type correlateResponse struct {
	Correlation *correlate.Result     `json:"correlation"`
	Diagnostics correlate.Diagnostics `json:"diagnostics"`
}

type nearestResponse struct {
	ChargerID feature.ID           `json:"chargerId"`
	Projects  []correlate.Neighbor `json:"projects"`
}

var errNoCatalog = apperr.New(apperr.ErrInternal, http.StatusServiceUnavailable, "no datasets loaded")

func (s *Server) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, errNoCatalog)
		return
	}
	s.writeJSON(w, http.StatusOK, s.catalog.Result)
}

// handleProject returns a project with the chargers it contains.
func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, errNoCatalog)
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	p, ok := s.catalog.Project(id)
	if !ok {
		s.writeError(w, fmt.Errorf("project %d: %w", id, apperr.ErrNotFound))
		return
	}
	chargers, _ := s.catalog.Result.PointsIn(id)

	props := cloneProperties(p.Properties)
	props["chargers"] = chargers
	s.writeJSON(w, http.StatusOK, newFeatureResponse(id, p.Geometry, props))
}

// handleCharger returns a charger with the projects containing it.
func (s *Server) handleCharger(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, errNoCatalog)
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, ok := s.catalog.Charger(id)
	if !ok {
		s.writeError(w, fmt.Errorf("charger %d: %w", id, apperr.ErrNotFound))
		return
	}
	projectIDs, _ := s.catalog.Result.PolygonsContaining(id)
	refs := make([]projectRef, 0, len(projectIDs))
	for _, pid := range projectIDs {
		ref := projectRef{ID: pid}
		if p, ok := s.catalog.Project(pid); ok {
			ref.Title = p.Title()
		}
		refs = append(refs, ref)
	}

	props := cloneProperties(c.Properties)
	props["projects"] = refs
	s.writeJSON(w, http.StatusOK, newFeatureResponse(id, c.Geometry, props))
}

// handleNearest lists the projects closest to a charger.
func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, errNoCatalog)
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit := s.nearestLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxNearestLimit {
			s.writeError(w, apperr.Newf(apperr.ErrInvalidInput, http.StatusBadRequest,
				"limit must be between 1 and %d", maxNearestLimit))
			return
		}
		limit = n
	}
	c, ok := s.catalog.Charger(id)
	if !ok {
		s.writeError(w, fmt.Errorf("charger %d: %w", id, apperr.ErrNotFound))
		return
	}
	pt, ok := c.Point()
	if !ok {
		s.writeError(w, apperr.Newf(apperr.ErrInvalidInput, http.StatusUnprocessableEntity,
			"charger %d has no location", id))
		return
	}
	neighbors := s.catalog.Locator.Nearest(pt, limit)
	if neighbors == nil {
		neighbors = []correlate.Neighbor{}
	}
	s.writeJSON(w, http.StatusOK, nearestResponse{ChargerID: id, Projects: neighbors})
}

// handleCorrelate correlates two posted feature collections without
// touching the loaded catalog.
func (s *Server) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	defer r.Body.Close()

	var req correlateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, apperr.New(apperr.ErrInvalidInput, http.StatusRequestEntityTooLarge, "request body too large"))
			return
		}
		s.writeError(w, apperr.Newf(apperr.ErrInvalidInput, http.StatusBadRequest, "invalid request body: %v", err))
		return
	}
	if len(req.Points) == 0 || len(req.Polygons) == 0 {
		s.writeError(w, apperr.New(apperr.ErrInvalidInput, http.StatusBadRequest, "points and polygons are required"))
		return
	}
	points, err := feature.ParsePoints(req.Points)
	if err != nil {
		s.writeError(w, fmt.Errorf("points: %w", err))
		return
	}
	polygons, err := feature.ParsePolygons(req.Polygons)
	if err != nil {
		s.writeError(w, fmt.Errorf("polygons: %w", err))
		return
	}

	c := s.correlator
	if v := r.URL.Query().Get("strategy"); v != "" {
		strategy, err := correlate.ParseStrategy(v)
		if err != nil {
			s.writeError(w, apperr.New(apperr.ErrInvalidInput, http.StatusBadRequest, err.Error()))
			return
		}
		c = correlate.New(s.logger, correlate.WithStrategy(strategy))
	}

	s.logger.Info("processing correlate request",
		zap.Int("points", len(points)),
		zap.Int("polygons", len(polygons)),
	)
	res, err := c.Correlate(r.Context(), points, polygons)
	if s.metrics != nil {
		s.metrics.ObserveCorrelation(c.Strategy(), res)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, correlateResponse{Correlation: res, Diagnostics: res.Diagnostics()})
}

func parseID(raw string) (feature.ID, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, apperr.Newf(apperr.ErrInvalidInput, http.StatusBadRequest, "invalid id %q", raw)
	}
	return feature.ID(n), nil
}

func cloneProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props)+1)
	maps.Copy(out, props)
	return out
}

func newFeatureResponse(id feature.ID, g orb.Geometry, props map[string]any) featureResponse {
	resp := featureResponse{Type: "Feature", ID: id, Properties: props}
	if g != nil {
		resp.Geometry = geojson.NewGeometry(g)
	}
	return resp
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatusCode(err)
	msg := err.Error()
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": msg})
}
