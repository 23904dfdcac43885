package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/reviewlens/internal/analysis"
	"github.com/law-makers/reviewlens/internal/jobs"
	"github.com/law-makers/reviewlens/internal/platform"
	"github.com/law-makers/reviewlens/internal/store"
)

// scrapeRequest is the POST /api/scrape body.
type scrapeRequest struct {
	URL        string `json:"url"`
	MaxReviews int    `json:"max_reviews"`
}

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Response encode failed")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorBody{Error: msg})
}

// respondDomainError maps the module's sentinel errors onto status codes.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, platform.ErrUnsupported):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, jobs.ErrJobNotFound), errors.Is(err, store.ErrProductNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, jobs.ErrInvalidJobState):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, analysis.ErrUnknownStage):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, jobs.ErrQueueFull):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func productIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScrapeCreate(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	job, err := s.tracker.Create(r.Context(), req.URL, req.MaxReviews)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleScrapeStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.tracker.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleScrapeCancel(w http.ResponseWriter, r *http.Request) {
	job, err := s.tracker.Cancel(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleProductList(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (s *Server) handleProductGet(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := s.store.GetProduct(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (s *Server) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := s.store.DeleteProduct(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAnalysisStage(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	force := r.URL.Query().Get("force_refresh") == "true"

	payload, err := s.runner.Stage(r.Context(), id, chi.URLParam(r, "stage"), force)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload) //nolint:errcheck
}

func (s *Server) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := s.runner.Reanalyze(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reanalyzed"})
}
