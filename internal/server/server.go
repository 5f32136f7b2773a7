// Package server exposes the curated artist, gig, timeline and venue views
// as a JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cdtdelta/gigtrack/internal/achievements"
	"github.com/cdtdelta/gigtrack/internal/curate"
	"github.com/cdtdelta/gigtrack/internal/database"
	"github.com/cdtdelta/gigtrack/internal/logging"
	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/query"
)

// Service is the application surface the API serves.
type Service interface {
	Artists(q query.Query) (curate.Result[model.Artist], error)
	Artist(id int64) (*model.ArtistDetail, error)
	Gigs(q query.Query, scope query.Scope) (curate.Result[model.Gig], error)
	Timeline(q query.Query, scope query.Scope) (curate.Result[model.Gig], error)
	Venues(q query.Query, by string) (curate.Result[model.Venue], error)
	Locations() ([]model.Location, error)
	Genres() ([]string, error)
	YearHistogram() ([]database.YearBucket, error)
	Stats() (achievements.Stats, error)
	Achievements() ([]achievements.Achievement, error)
	ToggleFavourite(artistID int64) (bool, error)
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc    Service
	log    logging.Logger
	router *chi.Mux
}

// New builds the router.
func New(svc Service, log logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{svc: svc, log: log.With("component", "server")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/artists", s.handleArtists)
		r.Get("/artists/{id}", s.handleArtist)
		r.Post("/artists/{id}/favourite", s.handleToggleFavourite)
		r.Get("/gigs", s.handleGigs)
		r.Get("/timeline", s.handleTimeline)
		r.Get("/venues", s.handleVenues)
		r.Get("/locations", s.handleLocations)
		r.Get("/genres", s.handleGenres)
		r.Get("/years", s.handleYears)
		r.Get("/stats", s.handleStats)
		r.Get("/achievements", s.handleAchievements)
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// -- Handlers --

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleArtists(w http.ResponseWriter, r *http.Request) {
	q, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Artists(q)
	s.respond(w, res, err)
}

func (s *Server) handleArtist(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	detail, err := s.svc.Artist(id)
	s.respond(w, detail, err)
}

// handleGigs serves the gigs list. Besides the curation parameters it
// accepts ?year, ?city, ?country, ?place, ?festivals, ?min_rating, ?from
// and ?to, which narrow the gigs loaded from the store.
func (s *Server) handleGigs(w http.ResponseWriter, r *http.Request) {
	q, scope, ok := s.parseScopedQuery(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Gigs(q, scope)
	s.respond(w, res, err)
}

// handleTimeline serves gigs grouped by year, scoped like handleGigs.
// ?year=2019 loads a single year.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	q, scope, ok := s.parseScopedQuery(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Timeline(q, scope)
	s.respond(w, res, err)
}

// handleVenues serves the venues visited. ?by=city makes ?category match
// cities instead of countries.
func (s *Server) handleVenues(w http.ResponseWriter, r *http.Request) {
	q, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	by := r.URL.Query().Get("by")
	if _, err := curate.VenueLensBy(by); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.Venues(q, by)
	s.respond(w, res, err)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := s.svc.Locations()
	s.respond(w, locs, err)
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.svc.Genres()
	s.respond(w, genres, err)
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.svc.YearHistogram()
	s.respond(w, years, err)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats()
	s.respond(w, stats, err)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Achievements()
	s.respond(w, list, err)
}

func (s *Server) handleToggleFavourite(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	fav, err := s.svc.ToggleFavourite(id)
	s.respond(w, map[string]any{"id": id, "favourite": fav}, err)
}

// -- Helpers --

func (s *Server) parseQuery(w http.ResponseWriter, r *http.Request) (query.Query, bool) {
	q, err := query.FromValues(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return query.Query{}, false
	}
	return q, true
}

func (s *Server) parseScopedQuery(w http.ResponseWriter, r *http.Request) (query.Query, query.Scope, bool) {
	q, ok := s.parseQuery(w, r)
	if !ok {
		return query.Query{}, query.Scope{}, false
	}
	scope, err := query.ScopeFromValues(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return query.Query{}, query.Scope{}, false
	}
	return q, scope, true
}

func (s *Server) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid artist id")
		return 0, false
	}
	return id, true
}

func (s *Server) respond(w http.ResponseWriter, body any, err error) {
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, body)
	case errors.Is(err, database.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("request failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("encoding response", "err", err)
	}
}
