// Package api exposes the cached data and the resolvers over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/twfin/twfin/internal/marketcap"
	"github.com/twfin/twfin/internal/model"
	"github.com/twfin/twfin/internal/revenue"
	"github.com/twfin/twfin/internal/store"
	"github.com/twfin/twfin/internal/twcal"
)

// RevenueResolver is the revenue surface the handlers need.
type RevenueResolver interface {
	ResolveSince(ctx context.Context, code string, start twcal.Period) ([]revenue.PeriodResult, error)
}

// MarketCapResolver is the market-cap surface the handlers need.
type MarketCapResolver interface {
	Resolve(ctx context.Context, code string) (*model.MarketCapSnapshot, error)
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	store     store.Store
	revenue   RevenueResolver
	marketcap MarketCapResolver
}

// NewServer creates an API server over the given store and resolvers.
func NewServer(st store.Store, rev RevenueResolver, mc MarketCapResolver) *Server {
	return &Server{store: st, revenue: rev, marketcap: mc}
}

// Router builds the chi router with middleware and all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/companies", s.handleListCompanies)
		r.Get("/revenue/{code}", s.handleRevenue)
		r.Get("/marketcap/{code}", s.handleMarketCap)
	})

	return r
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// requestID tags every request with a UUID for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if companies == nil {
		companies = []model.Company{}
	}
	writeJSON(w, http.StatusOK, companies)
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	since := r.URL.Query().Get("since")
	if since == "" {
		writeError(w, r, http.StatusBadRequest, eris.New("since query parameter is required"))
		return
	}
	start, err := twcal.ParsePeriod(since)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, eris.New("since must be YYYY-MM"))
		return
	}

	if ok := s.requireCompany(w, r, code); !ok {
		return
	}

	results, err := s.revenue.ResolveSince(r.Context(), code, start)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"company": code,
		"periods": results,
	})
}

func (s *Server) handleMarketCap(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if ok := s.requireCompany(w, r, code); !ok {
		return
	}

	snap, err := s.marketcap.Resolve(r.Context(), code)
	if err != nil {
		if eris.Is(err, marketcap.ErrDataUnavailable) {
			writeError(w, r, http.StatusBadGateway, err)
			return
		}
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// requireCompany rejects requests for codes that were never seeded, so typos
// don't turn into upstream traffic.
func (s *Server) requireCompany(w http.ResponseWriter, r *http.Request, code string) bool {
	company, err := s.store.GetCompany(r.Context(), code)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return false
	}
	if company == nil {
		writeError(w, r, http.StatusNotFound, eris.Errorf("unknown company %s", code))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		id, _ := r.Context().Value(requestIDKey).(string)
		zap.L().Error("request failed",
			zap.String("request_id", id),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
