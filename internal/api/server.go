// Package api exposes the read-only catalog queries and mounts the chat
// channel and metrics on one router.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/avvvet/storebuddy/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Options wires the non-catalog parts of the router. Nil handlers are not mounted.
type Options struct {
	Chat    http.Handler
	Metrics http.Handler
	Origins []string
	Logger  *zap.Logger
}

type server struct {
	store  *catalog.Store
	logger *zap.Logger
}

// NewHandler builds the HTTP surface of the gateway.
func NewHandler(store *catalog.Store, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &server{store: store, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors(OriginAllowed(opts.Origins)))

	r.Get("/", s.welcome)
	r.Get("/healthz", s.health)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}
	if opts.Chat != nil {
		r.Handle("/ws/chat", opts.Chat)
	}

	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/", s.inventory)
		r.Get("/count-by-brand", s.countByBrand)
		r.Get("/count-by-category", s.countByCategory)
		r.Get("/count-by-price-category", s.countByPriceCategory)
		r.Get("/sort-by-quantity", s.sortByQuantity)
		r.Get("/sort-by-price", s.sortByPrice)
		r.Get("/{brand}", s.byBrand)
	})
	return r
}

func (s *server) welcome(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the ChatBot Backend!"})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "products": len(s.store.All())})
}

func (s *server) inventory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.All())
}

func (s *server) countByBrand(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.CountByBrand())
}

func (s *server) countByCategory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.CountByCategory())
}

func (s *server) countByPriceCategory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.CountByPriceCategory())
}

func (s *server) sortByQuantity(w http.ResponseWriter, r *http.Request) {
	descending, ok := s.descending(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.SortedByQuantity(descending))
}

func (s *server) sortByPrice(w http.ResponseWriter, r *http.Request) {
	descending, ok := s.descending(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.SortedByPrice(descending))
}

func (s *server) byBrand(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.FindByBrand(chi.URLParam(r, "brand"))
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Item not found"})
		return
	}
	if err != nil {
		s.logger.Error("brand lookup failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// descending reads ?descending=, defaulting to true.
func (s *server) descending(w http.ResponseWriter, r *http.Request) (bool, bool) {
	raw := r.URL.Query().Get("descending")
	if raw == "" {
		return true, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "descending must be a boolean"})
		return false, false
	}
	return v, true
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", zap.Error(err))
	}
}

// OriginAllowed matches an Origin header against a list where "*" allows all.
func OriginAllowed(origins []string) func(origin string) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(string) bool { return true }
		}
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	return func(origin string) bool {
		_, ok := allowed[origin]
		return ok
	}
}

func cors(allow func(origin string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && allow(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
