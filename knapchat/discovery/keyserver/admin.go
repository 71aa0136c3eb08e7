package keyserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TheusHen/knapchat/knapchat/discovery"
	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/identity"
)

// RegisterAdminRoutes mounts the read-only HTTP view of the directory.
func (s *Server) RegisterAdminRoutes(router chi.Router) {
	router.Get("/health", s.handleHealth)
	router.Get("/keys", s.handleListKeys)
	router.Get("/keys/{client_id}", s.handleGetKey)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
}

// AdminHandler returns a router serving RegisterAdminRoutes.
func (s *Server) AdminHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	s.RegisterAdminRoutes(r)
	return r
}

// ServeAdmin serves AdminHandler on addr until ctx is done.
func (s *Server) ServeAdmin(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.AdminHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	s.log.WithField("addr", addr).Info("Admin view listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errs.Mark(errors.Wrap(err, "keyserver: admin"), errs.ErrNetwork)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListKeys(w http.ResponseWriter, req *http.Request) {
	entries, err := s.store.List(req.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetKey(w http.ResponseWriter, req *http.Request) {
	v, err := strconv.ParseInt(chi.URLParam(req, "client_id"), 10, 64)
	if err != nil || v == 0 {
		http.Error(w, "invalid client_id", http.StatusBadRequest)
		return
	}
	id := identity.ClientID(v)
	key, err := s.store.Retrieve(req.Context(), id)
	if errors.Is(err, discovery.ErrNotFound) {
		http.Error(w, msgNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, discovery.Entry{ClientID: id, PublicKey: key})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
