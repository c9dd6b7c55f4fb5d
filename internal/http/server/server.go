package server

import (
	"context"
	"docingest/internal/config"
	"docingest/internal/http/handlers/auth"
	"docingest/internal/http/handlers/docs"
	"docingest/internal/http/handlers/session"
	"docingest/internal/http/middleware"
	"docingest/internal/models"
	utils "docingest/internal/utils/http_errors"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Limits are request-level knobs that do not belong to the listener itself.
type Limits struct {
	MaxUploadSize int64
	AdminToken    string
}

func StartServer(
	ctx context.Context,
	cfg *config.HTTPServer,
	log *slog.Logger,
	limits Limits,
	documentService DocumentService,
	authService AuthService,
) error {
	srv := &http.Server{
		Addr:         cfg.Address,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
		Handler:      NewRouter(log, limits, documentService, authService),
	}

	errChan := make(chan error, 1)

	go func() {
		log.Info("server started", slog.String("address", cfg.Address))
		if err := srv.ListenAndServe(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				log.Info("server closed gracefully")
			} else {
				log.Error("could not start server:", "error", err)
				errChan <- err
			}
		}
	}()
	select {
	case <-ctx.Done():
		log.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("error shutting down server", "error", err)
			return err
		}
		log.Info("server exited gracefully")
		return nil
	case err := <-errChan:
		return err
	}
}

func NewRouter(log *slog.Logger, limits Limits, doc DocumentService, as AuthService) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Logger(log))

	setupRoutes(r, log, limits, doc, as)

	return r
}

func setupRoutes(r *mux.Router, log *slog.Logger, limits Limits, doc DocumentService, as AuthService) {
	// POST instant token
	r.HandleFunc("/api/auth/instant-token", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		auth.InstantToken(ctx, log, w, r, as)
	}).Methods(http.MethodPost)

	// DELETE session
	r.HandleFunc("/api/auth/{token}", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		vars := mux.Vars(r)
		token := vars["token"]
		session.Delete(ctx, log, w, r, token, as)
	}).Methods(http.MethodDelete)

	// POST doc
	r.HandleFunc("/api/documents/upload", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		docs.Upload(ctx, log, w, r, limits.MaxUploadSize, doc)
	}).Methods(http.MethodPost)

	admin := r.NewRoute().Subrouter()

	admin.Use(middleware.AdminToken(log, limits.AdminToken))

	// PATCH doc status
	admin.HandleFunc("/api/documents/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		vars := mux.Vars(r)
		docID := vars["id"]
		docs.UpdateStatus(ctx, log, w, r, docID, doc)
	}).Methods(http.MethodPatch)

	protected := r.NewRoute().Subrouter()

	protected.Use(middleware.Auth(log, as))

	// GET docs
	protected.HandleFunc("/api/documents", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		docs.Get(ctx, log, w, r, doc)
	}).Methods(http.MethodGet)

	// GET docs stream
	protected.HandleFunc("/api/documents/stream", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		docs.Stream(ctx, log, w, r, doc)
	}).Methods(http.MethodGet)

	// GET doc by id
	protected.HandleFunc("/api/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		vars := mux.Vars(r)
		docID := vars["id"]
		docs.GetByID(ctx, log, w, r, docID, doc)
	}).Methods(http.MethodGet)

	// Not allowed
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSONError(w, http.StatusMethodNotAllowed, models.ErrMethodNotAllowed.Error())
	})
}
