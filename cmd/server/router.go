package main

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seagrid/asyncmedia/internal/api"
	apiMiddleware "github.com/seagrid/asyncmedia/internal/api/middleware"
	"github.com/seagrid/asyncmedia/internal/platform/postgres"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	imageStore := postgres.NewImageStore(app.db, app.logger)
	browseHandler := api.NewBrowseHandler(imageStore, app.batches, app.logger)
	mediaHandler := api.NewMediaHandler(app.resolver, app.logger)

	r.Get("/browse", browseHandler.Browse)

	r.Route("/async_media", func(r chi.Router) {
		r.Post("/start", mediaHandler.StartGeneration)
		r.Get("/status", mediaHandler.Status)
	})

	// Browser-side assets, including the polling script.
	staticFS, err := fs.Sub(api.StaticFS, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
