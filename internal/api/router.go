package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/obsidian-cms/obsidian/internal/api/handlers"
	"github.com/obsidian-cms/obsidian/internal/api/middleware"
	"github.com/obsidian-cms/obsidian/internal/service"
)

func NewRouter(services *service.Services) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth)
	nodeHandler := handlers.NewNodeHandler(services.Entities)
	relationshipHandler := handlers.NewRelationshipHandler(services.Entities)
	fileHandler := handlers.NewFileHandler(services.Files)
	commentHandler := handlers.NewCommentHandler(services.Comments)
	pageHandler := handlers.NewPageHandler(services.Pages)

	// Reads allow guests; gated entities still need a token. Writes always
	// need one.
	optionalAuth := middleware.OptionalAuth(services.Auth)
	requireAuth := middleware.Auth(services.Auth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/token", authHandler.Token)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
			})
		})

		r.Route("/graph/nodes", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/", nodeHandler.List)
				r.Get("/search", nodeHandler.Search)
				r.Get("/{uuid}", nodeHandler.Get)
				r.Get("/{uuid}/comments", commentHandler.ListFor)
			})
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", nodeHandler.Create)
				r.Put("/{uuid}", nodeHandler.Update)
				r.Delete("/{uuid}", nodeHandler.Delete)
			})
		})

		r.Route("/graph/relationships", func(r chi.Router) {
			r.With(optionalAuth).Get("/{uuid}", relationshipHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", relationshipHandler.Create)
				r.Put("/{uuid}", relationshipHandler.Update)
				r.Delete("/{uuid}", relationshipHandler.Delete)
			})
		})

		r.Route("/files", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/", fileHandler.List)
				r.Get("/{name}", fileHandler.Get)
				r.Get("/{name}/content", fileHandler.Download)
			})
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", fileHandler.Upload)
				r.Delete("/{name}", fileHandler.Delete)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(optionalAuth).Get("/{uuid}", commentHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", commentHandler.Create)
				r.Put("/{uuid}", commentHandler.Update)
				r.Delete("/{uuid}", commentHandler.Delete)
			})
		})

		r.Route("/pages", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/", pageHandler.List)
				r.Get("/resolve", pageHandler.Resolve)
				r.Get("/{title}", pageHandler.GetByTitle)
			})
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", pageHandler.Create)
				r.Post("/relink", pageHandler.Relink)
				r.Post("/{uuid}/urls", pageHandler.AddURL)
				r.Put("/{uuid}", pageHandler.Update)
				r.Delete("/{uuid}", pageHandler.Delete)
			})
		})
	})

	return r
}
