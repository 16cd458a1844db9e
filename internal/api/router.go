package api

import (
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds settings for the API router.
type RouterConfig struct {
	// BackendAPIKey must be provided in X-API-Key or Authorization: Bearer <key>.
	// If empty, auth middleware is skipped (development mode).
	BackendAPIKey string

	// CorsAllowedOrigins is a comma-separated list of allowed origins.
	// If empty, defaults to "*" (development mode).
	CorsAllowedOrigins string
}

func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// CORS: restrict origins when configured, otherwise allow all (dev mode)
	allowedOrigins := []string{"*"}
	if cfg.CorsAllowedOrigins != "" {
		origins := strings.Split(cfg.CorsAllowedOrigins, ",")
		trimmed := make([]string, 0, len(origins))
		for _, o := range origins {
			if s := strings.TrimSpace(o); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			allowedOrigins = trimmed
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check — public, no auth required
	r.Get("/health", h.Health)

	// Generated files — public, consumed by <audio>/<img> tags that cannot
	// send custom headers
	r.Get("/audio/{filename}", h.ServeAudio)
	r.Get("/image/{filename}", h.ServeImage)
	r.Get("/image/{filename}/thumb", h.ServeThumbnail)
	r.Get("/text/{filename}", h.ServeText)

	// API routes — protected by API key auth
	r.Route("/v1", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}

		// Narrations
		r.Post("/narrations", h.CreateNarrations)
		r.Get("/narrations", h.ListNarrations)
		r.Get("/narrations/{id}", h.GetNarration)
		r.Delete("/narrations/{id}", h.DeleteNarration)
		r.Get("/narrations/{id}/debug/jobs", h.GetNarrationJobs)

		// Library — the on-disk view, independent of database rows
		r.Get("/library", h.ListLibrary)

		// Generation options
		r.Get("/speakers", h.ListSpeakers)
		r.Get("/models/llm", h.ListLLMModels)
		r.Get("/models/sd-checkpoints", h.ListSDCheckpoints)
		r.Get("/models/sd-styles", h.ListSDStyles)
		r.Get("/prompts/random", h.RandomPrompt)

		// Presets
		r.Get("/presets", h.ListPresets)
		r.Post("/presets", h.CreatePreset)
		r.Get("/presets/{id}", h.GetPreset)
		r.Delete("/presets/{id}", h.DeletePreset)
	})

	return r
}
