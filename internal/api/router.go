package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check (no auth required)
	r.Get("/api/health", s.handleHealth)

	// End-user surface: separate auth so panels don't need admin access.
	r.Group(func(r chi.Router) {
		r.Use(s.userAuthMiddleware)
		r.Get(s.cfg.WebSocket.Path, s.handleWebSocket)
	})

	// Admin API
	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/meta", s.handleMeta)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/dedupe", s.handleDedupe)
		})

		r.Route("/lights", func(r chi.Router) {
			r.Post("/", s.handleAddLight)
			r.Route("/{addr}", func(r chi.Router) {
				r.Patch("/", s.handlePatchLight)
				r.Delete("/", s.handleDeleteLight)
				r.Post("/command", s.handleLightCommand)
			})
		})

		r.Route("/covers", func(r chi.Router) {
			r.Post("/", s.handleAddCover)
			r.Route("/{addr}", func(r chi.Router) {
				r.Patch("/", s.handlePatchCover)
				r.Delete("/", s.handleDeleteCover)
				r.Post("/command", s.handleCoverCommand)
				r.Post("/calibrate", s.handleCalibrate)
			})
		})

		r.Route("/sensors/{kind}", func(r chi.Router) {
			r.Post("/", s.handleAddSensor)
			r.Route("/{addr}", func(r chi.Router) {
				r.Patch("/", s.handlePatchSensor)
				r.Delete("/", s.handleDeleteSensor)
			})
		})

		r.Route("/dry_contacts", func(r chi.Router) {
			r.Post("/", s.handleAddDryContact)
			r.Route("/{addr}", func(r chi.Router) {
				r.Patch("/", s.handlePatchDryContact)
				r.Delete("/", s.handleDeleteDryContact)
			})
		})

		r.Route("/cover_groups", func(r chi.Router) {
			r.Get("/", s.handleListCoverGroups)
			r.Post("/", s.handleUpsertCoverGroup)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", s.handleUpsertCoverGroup)
				r.Delete("/", s.handleDeleteCoverGroup)
				r.Post("/command", s.handleCoverGroupCommand)
			})
		})

		r.Route("/sniffer", func(r chi.Router) {
			r.Post("/start", s.handleSnifferStart)
			r.Post("/stop", s.handleSnifferStop)
			r.Get("/status", s.handleSnifferStatus)
			r.Get("/recent", s.handleSnifferRecent)
		})

		r.Get("/history/{kind}/{addr}", s.handleHistory)

		r.Get("/backup", s.handleBackup)
		r.Post("/restore", s.handleRestore)

		r.Get("/ui", s.handleGetUI)
		r.Put("/ui", s.handleSetUI)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

// handleMeta reports gateway and broker connectivity.
func (s *Server) handleMeta(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.core.GetMeta())
}
