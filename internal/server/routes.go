package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/scoreboard/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Scoreboard API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, d.Checks).Routes())
	r.Get("/ws/display", handleDisplayStream(d.Display, logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", handleState(d.Ledger, logger))
		r.Get("/events", handleEvents(d.Ledger, d.Events, logger))
		r.Get("/display/snapshot", handleDisplaySnapshot(d.Display))
		r.Get("/display/qr.png", handleDisplayQR(d.PublicURL))

		if d.Admins != nil {
			r.Post("/admin/login", handleAdminLogin(d.Admins, logger))
			r.Post("/admin/logout", handleAdminLogout(d.Admins))
		} else {
			logger.Warn("admin authentication disabled")
		}

		// Mutations.
		r.Group(func(r chi.Router) {
			if d.Admins != nil {
				r.Use(adminAuthMiddleware(d.Admins))
				r.Get("/admin/me", handleAdminMe())
			}
			r.Post("/players", handleAddPlayer(d.Ledger, logger))
			r.Delete("/players", handleRemovePlayers(d.Ledger, logger))
			r.Post("/players/{playerID}/scores", handleAddScore(d.Ledger, logger))
			r.Post("/rounds/next", handleNextRound(d.Ledger, logger))
			r.Post("/rounds/reset", handleResetRound(d.Ledger, logger))
			r.Post("/reset", handleResetAll(d.Ledger, logger))
		})
	})

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			logger.Info("serving pages", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
