package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes(deps Deps) {
	identitiesHandler := handlers.NewIdentitiesHandler(deps.Gallery, deps.Extractor)
	recognizeHandler := handlers.NewRecognizeHandler(deps.Coordinator, deps.Extractor)
	attendanceHandler := handlers.NewAttendanceHandler(deps.Ledger)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/identities", identitiesHandler.List)
		r.Post("/identities", identitiesHandler.Enroll)

		r.Post("/recognize", recognizeHandler.Recognize)

		r.Get("/attendance", attendanceHandler.List)
	})
}
