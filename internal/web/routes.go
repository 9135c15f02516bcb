package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/jkubale/namerecall/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	peopleHandler := handlers.NewPeopleHandler(s.deps.People, s.deps.Progress, s.deps.Detector, s.deps.Encoder)
	scanHandler := handlers.NewScanHandler(s.deps.Orchestrator, s.deps.People, s.deps.Encoder)
	quizHandler := handlers.NewQuizHandler(s.deps.People, s.deps.Progress)
	statsHandler := handlers.NewStatsHandler(s.deps.People, s.deps.Progress)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// People
		r.Get("/people", peopleHandler.List)
		r.Post("/people", peopleHandler.Create)
		r.Get("/people/{id}", peopleHandler.Get)
		r.Put("/people/{id}", peopleHandler.Update)
		r.Delete("/people/{id}", peopleHandler.Delete)
		r.Post("/people/{id}/samples", peopleHandler.AddSample)
		r.Delete("/people/{id}/samples", peopleHandler.DeleteSamples)
		r.Get("/people/{id}/reviews", peopleHandler.Reviews)

		// Ephemeral scan
		r.Get("/scan", scanHandler.State)
		r.Post("/scan/photo", scanHandler.ScanPhoto)
		r.Post("/scan/commit", scanHandler.Commit)
		r.Post("/scan/cancel", scanHandler.Cancel)
		r.Post("/scan/reset", scanHandler.Reset)

		// Quiz sessions
		r.Post("/quiz/sessions", quizHandler.Start)
		r.Get("/quiz/sessions/{id}", quizHandler.Current)
		r.Post("/quiz/sessions/{id}/answer", quizHandler.Answer)
		r.Post("/quiz/sessions/{id}/skip", quizHandler.Skip)
		r.Get("/quiz/sessions/{id}/summary", quizHandler.Summary)

		// Stats
		r.Get("/stats", statsHandler.Get)
	})
}
