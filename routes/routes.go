package routes

import (
	"github.com/Dosada05/pong-platform/handlers"
	"github.com/Dosada05/pong-platform/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Handlers struct {
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
	WebSocket  *handlers.WebSocketHandler
}

func SetupRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/tournaments", func(r chi.Router) {
			// bracket and tournament views are public
			r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
			r.Get("/{tournamentID}/bracket", h.Tournament.GetBracketHandler)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(jwtSecret))

				r.Post("/", h.Tournament.CreateHandler)
				r.Post("/{tournamentID}/join", h.Tournament.JoinHandler)
				r.Post("/{tournamentID}/start", h.Tournament.StartHandler)
				r.Post("/matches/{matchID}/result", h.Tournament.SubmitResultHandler)
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))

			r.Post("/challenges", h.Match.CreateChallengeHandler)
			r.Post("/{matchID}/result", h.Match.SubmitResultHandler)
			r.Get("/mine", h.Match.ListMineHandler)
		})
	})

	// the websocket endpoint authenticates via token query parameter
	router.Get("/ws", h.WebSocket.ServeWS)

	return router
}
