package api

import (
	"net/http"
	"time"

	"habit_hero/internal/api/handler"
	"habit_hero/internal/api/middleware"
	"habit_hero/internal/app/service"
	"habit_hero/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
)

type Services struct {
	Auth        *service.AuthService
	User        *service.UserService
	Challenge   *service.ChallengeService
	Submission  *service.SubmissionService
	Villain     *service.VillainService
	Leaderboard *service.LeaderboardService
}

func NewRouter(svc Services, blacklist *security.TokenBlacklist, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Searches "Authorization: Bearer T" and puts the verified token in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	requireUser := middleware.RequireUser(blacklist)

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(svc.Auth, svc.User, requireUser)
		v1.Group(authHandler.RegisterRoutes)

		challengeHandler := handler.NewChallengeHandler(svc.Challenge, svc.Villain, requireUser)
		v1.Route("/challenges", challengeHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(svc.Submission, requireUser)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		villainHandler := handler.NewVillainHandler(svc.Villain)
		v1.Route("/villains", villainHandler.RegisterRoutes)

		leaderboardHandler := handler.NewLeaderboardHandler(svc.Leaderboard)
		v1.Route("/leaderboard", leaderboardHandler.RegisterRoutes)
	})

	return r
}
