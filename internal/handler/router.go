package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/medconfirm/internal/metrics"
	"github.com/hitoshi/medconfirm/internal/middleware"
	"github.com/hitoshi/medconfirm/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler
	HealthChecker     HealthChecker

	// サービス
	AuthService         AuthServiceInterface
	MedicationService   MedicationServiceInterface
	RelationshipService RelationshipServiceInterface
	ConfirmationService ConfirmationServiceInterface

	// 写真（未設定の場合アップロードは503）
	PhotoStore    PhotoSaver
	PhotoMaxBytes int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Logging → Recovery → Metrics → SecurityHeaders → CORS
//	  → (認証ルート) RateLimit(Auth)
//	  → (その他) Auth → RateLimit(General) → RequireRole
//
// APIルートはルート直下と /api の両方に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Noop{}
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewMetricsMiddleware(m))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	api := apiRoutes(deps)
	r.Group(api)
	r.Route("/api", api)

	return r
}

func apiRoutes(deps *RouterDeps) func(r chi.Router) {
	authHandler := NewAuthHandler(deps.AuthService)
	medHandler := NewMedicationHandler(deps.MedicationService)
	relHandler := NewRelationshipHandler(deps.RelationshipService)
	confHandler := NewConfirmationHandler(deps.ConfirmationService)
	photoHandler := NewPhotoHandler(deps.PhotoStore, deps.PhotoMaxBytes)

	carer := middleware.RequireRole(model.RoleCarer)
	dependant := middleware.RequireRole(model.RoleDependant)

	return func(r chi.Router) {
		// --- 認証不要のルート ---
		r.Route("/auth", func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Route("/medications", func(r chi.Router) {
				r.With(dependant).Get("/mine", medHandler.ListMine)
				r.With(carer).Get("/dependant/{dependantId}", medHandler.ListForDependant)
				r.With(carer).Post("/", medHandler.Create)
				r.With(carer).Put("/{medicationId}/schedule", medHandler.ReplaceSchedule)
			})

			r.Route("/relationships", func(r chi.Router) {
				r.Use(carer)
				r.Get("/dependants", relHandler.ListDependants)
				r.Post("/add-dependant", relHandler.AddDependant)
			})

			r.Route("/confirmations", func(r chi.Router) {
				r.With(carer).Get("/pending", confHandler.ListPending)
				r.With(dependant).Get("/recent", confHandler.ListRecent)
				r.With(dependant).Post("/submit", confHandler.Submit)
				r.With(carer).Post("/{confirmationId}/confirm", confHandler.Confirm)
			})

			r.With(dependant).Post("/photos", photoHandler.Upload)
		})
	}
}
