package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/rollbook/internal/metrics"
	"github.com/hitoshi/rollbook/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	IdentityResolver  middleware.IdentityResolver

	// 認証
	AuthService AuthServiceInterface

	// プロフィール
	StudentService StudentServiceInterface

	// 運用
	HealthChecker  HealthChecker
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Metrics → Recovery → SecurityHeaders → CORS → (AuthMiddleware: /api/students のみ)
//
// /api/auth/* はトークンをサービス層で検証するため、認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(metrics.NewHTTPMiddleware(collector))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	studentHandler := NewStudentHandler(deps.StudentService)

	// --- 認証不要のルート ---
	r.Get("/", Root)
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Get("/api/courses", Courses)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Get("/me", authHandler.Me)
		r.Post("/change-password", authHandler.ChangePassword)
		r.Post("/logout", authHandler.Logout)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.IdentityResolver))

		r.Route("/api/students", func(r chi.Router) {
			r.Get("/", studentHandler.List)
			r.Post("/", studentHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", studentHandler.Get)
				r.Put("/", studentHandler.Update)
				r.Delete("/", studentHandler.Delete)
			})
		})
	})

	return r
}
