package rest

import (
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/api/rest/handlers"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/metrics"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/middleware"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/service"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/storage"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps зависимости HTTP слоя
type RouterDeps struct {
	Log         *logger.Logger
	Registry    *prometheus.Registry
	Auth        *middleware.JWTMiddleware
	HTTPMetrics *metrics.HTTPMetrics
	Students    service.StudentService
	Plans       service.PlanService
	Lifecycle   handlers.Lifecycle
	Files       storage.FileStore
	FilesDir    string // если задан, файлы чеков раздаются по /files под JWT
	Health      map[string]handlers.HealthChecker
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Подключение middleware
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(gin.Recovery())
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware())
	}

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.NewHealthHandler(deps.Health).HealthCheck)

	// Prometheus метрики
	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	// файлы чеков только для аутентифицированных пользователей, имена файлов случайные
	if deps.FilesDir != "" {
		files := r.Group(storage.FilesRoute, deps.Auth.RequireAuth())
		files.Static("/", deps.FilesDir)
	}

	studentHandler := handlers.NewStudentHandler(deps.Students, deps.Log)
	planHandler := handlers.NewPlanHandler(deps.Plans, deps.Log)
	subscriptionHandler := handlers.NewSubscriptionHandler(deps.Lifecycle, deps.Log)
	proofHandler := handlers.NewProofHandler(deps.Lifecycle, deps.Files, deps.Log)

	v1 := r.Group("/api/v1")

	// Тренер
	coach := v1.Group("/coach", deps.Auth.RequireAuth(middleware.RoleCoach))
	{
		coach.POST("/students", studentHandler.CreateStudent)
		coach.GET("/students", studentHandler.ListStudents)
		coach.GET("/students/:id", studentHandler.GetStudent)

		coach.POST("/plans", planHandler.CreatePlan)
		coach.GET("/plans", planHandler.ListPlans)
		coach.GET("/plans/:id", planHandler.GetPlan)
		coach.DELETE("/plans/:id", planHandler.DeletePlan)

		coach.POST("/subscriptions", subscriptionHandler.CreateSubscription)
		coach.GET("/subscriptions", subscriptionHandler.CoachListSubscriptions)
		coach.GET("/subscriptions/:id", subscriptionHandler.CoachGetSubscription)
		coach.POST("/subscriptions/:id/cancel", subscriptionHandler.CancelSubscription)

		coach.POST("/proofs/:id/approve", proofHandler.ApproveProof)
		coach.POST("/proofs/:id/reject", proofHandler.RejectProof)
	}

	// Ученик
	student := v1.Group("/student", deps.Auth.RequireAuth(middleware.RoleStudent))
	{
		student.GET("/subscriptions", subscriptionHandler.StudentListSubscriptions)
		student.GET("/subscriptions/:id", subscriptionHandler.StudentGetSubscription)
		student.POST("/subscriptions/:id/proofs", proofHandler.SubmitProof)
		student.GET("/subscriptions/:id/proofs", proofHandler.ListProofs)
	}

	return r
}
