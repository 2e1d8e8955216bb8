package app

import (
	"medprep_backend/docs"
	"medprep_backend/internal/config"
	"medprep_backend/internal/middleware"
	"medprep_backend/internal/model"
	"medprep_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/packages", c.purchase.ListPackages)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)

	// 商城
	rg.GET("/purchases", c.purchase.ListPurchases)
	rg.POST("/purchases/checkout", c.purchase.Checkout)

	// 答题
	rg.POST("/sessions", c.session.Start)
	rg.GET("/sessions", c.session.List)
	rg.GET("/sessions/:id/questions", c.session.GetQuestions)
	rg.POST("/sessions/:id/answers", c.session.SubmitAnswer)
	rg.POST("/sessions/:id/complete", c.session.Complete)
	rg.GET("/sessions/:id/results", c.session.GetResults)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		// 题库结构
		admin.POST("/specialties", c.catalog.CreateSpecialty)
		admin.GET("/specialties", c.catalog.ListSpecialties)
		admin.POST("/topics", c.catalog.CreateTopic)
		admin.GET("/topics", c.catalog.ListTopics)
		admin.PATCH("/topics/:id/weight", c.catalog.UpdateTopicWeight)

		// 题目与变体
		admin.POST("/questions", c.catalog.CreateQuestion)
		admin.POST("/questions/:baseId/variations", c.catalog.AddVariation)
		admin.POST("/variations/:id/revisions", c.catalog.ReviseVariation)
		admin.PATCH("/variations/:id/visibility", c.catalog.SetVisibility)
		admin.POST("/variations/:id/image", c.catalog.UploadImage)

		// 账务确认回调
		admin.POST("/purchases/:id/activate", c.purchase.Activate)
	}
}
