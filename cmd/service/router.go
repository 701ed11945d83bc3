package service

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/breeew/otterly-api/cmd/service/handler"
	"github.com/breeew/otterly-api/cmd/service/middleware"
	"github.com/breeew/otterly-api/internal/core"
	v1 "github.com/breeew/otterly-api/internal/logic/v1"
	"github.com/breeew/otterly-api/internal/response"
)

func serve(core *core.Core) error {
	engine := SetupHttpEngine(core)
	slog.Info("otterly api is listening", slog.String("addr", core.Cfg().Addr), slog.String("mode", core.Name()))
	return engine.Run(core.Cfg().Addr)
}

// SetupHttpEngine builds the gin engine with every route mounted.
func SetupHttpEngine(core *core.Core) *gin.Engine {
	engine := gin.New()
	// request cancellation reaches the upstream model call
	engine.ContextWithFallback = true
	engine.Use(gin.Recovery(), accessLog())

	setupHttpRouter(&handler.HttpSrv{
		Core:   core,
		Engine: engine,
	})
	return engine
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http access", slog.String("method", c.Request.Method), slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()), slog.Duration("cost", time.Since(start)),
			slog.String("request_id", c.GetString(response.REQUEST_ID_KEY)))
	}
}

func GetIPLimitBuilder(core *core.Core) func(key string, ratelimit int) gin.HandlerFunc {
	return func(key string, ratelimit int) gin.HandlerFunc {
		return middleware.UseLimit(core, key, ratelimit, func(c *gin.Context) string {
			return key + ":" + c.ClientIP()
		})
	}
}

func GetUserLimitBuilder(core *core.Core) func(key string, ratelimit int) gin.HandlerFunc {
	return func(key string, ratelimit int) gin.HandlerFunc {
		return middleware.UseLimit(core, key, ratelimit, func(c *gin.Context) string {
			token, _ := v1.InjectTokenClaim(c)
			return key + ":" + token.User
		})
	}
}

func setupHttpRouter(s *handler.HttpSrv) {
	ipLimit := GetIPLimitBuilder(s.Core)
	userLimit := GetUserLimitBuilder(s.Core)

	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors)

	s.Engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Core.Metrics().Registry(), promhttp.HandlerOpts{})))

	api := s.Engine.Group("/api")
	{
		// only upstream limits apply, failures stay plain-text 500s
		api.POST("/reply", middleware.Authorization(s.Core), s.Reply)
	}

	apiV1 := api.Group("/v1")
	{
		apiV1.GET("/mode", func(c *gin.Context) {
			response.APISuccess(c, s.Core.Plugins.Name())
		})

		auth := apiV1.Group("/auth")
		{
			auth.POST("/signup", ipLimit("signup", 5), s.Signup)
			auth.POST("/signin", ipLimit("signin", 10), s.Signin)
		}

		authed := apiV1.Group("")
		authed.Use(middleware.Authorization(s.Core))
		user := authed.Group("/user")
		{
			user.GET("/info", s.GetUser)
			user.PUT("/onboarding", userLimit("profile", 5), s.Onboarding)
			user.GET("/aspirations", s.ListAspirations)
		}

		journal := authed.Group("/journal")
		{
			journal.GET("/active", s.ActiveJournal)
			journal.GET("/list", s.ListJournals)
			journal.POST("", userLimit("modify_journal", 10), s.StartJournal)
			journal.PUT("/:id/conclude", userLimit("modify_journal", 10), s.ConcludeJournal)
			journal.GET("/:id/export", s.JournalExport)
			journal.GET("/:id/entries", s.ListJournalEntries)

			entry := journal.Group("/entry")
			{
				entry.GET("/list", s.ListEntries)
				entry.GET("/:id", s.GetEntry)
				entry.POST("", userLimit("submit_entry", 30), s.SubmitEntry)
				entry.POST("/stream", userLimit("submit_entry", 30), s.SubmitEntryStream)
			}
		}

		emotion := authed.Group("/emotion")
		{
			emotion.POST("/analyze", userLimit("emotion", 30), s.AnalyzeEmotion)
		}
	}
}
