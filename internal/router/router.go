package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"live-quiz-backend/internal/config"
	apperrors "live-quiz-backend/internal/errors"
	"live-quiz-backend/internal/handlers"
	"live-quiz-backend/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Session *handlers.SessionHandler
	WS      *handlers.WSHandler
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, handlers.ErrorResponse{
		Error: "too many requests, retry in " + time.Until(info.ResetTime).Round(time.Second).String(),
		Code:  apperrors.ErrCodeValidation,
	})
}

func Setup(log *zap.Logger, cfg config.ServerConfig, h Handlers, auth middleware.TokenValidator) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
	})

	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 5,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/ws", h.WS.HandleWebSocket)

	api := router.Group("/api/v1")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", limiter, h.Auth.Register)
			authRoutes.POST("/login", limiter, h.Auth.Login)
		}

		api.GET("/state/:pin", h.Session.GetState)

		sessions := api.Group("/sessions")
		sessions.Use(middleware.JWTAuth(auth))
		{
			sessions.GET("", h.Session.ListSessions)
			sessions.POST("", h.Session.CreateSession)
			sessions.GET("/:id", h.Session.GetSession)
			sessions.PUT("/:id/status", h.Session.UpdateStatus)
			sessions.GET("/:id/players", h.Session.ListPlayers)
			sessions.GET("/:id/questions", h.Session.ListQuestions)
			sessions.POST("/:id/questions", h.Session.AddQuestion)
		}
	}

	return router
}
