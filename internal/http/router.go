package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"match-engine/internal/service"
)

// RouterOptions agrupa lo configurable del router que no son dependencias de servicio.
type RouterOptions struct {
	// AllowedOrigins habilita CORS para esos orígenes; vacío lo deja desactivado.
	AllowedOrigins []string
	// ServiceName activa spans por request con otelgin cuando no está vacío.
	ServiceName string
}

// NewRouter configura el router de Gin con middlewares y rutas del motor de matching.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	matchH *MatchHandler,
	opts RouterOptions,
) *gin.Engine {
	r := gin.New()

	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}

	// Middlewares básicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	if len(opts.AllowedOrigins) > 0 {
		r.Use(corsMiddleware(opts.AllowedOrigins))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := r.Group("", JWTAuthMiddleware(jwtSvc))
	authed.GET("/matches", matchH.FindMatches)
	authed.GET("/matches/:candidateID/compatibility", matchH.Compatibility)
	authed.GET("/quota", matchH.Quota)
	authed.POST("/swipes", matchH.RecordSwipe)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
