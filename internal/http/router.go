package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yatraavaghasia/Natours/internal/domain"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	production bool,
	authMW *AuthMiddleware,
	authH *AuthHandler,
	userH *UserHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery, frontera de errores y JSON.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), ErrorMiddleware(logger, production), jsonContentTypeMiddleware())

	users := r.Group("/api/v1/users")
	users.POST("/signup", authH.SignUp)
	users.POST("/login", authH.Login)
	users.GET("/logout", authMW.CurrentUser(), authH.Logout)
	users.POST("/forgotPassword", authH.ForgotPassword)
	users.PATCH("/resetPassword/:token", authH.ResetPassword)

	me := users.Group("")
	me.Use(authMW.Protect())
	me.GET("/me", userH.Me)
	me.PATCH("/updateMe", userH.UpdateMe)
	me.DELETE("/deleteMe", userH.DeleteMe)
	me.PATCH("/updateMyPassword", authH.UpdateMyPassword)

	users.GET("", authMW.Protect(), authMW.RestrictTo(domain.RoleAdmin), userH.List)

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, fmt.Sprintf("Can't find %s on this server!", c.Request.URL.Path))
	})

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
