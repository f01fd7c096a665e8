package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AppError representa una falla de dominio con su estado HTTP asociado.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// fail registra la falla para que el middleware de errores responda;
// los handlers nunca escriben respuestas de error por su cuenta.
func fail(c *gin.Context, code int, message string) {
	_ = c.Error(&AppError{Code: code, Message: message})
	c.Abort()
}

func failWith(c *gin.Context, code int, message string, err error) {
	_ = c.Error(&AppError{Code: code, Message: message, Err: err})
	c.Abort()
}

// ErrorMiddleware es la frontera única de render de errores: convierte el
// último error acumulado en la envoltura JSON {status, message}. 4xx se
// reporta como "fail" y 5xx como "error"; fuera de producción se adjunta
// el detalle interno.
func ErrorMiddleware(logger *zap.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *AppError
		if !errors.As(err, &appErr) {
			appErr = &AppError{
				Code:    http.StatusInternalServerError,
				Message: "Something went very wrong!",
				Err:     err,
			}
		}

		status := "error"
		if appErr.Code >= 400 && appErr.Code < 500 {
			status = "fail"
		}
		if appErr.Code >= 500 {
			logger.Error("request failed",
				zap.Int("code", appErr.Code),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}

		body := gin.H{"status": status, "message": appErr.Message}
		if !production && appErr.Err != nil {
			body["error"] = appErr.Err.Error()
		}
		c.JSON(appErr.Code, body)
	}
}
