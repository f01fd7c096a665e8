package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yatraavaghasia/Natours/internal/repository"
	"github.com/yatraavaghasia/Natours/internal/service"
)

// UserHandler mantiene dependencias para los endpoints de cuenta.
type UserHandler struct {
	logger   *zap.Logger
	authServ *service.AuthService
	users    repository.UserRepository
}

func NewUserHandler(logger *zap.Logger, authServ *service.AuthService, users repository.UserRepository) *UserHandler {
	return &UserHandler{
		logger:   logger,
		authServ: authServ,
		users:    users,
	}
}

// Me maneja GET /api/v1/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := UserFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": user}})
}

// UpdateMe maneja PATCH /api/v1/users/updateMe. Las contraseñas tienen su
// propia ruta; aceptar ese campo acá permitiría escribir un valor sin hashear.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	current, ok := UserFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
		return
	}

	var req struct {
		Name            string `json:"name" binding:"required"`
		Email           string `json:"email" binding:"required,email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update me request", zap.Error(err))
		fail(c, http.StatusBadRequest, "Please provide a valid name and email.")
		return
	}
	if req.Password != "" || req.ConfirmPassword != "" {
		fail(c, http.StatusBadRequest, "This route is not for password updates. Please use /updateMyPassword.")
		return
	}

	user, err := h.authServ.UpdateMe(c.Request.Context(), current.ID, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			fail(c, http.StatusBadRequest, "This email is already registered.")
		case errors.Is(err, service.ErrUserNotFound):
			fail(c, http.StatusNotFound, "The user belonging to this token no longer exists.")
		case errors.Is(err, service.ErrInvalidName), errors.Is(err, service.ErrInvalidEmail):
			fail(c, http.StatusBadRequest, "Please provide a valid name and email.")
		default:
			failWith(c, http.StatusInternalServerError, "Something went very wrong!", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": user}})
}

// DeleteMe maneja DELETE /api/v1/users/deleteMe con baja lógica.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	current, ok := UserFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
		return
	}

	if err := h.authServ.DeleteMe(c.Request.Context(), current.ID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			fail(c, http.StatusNotFound, "The user belonging to this token no longer exists.")
			return
		}
		failWith(c, http.StatusInternalServerError, "Something went very wrong!", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// List maneja GET /api/v1/users, solo para administradores.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		failWith(c, http.StatusInternalServerError, "Something went very wrong!", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(users),
		"data":    gin.H{"users": users},
	})
}
