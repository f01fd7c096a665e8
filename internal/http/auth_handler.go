package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yatraavaghasia/Natours/internal/domain"
	"github.com/yatraavaghasia/Natours/internal/repository"
	"github.com/yatraavaghasia/Natours/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de autenticación.
type AuthHandler struct {
	logger       *zap.Logger
	authServ     *service.AuthService
	tokens       *service.TokenService
	cookieDays   int
	secureCookie bool
}

func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, tokens *service.TokenService, cookieDays int, secureCookie bool) *AuthHandler {
	if cookieDays <= 0 {
		cookieDays = 90
	}
	return &AuthHandler{
		logger:       logger,
		authServ:     authServ,
		tokens:       tokens,
		cookieDays:   cookieDays,
		secureCookie: secureCookie,
	}
}

// sendToken entrega el token por ambos canales: cuerpo JSON y cookie
// HTTP-only. La representación del usuario nunca incluye la contraseña.
func (h *AuthHandler) sendToken(c *gin.Context, user domain.User, status int) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		failWith(c, http.StatusInternalServerError, "Something went very wrong!", err)
		return
	}

	maxAge := h.cookieDays * 24 * 60 * 60
	c.SetCookie(cookieName, token, maxAge, "/", "", h.secureCookie, true)

	c.JSON(status, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"user": user},
	})
}

// SignUp maneja POST /api/v1/users/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		Email           string `json:"email" binding:"required,email"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		fail(c, http.StatusBadRequest, "Please provide name, email, password and confirmPassword.")
		return
	}

	user, err := h.authServ.SignUp(c.Request.Context(), service.SignUpInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			fail(c, http.StatusBadRequest, "This email is already registered.")
		case errors.Is(err, service.ErrPasswordTooShort):
			fail(c, http.StatusBadRequest, "A password must be greater than or equal to 8 characters.")
		case errors.Is(err, service.ErrPasswordMismatch):
			fail(c, http.StatusBadRequest, "The passwords must be the same!")
		case errors.Is(err, service.ErrInvalidName), errors.Is(err, service.ErrInvalidEmail):
			fail(c, http.StatusBadRequest, "Please provide a valid name and email.")
		default:
			failWith(c, http.StatusInternalServerError, "Something went very wrong!", err)
		}
		return
	}

	h.sendToken(c, user, http.StatusCreated)
}

// Login maneja POST /api/v1/users/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		fail(c, http.StatusBadRequest, "Please provide email and password!")
		return
	}

	user, err := h.authServ.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, "Incorrect email or password!")
			return
		}
		failWith(c, http.StatusInternalServerError, "Something went very wrong!", err)
		return
	}

	h.sendToken(c, user, http.StatusOK)
}

// Logout maneja GET /api/v1/users/logout: pisa la cookie con un valor
// centinela de expiración casi inmediata.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(cookieName, "loggedout", 10, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ForgotPassword maneja POST /api/v1/users/forgotPassword.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid forgot password request", zap.Error(err))
		fail(c, http.StatusBadRequest, "Please provide an email.")
		return
	}

	if err := h.authServ.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			fail(c, http.StatusNotFound, "There is no user with this email address.")
		case errors.Is(err, service.ErrEmailSendFailure):
			failWith(c, http.StatusInternalServerError, "There was an error sending the email. Try again later!", err)
		default:
			failWith(c, http.StatusInternalServerError, "Something went very wrong!", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Token sent to email!"})
}

// ResetPassword maneja PATCH /api/v1/users/resetPassword/:token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password request", zap.Error(err))
		fail(c, http.StatusBadRequest, "Please provide password and confirmPassword.")
		return
	}

	user, err := h.authServ.ResetPassword(c.Request.Context(), c.Param("token"), req.Password, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrResetTokenInvalid):
			fail(c, http.StatusBadRequest, "Token is invalid or has expired.")
		case errors.Is(err, service.ErrPasswordTooShort):
			fail(c, http.StatusBadRequest, "A password must be greater than or equal to 8 characters.")
		case errors.Is(err, service.ErrPasswordMismatch):
			fail(c, http.StatusBadRequest, "The passwords must be the same!")
		default:
			failWith(c, http.StatusInternalServerError, "Something went very wrong!", err)
		}
		return
	}

	h.sendToken(c, user, http.StatusOK)
}

// UpdateMyPassword maneja PATCH /api/v1/users/updateMyPassword.
func (h *AuthHandler) UpdateMyPassword(c *gin.Context) {
	current, ok := UserFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update password request", zap.Error(err))
		fail(c, http.StatusBadRequest, "Please provide currentPassword, password and confirmPassword.")
		return
	}

	user, err := h.authServ.UpdatePassword(c.Request.Context(), current, req.CurrentPassword, req.Password, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongPassword):
			fail(c, http.StatusUnauthorized, "The password you entered does not match the current password!")
		case errors.Is(err, service.ErrPasswordTooShort):
			fail(c, http.StatusBadRequest, "A password must be greater than or equal to 8 characters.")
		case errors.Is(err, service.ErrPasswordMismatch):
			fail(c, http.StatusBadRequest, "The passwords must be the same!")
		default:
			failWith(c, http.StatusInternalServerError, "Something went very wrong!", err)
		}
		return
	}

	h.sendToken(c, user, http.StatusOK)
}
