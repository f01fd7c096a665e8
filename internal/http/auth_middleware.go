package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/yatraavaghasia/Natours/internal/domain"
	"github.com/yatraavaghasia/Natours/internal/repository"
	"github.com/yatraavaghasia/Natours/internal/service"
)

const (
	currentUserKey = "current_user"
	cookieName     = "jwt"
)

var (
	errNoToken       = errors.New("no token present")
	errUserMissing   = errors.New("token user no longer exists")
	errPasswordStale = errors.New("password changed after token issued")
)

// AuthMiddleware resuelve la identidad detrás de un token de sesión.
// Los dos modos (estricto y tolerante) comparten la misma secuencia de
// verificación y solo difieren en qué hacen con el rechazo.
type AuthMiddleware struct {
	logger *zap.Logger
	tokens *service.TokenService
	users  repository.UserRepository
}

func NewAuthMiddleware(logger *zap.Logger, tokens *service.TokenService, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		logger: logger,
		tokens: tokens,
		users:  users,
	}
}

// resolveUser ejecuta la secuencia completa: extracción, verificación
// criptográfica, existencia del usuario y frescura de la contraseña.
// El chequeo de existencia va antes que el de frescura.
func (m *AuthMiddleware) resolveUser(c *gin.Context) (domain.User, error) {
	token := extractToken(c)
	if token == "" {
		return domain.User{}, errNoToken
	}

	claims, err := m.tokens.Verify(token)
	if err != nil {
		return domain.User{}, err
	}

	user, err := m.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, errUserMissing
		}
		return domain.User{}, err
	}

	if user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return domain.User{}, errPasswordStale
	}
	return user, nil
}

// Protect exige una identidad válida; cualquier rechazo corta la request
// con 401 antes de llegar al handler.
func (m *AuthMiddleware) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.resolveUser(c)
		if err != nil {
			switch {
			case errors.Is(err, errNoToken):
				fail(c, http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
			case errors.Is(err, errUserMissing):
				fail(c, http.StatusUnauthorized, "The user belonging to this token no longer exists.")
			case errors.Is(err, errPasswordStale):
				fail(c, http.StatusUnauthorized, "User recently changed password. Please log in again!")
			case errors.Is(err, service.ErrTokenExpired), errors.Is(err, service.ErrTokenInvalid):
				fail(c, http.StatusUnauthorized, "Invalid or expired token. Please log in again.")
			default:
				failWith(c, http.StatusInternalServerError, "Something went very wrong!", err)
			}
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser intenta resolver la identidad sin fallar nunca: si no hay
// token o el rechazo ocurre en cualquier paso, la request sigue anónima.
func (m *AuthMiddleware) CurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.resolveUser(c)
		if err == nil {
			c.Set(currentUserKey, user)
		}
		c.Next()
	}
}

// RestrictTo autoriza por rol una request ya autenticada. Llegar acá sin
// identidad resuelta es un error de programación, no un 403.
func (m *AuthMiddleware) RestrictTo(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFromContext(c)
		if !ok {
			m.logger.Error("restrictTo called without authenticated user", zap.String("path", c.Request.URL.Path))
			fail(c, http.StatusInternalServerError, "Something went very wrong!")
			return
		}
		if err := service.Authorize(user, roles...); err != nil {
			fail(c, http.StatusForbidden, "You do not have permission to perform this action!")
			return
		}
		c.Next()
	}
}

// UserFromContext obtiene la identidad resuelta desde el contexto.
func UserFromContext(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(currentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}

// extractToken busca primero el header Authorization con esquema Bearer
// y después la cookie de sesión.
func extractToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" && strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	if token, err := c.Cookie(cookieName); err == nil {
		return strings.TrimSpace(token)
	}
	return ""
}
