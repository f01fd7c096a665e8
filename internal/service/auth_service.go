package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/yatraavaghasia/Natours/internal/domain"
	"github.com/yatraavaghasia/Natours/internal/email"
	"github.com/yatraavaghasia/Natours/internal/repository"
)

// AuthService coordina registro, login y el ciclo de vida de contraseñas.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	emailSender email.Sender
	hasher      Hasher
	baseURL     string
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, emailSender email.Sender, hasher Hasher, baseURL string) *AuthService {
	return &AuthService{
		logger:      logger,
		users:       users,
		emailSender: emailSender,
		hasher:      hasher,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidName        = errors.New("invalid name")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrWrongPassword      = errors.New("current password incorrect")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
	ErrEmailSendFailure   = errors.New("email send failed")
)

const minPasswordLength = 8

type SignUpInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// SignUp crea la cuenta con la contraseña hasheada exactamente una vez.
// El rol siempre nace como "user"; la asignación de roles privilegiados
// ocurre por otros canales.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (domain.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.User{}, ErrInvalidName
	}
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if err := validatePasswordPair(input.Password, input.ConfirmPassword); err != nil {
		return domain.User{}, err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        emailAddr,
		Photo:        "default.jpg",
		Role:         domain.RoleUser,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}

	if err := s.emailSender.SendWelcome(ctx, user, s.baseURL+"/me"); err != nil {
		s.logger.Warn("send welcome email failed", zap.Error(err), zap.String("email", emailAddr))
	}

	user.PasswordHash = ""
	return user, nil
}

// Login valida credenciales con un único error indistinguible entre
// email inexistente y contraseña incorrecta.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" || !s.hasher.Verify(password, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	user.PasswordHash = ""
	return user, nil
}

// ForgotPassword genera el token de reseteo y lo envía por correo. Si el
// envío falla, el token recién persistido se revierte para no dejar un
// secreto vivo sin dueño.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}
	user, err := s.users.GetByEmail(ctx, emailAddr, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	plaintext, hash, expiresAt, err := GenerateResetToken()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, hash, expiresAt); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", s.baseURL, plaintext)
	if err := s.emailSender.SendPasswordReset(ctx, user, resetURL); err != nil {
		s.logger.Warn("send password reset email failed", zap.Error(err), zap.String("email", emailAddr))
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.Error("rollback reset token failed", zap.Error(clearErr), zap.String("user_id", user.ID))
		}
		return ErrEmailSendFailure
	}
	return nil
}

// ResetPassword canjea el token presentado. El hash nuevo, la marca de
// cambio y la limpieza del token viajan en el mismo UPDATE, con lo que el
// token consumido no puede canjearse dos veces.
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirmPassword string) (domain.User, error) {
	if strings.TrimSpace(token) == "" {
		return domain.User{}, ErrResetTokenInvalid
	}
	if err := validatePasswordPair(password, confirmPassword); err != nil {
		return domain.User{}, err
	}

	user, err := s.users.GetByResetToken(ctx, HashResetToken(token), time.Now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrResetTokenInvalid
		}
		return domain.User{}, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}
	changedAt := s.passwordChangedAt()
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash, changedAt, true); err != nil {
		return domain.User{}, err
	}
	user.PasswordChangedAt = &changedAt
	return user, nil
}

// UpdatePassword cambia la contraseña de un usuario ya autenticado tras
// verificar la actual.
func (s *AuthService) UpdatePassword(ctx context.Context, current domain.User, currentPassword, password, confirmPassword string) (domain.User, error) {
	user, err := s.users.GetByEmail(ctx, current.Email, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return domain.User{}, ErrWrongPassword
	}
	if err := validatePasswordPair(password, confirmPassword); err != nil {
		return domain.User{}, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}
	changedAt := s.passwordChangedAt()
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash, changedAt, false); err != nil {
		return domain.User{}, err
	}
	user.PasswordHash = ""
	user.PasswordChangedAt = &changedAt
	return user, nil
}

// UpdateMe actualiza solo nombre y email; las contraseñas tienen su propio
// camino para que el hasheo nunca se saltee.
func (s *AuthService) UpdateMe(ctx context.Context, userID, name, emailAddr string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, ErrInvalidName
	}
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	user, err := s.users.UpdateProfile(ctx, userID, name, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// DeleteMe desactiva la cuenta; las filas nunca se borran.
func (s *AuthService) DeleteMe(ctx context.Context, userID string) error {
	err := s.users.Deactivate(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

// passwordChangedAt resta un segundo para que un token emitido en el mismo
// instante del cambio no quede marcado como viejo.
func (s *AuthService) passwordChangedAt() time.Time {
	return time.Now().UTC().Add(-time.Second)
}

func validatePasswordPair(password, confirmPassword string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if password != confirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
