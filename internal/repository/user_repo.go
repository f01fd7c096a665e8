package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yatraavaghasia/Natours/internal/domain"
)

// ErrDuplicateEmail indica una colisión con un email ya registrado,
// incluyendo cuentas desactivadas.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository define el contrato de persistencia para usuarios.
// Todas las lecturas excluyen cuentas desactivadas (active = FALSE)
// y omiten el hash de contraseña salvo pedido explícito.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string, includePassword bool) (domain.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id, name, email string) (domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time, clearReset bool) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, name, email, photo, role, password_hash, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Photo,
		user.Role,
		user.PasswordHash,
		user.Active,
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id, name, email, photo, role, password_changed_at, created_at
		FROM users
		WHERE id = $1 AND active = TRUE
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Photo,
		&u.Role,
		&u.PasswordChangedAt,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Active = true
	return u, nil
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string, includePassword bool) (domain.User, error) {
	// El hash de contraseña queda fuera de la proyección por defecto.
	query := `
		SELECT id, name, email, photo, role, '', password_changed_at, created_at
		FROM users
		WHERE email = $1 AND active = TRUE
	`
	if includePassword {
		query = `
			SELECT id, name, email, photo, role, password_hash, password_changed_at, created_at
			FROM users
			WHERE email = $1 AND active = TRUE
		`
	}
	var u domain.User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Photo,
		&u.Role,
		&u.PasswordHash,
		&u.PasswordChangedAt,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Active = true
	return u, nil
}

func (r *PgUserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error) {
	const query = `
		SELECT id, name, email, photo, role, password_changed_at, created_at
		FROM users
		WHERE password_reset_token = $1
		  AND password_reset_expires > $2
		  AND active = TRUE
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, tokenHash, now).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Photo,
		&u.Role,
		&u.PasswordChangedAt,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Active = true
	return u, nil
}

func (r *PgUserRepository) List(ctx context.Context) ([]domain.User, error) {
	const query = `
		SELECT id, name, email, photo, role, password_changed_at, created_at
		FROM users
		WHERE active = TRUE
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &u.Role, &u.PasswordChangedAt, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Active = true
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PgUserRepository) UpdateProfile(ctx context.Context, id, name, email string) (domain.User, error) {
	const query = `
		UPDATE users
		SET name = $2, email = $3
		WHERE id = $1 AND active = TRUE
		RETURNING id, name, email, photo, role, password_changed_at, created_at
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id, name, email).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Photo,
		&u.Role,
		&u.PasswordChangedAt,
		&u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.User{}, ErrDuplicateEmail
	}
	if err != nil {
		return domain.User{}, err
	}
	u.Active = true
	return u, nil
}

// UpdatePassword escribe el nuevo hash y la marca de cambio; con clearReset
// limpia además el token de reseteo y su expiración en el mismo UPDATE.
func (r *PgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time, clearReset bool) error {
	query := `
		UPDATE users
		SET password_hash = $2, password_changed_at = $3
		WHERE id = $1 AND active = TRUE
	`
	if clearReset {
		query = `
			UPDATE users
			SET password_hash = $2,
			    password_changed_at = $3,
			    password_reset_token = NULL,
			    password_reset_expires = NULL
			WHERE id = $1 AND active = TRUE
		`
	}
	tag, err := r.pool.Exec(ctx, query, id, passwordHash, changedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET password_reset_token = $2, password_reset_expires = $3
		WHERE id = $1 AND active = TRUE
	`
	tag, err := r.pool.Exec(ctx, query, id, tokenHash, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) ClearResetToken(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET password_reset_token = NULL, password_reset_expires = NULL
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// Deactivate marca la cuenta como inactiva; nunca se borran filas.
func (r *PgUserRepository) Deactivate(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET active = FALSE
		WHERE id = $1 AND active = TRUE
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
