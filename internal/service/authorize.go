package service

import (
	"errors"

	"github.com/yatraavaghasia/Natours/internal/domain"
)

// ErrForbidden indica que el rol del usuario no está dentro de los permitidos.
var ErrForbidden = errors.New("role not permitted")

// Authorize exige que el rol del usuario pertenezca al conjunto permitido.
// Debe llamarse solo con una identidad ya autenticada.
func Authorize(user domain.User, allowed ...domain.Role) error {
	for _, role := range allowed {
		if user.Role == role {
			return nil
		}
	}
	return ErrForbidden
}
