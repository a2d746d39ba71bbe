// Package store define el repositorio de usuarios del servicio.
package store

import (
	"context"
	"time"
)

// User es la cuenta contra la que se autentica una sesión.
type User struct {
	ID           string
	Email        string
	PasswordHash string // PHC argon2id
	CreatedAt    time.Time
}

// ErrNotFound indica que el usuario no existe.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "store: user not found" }

// IsNotFound verifica si el error es por usuario inexistente.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// UserRepository define las operaciones sobre usuarios.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Close()
}
