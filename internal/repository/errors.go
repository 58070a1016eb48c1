package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when an insert hits a unique constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Join(ErrDuplicateKey, err)
	}
	return err
}
