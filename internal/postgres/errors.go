package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// mapPgError переводит нарушение уникальности в доменную ошибку onUnique.
func mapPgError(err error, onUnique error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return onUnique
	}
	return err
}
