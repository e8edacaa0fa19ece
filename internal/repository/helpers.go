package repository

import (
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// psql builds PostgreSQL-flavoured statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrDuplicate is returned when an insert or update hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// ErrReferenced is returned when a delete is blocked by a foreign key.
var ErrReferenced = errors.New("record is still referenced")

func normalizePage(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

func likePattern(term string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(escaper.Replace(strings.TrimSpace(term))) + "%"
}

// classify maps PostgreSQL constraint violations to repository sentinels.
// A malformed UUID literal matches no row.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		return ErrDuplicate
	case "23503":
		return ErrReferenced
	case "22P02":
		return sql.ErrNoRows
	}
	return err
}
