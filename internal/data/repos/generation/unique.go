package generation

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/lessongen/internal/platform/dbctx"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// insertOrFetch inserts row with ON CONFLICT DO NOTHING. When the insert loses a
// race (no rows affected, or a unique violation), the canonical row is re-read
// and returned instead. The bool reports whether row itself was persisted.
func insertOrFetch[T any](dbc dbctx.Context, t *gorm.DB, row *T, fetch func() (*T, error)) (*T, bool, error) {
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if res.Error != nil && !isUniqueViolation(res.Error) {
		return nil, false, res.Error
	}
	if res.Error == nil && res.RowsAffected > 0 {
		return row, true, nil
	}
	existing, err := fetch()
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("insert conflicted but canonical row not found")
	}
	return existing, false, nil
}

func pick(dbc dbctx.Context, fallback *gorm.DB) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return fallback
}
