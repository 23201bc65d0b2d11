package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode     = "23505"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
	undefinedTableCode      = "42P01"
	queryCanceledCode       = "57014"
	serializationFailedCode = "40001"
)

var (
	// ErrConstraintViolation は一意制約・検査制約・NOT NULL 制約の違反です。
	ErrConstraintViolation = errors.New("postgres: constraint violation")
	// ErrSchemaMissing はマイグレーション未適用などでテーブルが存在しない状態です。
	ErrSchemaMissing = errors.New("postgres: schema missing, run migrations")
	// ErrStatementTimeout は statement_timeout による中断です。
	ErrStatementTimeout = errors.New("postgres: statement timeout")
	// ErrRetryable は再試行で解消しうる直列化失敗です。
	ErrRetryable = errors.New("postgres: serialization failure")
)

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolationCode, checkViolationCode, notNullViolationCode:
		return fmt.Errorf("%w: %s (%s)", ErrConstraintViolation, pgErr.Message, pgErr.ConstraintName)
	case undefinedTableCode:
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pgErr.Message)
	case queryCanceledCode:
		return fmt.Errorf("%w: %s", ErrStatementTimeout, pgErr.Message)
	case serializationFailedCode:
		return fmt.Errorf("%w: %s", ErrRetryable, pgErr.Message)
	}
	return err
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
}

func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullDate(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := toDate(t.Time)
	return &v
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
