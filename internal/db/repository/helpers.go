// Package repository implements domain repository interfaces using SQLite.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"studygroups/internal/domain"
)

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("resource not found")
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return domain.ErrConflict("already joined this study group")
	}
	// A join racing a sweep or organizer delete lands here: the group row is
	// gone by the time the participant insert runs.
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return domain.ErrNotFound("study group not found")
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullLimit(limit *int) sql.NullInt64 {
	if limit == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*limit), Valid: true}
}

func limitFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
