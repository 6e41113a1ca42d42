// Package gormrepo implements the core repositories on top of gorm.
// Every repository picks up the transaction carried by the context, if any.
package gormrepo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/pgmanager/core"
	"github.com/trezcool/pgmanager/storage/database"
)

type repo struct {
	db *gorm.DB
}

func (r repo) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

// forUpdate locks the selected rows until the end of the transaction. sqlite ignores it.
func (r repo) forUpdate(ctx context.Context) *gorm.DB {
	return r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func newID() string {
	return uuid.New().String()
}

// trapNotFound maps gorm's "record not found" to notFound.
func trapNotFound(err error, notFound error, msg string) error {
	if database.IsNotFound(err) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapUnique maps unique violations to conflict.
func trapUnique(err error, conflict error, msg string) error {
	if database.IsUniqueViolation(err) {
		return conflict
	}
	return errors.Wrap(err, msg)
}

// applyOrdering orders q by the allowed orderings, or by fallback when none is left.
func applyOrdering(q *gorm.DB, ordering []core.DBOrdering, allowed map[string]string, fallback ...string) *gorm.DB {
	cleaned := core.CleanOrderings(ordering, allowed)
	if len(cleaned) == 0 {
		for _, ord := range fallback {
			q = q.Order(ord)
		}
		return q
	}
	for _, ord := range cleaned {
		q = q.Order(ord.String())
	}
	return q
}

// containsPattern returns a LIKE pattern matching s anywhere, case-insensitively when compared to LOWER(col).
func containsPattern(s string) string {
	return "%" + escapeLike(strings.ToLower(s)) + "%"
}

func prefixPattern(s string) string {
	return escapeLike(s) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
