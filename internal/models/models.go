// Package models contains persistent objects of review service.
package models

import (
	"context"
	"database/sql"
	"errors"

	"github.com/udovin/gosql"
	"golang.org/x/exp/slices"

	"github.com/udovin/peerreview/internal/db"
)

type baseObject struct {
	ID int64 `db:"id"`
}

// ObjectID returns ID of object.
func (o baseObject) ObjectID() int64 {
	return o.ID
}

// SetObjectID sets ID of object.
func (o *baseObject) SetObjectID(id int64) {
	o.ID = id
}

// IsNotFound returns true if error means that object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

type baseStore[T any, TPtr db.ObjectPtr[T]] struct {
	objects *db.ObjectStore[T, TPtr]
}

func makeBaseStore[T any, TPtr db.ObjectPtr[T]](
	conn *gosql.DB, table string,
) baseStore[T, TPtr] {
	return baseStore[T, TPtr]{
		objects: db.NewObjectStore[T, TPtr]("id", table, conn),
	}
}

// DB returns store database.
func (s *baseStore[T, TPtr]) DB() *gosql.DB {
	return s.objects.DB()
}

// Create creates object and sets its ID.
func (s *baseStore[T, TPtr]) Create(ctx context.Context, object TPtr) error {
	return s.objects.CreateObject(ctx, object)
}

// Get returns object by ID or sql.ErrNoRows.
func (s *baseStore[T, TPtr]) Get(ctx context.Context, id int64) (T, error) {
	return s.objects.GetObject(ctx, id)
}

// All returns all objects ordered by ID.
func (s *baseStore[T, TPtr]) All(ctx context.Context) ([]T, error) {
	rows, err := s.objects.LoadObjects(ctx)
	if err != nil {
		return nil, err
	}
	return sortedByID[T, TPtr](db.CollectRows(rows))
}

func (s *baseStore[T, TPtr]) find(
	ctx context.Context, where gosql.BoolExpression,
) ([]T, error) {
	rows, err := s.objects.FindObjects(ctx, where)
	if err != nil {
		return nil, err
	}
	return sortedByID[T, TPtr](db.CollectRows(rows))
}

func sortedByID[T any, TPtr db.ObjectPtr[T]](objects []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	slices.SortFunc(objects, func(a, b T) bool {
		return TPtr(&a).ObjectID() < TPtr(&b).ObjectID()
	})
	return objects, nil
}
