package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/udovin/gosql"
)

// ObjectPtr represents pointer to object that has sequential ID.
type ObjectPtr[T any] interface {
	*T
	// ObjectID should return sequential ID of object.
	ObjectID() int64
	// SetObjectID should set sequential ID of object.
	SetObjectID(int64)
}

// ObjectStore represents persistent store for objects.
type ObjectStore[T any, TPtr ObjectPtr[T]] struct {
	db      *gosql.DB
	id      string
	table   string
	columns []string
}

// NewObjectStore creates a new store for objects of specified type.
func NewObjectStore[T any, TPtr ObjectPtr[T]](
	id, table string, db *gosql.DB,
) *ObjectStore[T, TPtr] {
	return &ObjectStore[T, TPtr]{
		db:      db,
		id:      id,
		table:   table,
		columns: getColumns[T](),
	}
}

// DB returns store database.
func (s *ObjectStore[T, TPtr]) DB() *gosql.DB {
	return s.db
}

// Table returns name of table.
func (s *ObjectStore[T, TPtr]) Table() string {
	return s.table
}

// CreateObject creates a new object and sets its ObjectID.
func (s *ObjectStore[T, TPtr]) CreateObject(ctx context.Context, object TPtr) error {
	var id int64
	if err := insertRow(ctx, s.db, *object, &id, s.id, s.table); err != nil {
		return err
	}
	object.SetObjectID(id)
	return nil
}

// GetObject returns object with specified ID or sql.ErrNoRows.
func (s *ObjectStore[T, TPtr]) GetObject(ctx context.Context, id int64) (T, error) {
	return s.FindObject(ctx, gosql.Column(s.id).Equal(id))
}

// FindObject returns first object that matches expression or sql.ErrNoRows.
func (s *ObjectStore[T, TPtr]) FindObject(
	ctx context.Context, where gosql.BoolExpression,
) (T, error) {
	var empty T
	query := s.db.Select(s.table)
	query.SetNames(s.columns...)
	query.SetWhere(where)
	query.SetLimit(1)
	rawQuery, args := query.Build()
	rows, err := s.query(ctx, rawQuery, args)
	if err != nil {
		return empty, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return empty, err
		}
		return empty, sql.ErrNoRows
	}
	return rows.Row(), rows.Err()
}

// FindObjects returns objects that match expression.
func (s *ObjectStore[T, TPtr]) FindObjects(
	ctx context.Context, where gosql.BoolExpression,
) (Rows[T], error) {
	query := s.db.Select(s.table)
	query.SetNames(s.columns...)
	query.SetWhere(where)
	rawQuery, args := query.Build()
	return s.query(ctx, rawQuery, args)
}

// LoadObjects returns all objects from store.
func (s *ObjectStore[T, TPtr]) LoadObjects(ctx context.Context) (Rows[T], error) {
	query := s.db.Select(s.table)
	query.SetNames(s.columns...)
	rawQuery, args := query.Build()
	return s.query(ctx, rawQuery, args)
}

// UpdateWhere sets specified columns of rows that match expression and
// returns amount of updated rows.
//
// This is the only way to mutate existing rows. Callers that need
// compare-and-swap semantics put the expected state into expression.
func (s *ObjectStore[T, TPtr]) UpdateWhere(
	ctx context.Context, where gosql.BoolExpression,
	names []string, values []any,
) (int64, error) {
	if len(names) != len(values) {
		return 0, fmt.Errorf("names and values have different lengths")
	}
	query := s.db.Update(s.table)
	query.SetNames(names...)
	query.SetValues(values...)
	query.SetWhere(where)
	rawQuery, args := query.Build()
	res, err := GetRunner(ctx, s.db).ExecContext(ctx, rawQuery, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteObject deletes object with specified ID.
func (s *ObjectStore[T, TPtr]) DeleteObject(ctx context.Context, id int64) error {
	query := s.db.Delete(s.table)
	query.SetWhere(gosql.Column(s.id).Equal(id))
	rawQuery, args := query.Build()
	res, err := GetRunner(ctx, s.db).ExecContext(ctx, rawQuery, args...)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count != 1 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *ObjectStore[T, TPtr]) query(
	ctx context.Context, rawQuery string, args []any,
) (Rows[T], error) {
	rows, err := GetRunner(ctx, s.db).QueryContext(ctx, rawQuery, args...)
	if err != nil {
		return nil, err
	}
	if err := checkColumns(rows, s.columns); err != nil {
		_ = rows.Close()
		return nil, err
	}
	return newRowReader[T](rows), nil
}
