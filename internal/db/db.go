// Package db provides implementation of generic object store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/udovin/gosql"
)

type dbKey struct{}

// WithRunner returns context that forces stores to use specified runner.
func WithRunner(ctx context.Context, db gosql.Runner) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// GetRunner returns runner from context or default runner.
func GetRunner(ctx context.Context, db gosql.Runner) gosql.Runner {
	if r, ok := ctx.Value(dbKey{}).(gosql.Runner); ok {
		return r
	}
	return db
}

// WithTx returns context with transaction.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return WithRunner(ctx, tx)
}

// GetTx returns transaction from context.
func GetTx(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(dbKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// Rows represents reader for objects.
type Rows[T any] interface {
	// Next should read next row and return true if row exists.
	Next() bool
	// Row should return current row.
	Row() T
	// Close should close reader.
	Close() error
	// Err should return error that occurred during reading.
	Err() error
}

// CollectRows reads all rows and closes reader.
func CollectRows[T any](rows Rows[T]) ([]T, error) {
	defer func() { _ = rows.Close() }()
	var result []T
	for rows.Next() {
		result = append(result, rows.Row())
	}
	return result, rows.Err()
}

type rowReader[T any] struct {
	rows *sql.Rows
	err  error
	row  T
	// refs contains pointers for each field in row.
	refs []any
}

func (r *rowReader[T]) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	r.err = r.rows.Scan(r.refs...)
	return r.err == nil
}

func (r *rowReader[T]) Row() T {
	return r.row
}

func (r *rowReader[T]) Close() error {
	return r.rows.Close()
}

func (r *rowReader[T]) Err() error {
	if err := r.rows.Err(); err != nil {
		return err
	}
	return r.err
}

func getRowFields[T any](row *T) []any {
	var fields []any
	var recursive func(reflect.Value)
	recursive = func(v reflect.Value) {
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if _, ok := t.Field(i).Tag.Lookup("db"); ok {
				fields = append(fields, v.Field(i).Addr().Interface())
			} else if t.Field(i).Anonymous {
				recursive(v.Field(i))
			}
		}
	}
	recursive(reflect.ValueOf(row).Elem())
	return fields
}

func newRowReader[T any](rows *sql.Rows) *rowReader[T] {
	r := &rowReader[T]{rows: rows}
	r.refs = getRowFields(&r.row)
	return r
}

func checkColumns(rows *sql.Rows, cols []string) error {
	rowCols, err := rows.Columns()
	if err != nil {
		return err
	}
	if len(cols) != len(rowCols) {
		return fmt.Errorf("result has invalid column sequence: %v != %v", cols, rowCols)
	}
	for i := 0; i < len(cols); i++ {
		if cols[i] != rowCols[i] {
			return fmt.Errorf("result has invalid column sequence: %v != %v", cols, rowCols)
		}
	}
	return nil
}

func getColumns[T any]() []string {
	var cols []string
	var recursive func(reflect.Type)
	recursive = func(t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			if db, ok := t.Field(i).Tag.Lookup("db"); ok {
				name := strings.Split(db, ",")[0]
				cols = append(cols, name)
			} else if t.Field(i).Anonymous {
				recursive(t.Field(i).Type)
			}
		}
	}
	var object T
	recursive(reflect.TypeOf(object))
	return cols
}

func prepareUpsert(value reflect.Value, id string) ([]string, []any) {
	var cols []string
	var vals []any
	var recursive func(reflect.Value)
	recursive = func(v reflect.Value) {
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if db, ok := t.Field(i).Tag.Lookup("db"); ok {
				name := strings.Split(db, ",")[0]
				if name == id {
					continue
				}
				cols = append(cols, name)
				vals = append(vals, v.Field(i).Interface())
			} else if t.Field(i).Anonymous {
				recursive(v.Field(i))
			}
		}
	}
	recursive(value)
	return cols, vals
}

func insertRow[T any](
	ctx context.Context, db *gosql.DB, row T, rowID *int64,
	id, table string,
) error {
	cols, vals := prepareUpsert(reflect.ValueOf(row), id)
	query := db.Insert(table)
	query.SetNames(cols...)
	query.SetValues(vals...)
	switch q := query.(type) {
	case *gosql.PostgresInsertQuery:
		q.SetReturning(id)
		rawQuery, args := q.Build()
		res := GetRunner(ctx, db).QueryRowContext(ctx, rawQuery, args...)
		return res.Scan(rowID)
	default:
		rawQuery, args := query.Build()
		res, err := GetRunner(ctx, db).ExecContext(ctx, rawQuery, args...)
		if err != nil {
			return err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if count != 1 {
			return fmt.Errorf("invalid amount of affected rows: %d", count)
		}
		*rowID, err = res.LastInsertId()
		return err
	}
}
