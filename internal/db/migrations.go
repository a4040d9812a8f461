package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/udovin/gosql"
	"golang.org/x/exp/slices"

	"github.com/udovin/peerreview/internal/db/schema"
)

// Migration represents database migration.
type Migration interface {
	// Name should return unique migration name.
	Name() string
	// Apply should apply database migration.
	Apply(ctx context.Context, conn *gosql.DB) error
	// Unapply should unapply database migration.
	Unapply(ctx context.Context, conn *gosql.DB) error
}

// NewSchemaMigration returns migration that applies schema operations
// in order and unapplies them in reverse order.
func NewSchemaMigration(name string, operations ...schema.Operation) Migration {
	return schemaMigration{name: name, operations: operations}
}

type schemaMigration struct {
	name       string
	operations []schema.Operation
}

func (m schemaMigration) Name() string {
	return m.name
}

func (m schemaMigration) Apply(ctx context.Context, conn *gosql.DB) error {
	for _, operation := range m.operations {
		query, err := operation.BuildApply(conn.Dialect())
		if err != nil {
			return err
		}
		if _, err := GetRunner(ctx, conn).ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (m schemaMigration) Unapply(ctx context.Context, conn *gosql.DB) error {
	for i := len(m.operations) - 1; i >= 0; i-- {
		query, err := m.operations[i].BuildUnapply(conn.Dialect())
		if err != nil {
			return err
		}
		if _, err := GetRunner(ctx, conn).ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// MigrationState represents state of migration.
type MigrationState struct {
	Name      string
	Applied   bool
	Supported bool
}

// MigrationOption represents option for ApplyMigrations.
type MigrationOption func(state []MigrationState, endPos *int) error

// WithMigration applies or unapplies migrations up to specified one.
func WithMigration(name string) MigrationOption {
	if name == "zero" {
		return WithZeroMigration
	}
	return func(state []MigrationState, endPos *int) error {
		for i := 0; i < len(state); i++ {
			if state[i].Name == name {
				*endPos = i + 1
				return nil
			}
		}
		return fmt.Errorf("invalid migration %q", name)
	}
}

// WithZeroMigration unapplies all migrations.
func WithZeroMigration(state []MigrationState, endPos *int) error {
	*endPos = 0
	return nil
}

type migration struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Time int64  `db:"time"`
}

func (o migration) ObjectID() int64 {
	return o.ID
}

func (o *migration) SetObjectID(id int64) {
	o.ID = id
}

type migrationManager struct {
	db         *gosql.DB
	store      *ObjectStore[migration, *migration]
	migrations []Migration
}

func newMigrationManager(
	ctx context.Context, conn *gosql.DB, prefix string, migrations []Migration,
) (*migrationManager, error) {
	table := prefix + "_migration"
	createTable := schema.CreateTable{
		Name: table,
		Columns: []schema.Column{
			{Name: "id", Type: schema.Int64, PrimaryKey: true, AutoIncrement: true},
			{Name: "name", Type: schema.String},
			{Name: "time", Type: schema.Int64},
		},
	}
	query, err := createTable.BuildApply(conn.Dialect())
	if err != nil {
		return nil, err
	}
	if _, err := GetRunner(ctx, conn).ExecContext(ctx, query); err != nil {
		return nil, err
	}
	names := map[string]struct{}{}
	for _, m := range migrations {
		if _, ok := names[m.Name()]; ok {
			return nil, fmt.Errorf("migration %q already registered", m.Name())
		}
		names[m.Name()] = struct{}{}
	}
	return &migrationManager{
		db:         conn,
		store:      NewObjectStore[migration]("id", table, conn),
		migrations: migrations,
	}, nil
}

func (m *migrationManager) getState(ctx context.Context) ([]MigrationState, error) {
	rows, err := m.store.LoadObjects(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := CollectRows(rows)
	if err != nil {
		return nil, err
	}
	appliedNames := map[string]struct{}{}
	for _, a := range applied {
		appliedNames[a.Name] = struct{}{}
	}
	var state []MigrationState
	supported := map[string]struct{}{}
	for _, impl := range m.migrations {
		_, ok := appliedNames[impl.Name()]
		state = append(state, MigrationState{
			Name:      impl.Name(),
			Applied:   ok,
			Supported: true,
		})
		supported[impl.Name()] = struct{}{}
	}
	// Migrations that were applied by newer versions go last.
	slices.SortFunc(applied, func(a, b migration) bool {
		return a.ID < b.ID
	})
	for _, a := range applied {
		if _, ok := supported[a.Name]; !ok {
			state = append(state, MigrationState{
				Name:    a.Name,
				Applied: true,
			})
		}
	}
	return state, nil
}

func (m *migrationManager) getImpl(name string) (Migration, bool) {
	for _, impl := range m.migrations {
		if impl.Name() == name {
			return impl, true
		}
	}
	return nil, false
}

func (m *migrationManager) applyForward(ctx context.Context, state []MigrationState) error {
	for _, mgr := range state {
		if mgr.Applied {
			continue
		}
		impl, ok := m.getImpl(mgr.Name)
		if !ok {
			return fmt.Errorf("migration %q is not supported", mgr.Name)
		}
		if err := gosql.WrapTx(ctx, m.db, func(tx *sql.Tx) error {
			ctx := WithTx(ctx, tx)
			if err := impl.Apply(ctx, m.db); err != nil {
				return err
			}
			object := migration{
				Name: mgr.Name,
				Time: time.Now().Unix(),
			}
			return m.store.CreateObject(ctx, &object)
		}); err != nil {
			return fmt.Errorf("cannot apply migration %q: %w", mgr.Name, err)
		}
	}
	return nil
}

func (m *migrationManager) applyBackward(ctx context.Context, state []MigrationState) error {
	for i := len(state) - 1; i >= 0; i-- {
		mgr := state[i]
		if !mgr.Applied {
			continue
		}
		impl, ok := m.getImpl(mgr.Name)
		if !ok {
			return fmt.Errorf("migration %q is not supported", mgr.Name)
		}
		if err := gosql.WrapTx(ctx, m.db, func(tx *sql.Tx) error {
			ctx := WithTx(ctx, tx)
			object, err := m.store.FindObject(ctx, gosql.Column("name").Equal(mgr.Name))
			if err != nil {
				return err
			}
			if err := impl.Unapply(ctx, m.db); err != nil {
				return err
			}
			return m.store.DeleteObject(ctx, object.ID)
		}); err != nil {
			return fmt.Errorf("cannot unapply migration %q: %w", mgr.Name, err)
		}
	}
	return nil
}

// GetMigrationsState returns state of all known and applied migrations.
func GetMigrationsState(
	ctx context.Context, conn *gosql.DB, prefix string, migrations []Migration,
) ([]MigrationState, error) {
	m, err := newMigrationManager(ctx, conn, prefix, migrations)
	if err != nil {
		return nil, err
	}
	return m.getState(ctx)
}

// ApplyMigrations applies or unapplies migrations.
//
// Without options all migrations are applied.
func ApplyMigrations(
	ctx context.Context, conn *gosql.DB, prefix string, migrations []Migration,
	options ...MigrationOption,
) error {
	m, err := newMigrationManager(ctx, conn, prefix, migrations)
	if err != nil {
		return err
	}
	state, err := m.getState(ctx)
	if err != nil {
		return err
	}
	endPos := len(state)
	for _, option := range options {
		if err := option(state, &endPos); err != nil {
			return err
		}
	}
	if err := m.applyBackward(ctx, state[endPos:]); err != nil {
		return err
	}
	return m.applyForward(ctx, state[:endPos])
}
