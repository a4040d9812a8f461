package migrations_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/udovin/peerreview/internal/config"
	"github.com/udovin/peerreview/internal/db"
	"github.com/udovin/peerreview/internal/migrations"
)

func testMigrations(t *testing.T, cfg config.DB) {
	conn, err := cfg.Create()
	if err != nil {
		t.Fatal("Error:", err)
	}
	defer func() { _ = conn.Close() }()
	ctx := context.Background()
	if err := db.ApplyMigrations(ctx, conn, migrations.Prefix, migrations.Schema); err != nil {
		t.Fatal("Error:", err)
	}
	state, err := db.GetMigrationsState(ctx, conn, migrations.Prefix, migrations.Schema)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(state) != len(migrations.Schema) {
		t.Fatalf("Expected %d migrations, got %d", len(migrations.Schema), len(state))
	}
	for _, s := range state {
		if !s.Applied || !s.Supported {
			t.Fatalf("Migration %q is in invalid state: %+v", s.Name, s)
		}
	}
	// Second apply should do nothing.
	if err := db.ApplyMigrations(ctx, conn, migrations.Prefix, migrations.Schema); err != nil {
		t.Fatal("Error:", err)
	}
	if err := db.ApplyMigrations(
		ctx, conn, migrations.Prefix, migrations.Schema, db.WithZeroMigration,
	); err != nil {
		t.Fatal("Error:", err)
	}
	state, err = db.GetMigrationsState(ctx, conn, migrations.Prefix, migrations.Schema)
	if err != nil {
		t.Fatal("Error:", err)
	}
	for _, s := range state {
		if s.Applied {
			t.Fatalf("Migration %q should be unapplied", s.Name)
		}
	}
	if err := db.ApplyMigrations(
		ctx, conn, migrations.Prefix, migrations.Schema, db.WithMigration("unknown"),
	); err == nil {
		t.Fatal("Expected error for unknown migration")
	}
}

func TestMigrations(t *testing.T) {
	testMigrations(t, config.DB{
		Options: config.SQLiteOptions{Path: ":memory:"},
	})
}

func TestPostgresMigrations(t *testing.T) {
	pgHost, ok := os.LookupEnv("POSTGRES_HOST")
	if !ok {
		t.Skip()
	}
	pgPortStr, ok := os.LookupEnv("POSTGRES_PORT")
	if !ok {
		t.Skip()
	}
	pgPort, err := strconv.Atoi(pgPortStr)
	if err != nil {
		t.Fatal("Error:", err)
	}
	testMigrations(t, config.DB{
		Options: config.PostgresOptions{
			Hosts:    []string{fmt.Sprintf("%s:%d", pgHost, pgPort)},
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			SSLMode:  "disable",
		},
	})
}
