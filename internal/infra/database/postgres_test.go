package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/arklim/account-service/internal/infra/config"
)

func TestDSN(t *testing.T) {
	got := DSN(config.PostgresSettings{
		Host:     "db",
		Port:     5433,
		User:     "account",
		Password: "secret",
		Database: "accounts",
		SSLMode:  "require",
	})

	want := "postgres://account:secret@db:5433/accounts?sslmode=require"
	if got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}

func TestDSNEscapesCredentials(t *testing.T) {
	got := DSN(config.PostgresSettings{
		Host:     "db",
		Port:     5432,
		User:     "account",
		Password: "p@ss/word",
		Database: "accounts",
		SSLMode:  "disable",
	})

	want := "postgres://account:p%40ss%2Fword@db:5432/accounts?sslmode=disable"
	if got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one migration")
	}

	body, err := fs.ReadFile(migrations, "migrations/"+entries[0].Name())
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(body), "-- +goose Up") {
		t.Fatalf("migration %s lacks goose annotation", entries[0].Name())
	}
}
