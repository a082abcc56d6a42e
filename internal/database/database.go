// Package database opens the PostgreSQL connection and applies the embedded migrations.
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open connects GORM to PostgreSQL.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

func ensureDatabase(databaseURL string, log *slog.Logger) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return fmt.Errorf("database name is empty in url")
	}
	u.Path = "/postgres"
	db, err := sql.Open("postgres", u.String())
	if err != nil {
		return fmt.Errorf("open admin connection: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping admin connection: %w", err)
	}
	var exists bool
	if err := db.QueryRow("SELECT true FROM pg_database WHERE datname = $1", dbName).Scan(&exists); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		return nil
	}
	if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	log.Info("database created", "name", dbName)
	return nil
}

func open(databaseURL string, log *slog.Logger) (*sql.DB, error) {
	if err := ensureDatabase(databaseURL, log); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(databaseURL string, log *slog.Logger) error {
	db, err := open(databaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	before, _ := goose.GetDBVersion(db)
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	after, _ := goose.GetDBVersion(db)
	if before == after {
		log.Info("migrate: no pending migrations", "version", after)
	} else {
		log.Info("migrate: up ok", "from", before, "to", after)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(databaseURL string, log *slog.Logger) error {
	db, err := open(databaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()
	return goose.Down(db, "migrations")
}

// MigrationStatus prints the applied state of every migration through goose's logger.
func MigrationStatus(databaseURL string, log *slog.Logger) error {
	db, err := open(databaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()
	return goose.Status(db, "migrations")
}
