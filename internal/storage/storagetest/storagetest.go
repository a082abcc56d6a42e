// Package storagetest opens a throwaway SQLite database with the application schema
// for package tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"skillswap/backend/internal/models"
	"skillswap/backend/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// schema mirrors internal/database/migrations in SQLite syntax. Skills columns hold the
// pq.StringArray text form.
var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		verified BOOLEAN NOT NULL DEFAULT 0,
		bio TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		skills TEXT,
		telegram_chat_id INTEGER NOT NULL DEFAULT 0,
		language TEXT NOT NULL DEFAULT 'en',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE service_requests (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		budget REAL NOT NULL,
		deadline DATETIME NOT NULL,
		skills TEXT NOT NULL,
		status TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		assigned_to TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE chat_channels (
		id TEXT PRIMARY KEY,
		service_request_id TEXT NOT NULL UNIQUE,
		owner_id TEXT NOT NULL,
		assignee_id TEXT NOT NULL,
		status TEXT NOT NULL,
		last_activity DATETIME NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		content TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE skill_exchanges (
		id TEXT PRIMARY KEY,
		requester_id TEXT NOT NULL,
		partner_id TEXT NOT NULL,
		offered_skill TEXT NOT NULL,
		wanted_skill TEXT NOT NULL,
		status TEXT NOT NULL,
		credits INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
}

// OpenDB returns a migrated SQLite database in the test's temp dir.
// A single connection serializes writers the way row locks do on PostgreSQL.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "skillswap.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

// Store is a storage.Service over SQLite; one-time passwords stay in process memory.
type Store struct {
	*storage.Service
}

func New(t testing.TB) *Store {
	return &Store{Service: storage.NewStorageService(OpenDB(t), nil, nil)}
}

// SeedUser inserts a verified user.
func (s *Store) SeedUser(t testing.TB, name string) *models.User {
	t.Helper()
	u := &models.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Verified:     true,
		Language:     "en",
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}
