// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luismartinez/auth-api/internal/database"
)

func TestOpen_InMemory(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping())
}

func TestOpen_RunsMigrations(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.Get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'users'`)
	require.NoError(t, err)
	assert.Equal(t, "users", name)
}

func TestOpen_UniqueEmailIndex(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES ('a', 'a@x.com', 'h', '2026-01-01', '2026-01-01')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES ('b', 'a@x.com', 'h', '2026-01-01', '2026-01-01')`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")
}
