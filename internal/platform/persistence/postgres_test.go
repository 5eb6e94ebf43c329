package persistence

import (
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestPostgresDB_Pool(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// pgxpool needs a live server, so only the accessor is verifiable here
	var nilPool *pgxpool.Pool
	db := &PostgresDB{pool: nilPool, logger: logger}

	assert.Equal(t, nilPool, db.Pool())
}
