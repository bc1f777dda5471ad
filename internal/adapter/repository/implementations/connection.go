package implementations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/splitledger/debtsync/internal/logger"
)

// Pool sizing leans toward short bursts: batch commits open one transaction
// each, and acceptance transactions are short-lived.
const (
	poolMaxIdleConns    = 20
	poolMaxOpenConns    = 30
	poolConnMaxIdleTime = 5 * time.Minute
	poolConnMaxLifetime = 15 * time.Minute
)

// Open connects to the ledger database and verifies the connection before
// handing it to the repositories.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxIdleConns(poolMaxIdleConns)
	db.SetMaxOpenConns(poolMaxOpenConns)
	db.SetConnMaxIdleTime(poolConnMaxIdleTime)
	db.SetConnMaxLifetime(poolConnMaxLifetime)

	logger.Info("database connection pool ready", logger.Fields{
		"maxIdleConns": poolMaxIdleConns,
		"maxOpenConns": poolMaxOpenConns,
	})
	return db, nil
}
