// Package database opens the MySQL handle backing the booking core:
// the sessions timetable, the per-date occurrence counters and the
// reservation ledger all live in one schema.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool bounds the connection pool.  Booking transactions hold
// occurrence row locks, so idle connections are kept warm to avoid
// dial latency inside the lock window; zero values fall back to the
// defaults.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// dsn builds the go-sql-driver DSN.
//
// parseTime=true   -> DATETIME -> time.Time
// loc=UTC          -> keeps timestamps consistent across the schema
// clientFoundRows  -> RowsAffected reports matched rows, not changed
//
//	rows; repository guards rely on 0 meaning "no
//	row matched", so an idempotent re-submit of the
//	current values must not look like a miss.
func dsn(user, pass, host, port, name string) string {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, host, port, name)
}

// Open connects to MySQL with the given pool bounds and verifies the
// connection.
func Open(user, pass, host, port, name string, pool Pool) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	if pool.MaxOpen == 0 {
		pool.MaxOpen = 25
	}
	if pool.MaxIdle == 0 {
		pool.MaxIdle = pool.MaxOpen
	}
	if pool.MaxLifetime == 0 {
		pool.MaxLifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
