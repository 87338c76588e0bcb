// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/georgysavva/scany/v2/sqlscan"
	_ "github.com/lib/pq" //nolint
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

// Postgres helps interact with a Postgres database
type Postgres struct {
	connStr      string
	dbConnection *sql.DB
	config       *Config
}

const postgresDriver = "postgres"
const instrumentationName = "storage"

// New returns a storage connecting to the given Postgres database.
func New(config *Config) *Postgres {
	postgres := new(Postgres)
	postgres.config = config
	postgres.connStr = createConnectionString(config.DBHost, config.DBPort, config.DBName, config.DBUser, config.DBPassword, config.DBSchema)
	return postgres
}

// Connect opens the connection pool and pings the database
func (p *Postgres) Connect(ctx context.Context) error {
	db, err := open(p.connStr)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		return multierr.Append(errors.Wrap(err, "failed to ping database connection"), db.Close())
	}

	db.SetMaxOpenConns(p.config.MaxOpenConnections)
	db.SetMaxIdleConns(p.config.MaxIdleConnections)
	db.SetConnMaxLifetime(p.config.ConnectionMaxLifetime)

	p.dbConnection = db
	return nil
}

// Ping opens a short-lived connection, runs a trivial round trip and closes it.
// It does not touch the pool opened by Connect.
func (p *Postgres) Ping(ctx context.Context) error {
	tracer := otel.GetTracerProvider()
	spanCtx, span := tracer.Tracer(instrumentationName).Start(ctx, "storage.ping")
	defer span.End()

	db, err := open(p.connStr)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)

	var one int
	err = db.QueryRowContext(spanCtx, "SELECT 1").Scan(&one)
	return multierr.Combine(err, db.Close())
}

func open(connStr string) (*sql.DB, error) {
	db, err := otelsql.Open(postgresDriver, connStr,
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open connection")
	}
	return db, nil
}

// createConnectionString will create the Postgres connection string from the
// supplied connection details
func createConnectionString(host string, port int, name, user string, password string, schema string) string {
	info := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", host, port, user, name)
	// the driver gets confused when an empty password is passed
	if password != "" {
		info += fmt.Sprintf(" password=%s", password)
	}

	if schema != "" {
		info += fmt.Sprintf(" search_path=%s", schema)
	}

	return info
}

// Exec executes a sql query without returning rows against the database
func (p *Postgres) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tracer := otel.GetTracerProvider()
	spanCtx, span := tracer.Tracer(instrumentationName).Start(ctx, "storage.exec")
	defer span.End()
	return p.dbConnection.ExecContext(spanCtx, query, args...)
}

// BeginTx starts a new database transaction
func (p *Postgres) BeginTx(ctx context.Context, txOptions *sql.TxOptions) (*sql.Tx, error) {
	tracer := otel.GetTracerProvider()
	spanCtx, span := tracer.Tracer(instrumentationName).Start(ctx, "storage.beginTx")
	defer span.End()
	return p.dbConnection.BeginTx(spanCtx, txOptions)
}

// InTx runs fn inside a transaction committed when fn succeeds and rolled back otherwise
func (p *Postgres) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		return multierr.Append(err, tx.Rollback())
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// SelectAll fetches rows. It returns nil when there is no row to fetch.
func (p *Postgres) SelectAll(ctx context.Context, dst any, query string, args ...any) error {
	tracer := otel.GetTracerProvider()
	spanCtx, span := tracer.Tracer(instrumentationName).Start(ctx, "storage.selectAll")
	defer span.End()
	err := sqlscan.Select(spanCtx, p.dbConnection, dst, query, args...)
	if err != nil && !sqlscan.NotFound(err) {
		return err
	}
	return nil
}

// Select fetches only one row. It returns sql.ErrNoRows when there is none.
func (p *Postgres) Select(ctx context.Context, dst any, query string, args ...any) error {
	tracer := otel.GetTracerProvider()
	spanCtx, span := tracer.Tracer(instrumentationName).Start(ctx, "storage.select")
	defer span.End()
	err := sqlscan.Get(spanCtx, p.dbConnection, dst, query, args...)
	if sqlscan.NotFound(err) {
		return sql.ErrNoRows
	}
	return err
}

// Disconnect the database connection.
func (p *Postgres) Disconnect(context.Context) error {
	if p.dbConnection == nil {
		return nil
	}
	return p.dbConnection.Close()
}
