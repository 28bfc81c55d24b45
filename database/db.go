/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/blnkfinance/ledgerd/config"
	"github.com/blnkfinance/ledgerd/internal/apierror"
	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
)

// MemoryDSN selects the in-process store instead of postgres.
const MemoryDSN = "memory://"

// Datasource is the postgres-backed Ledger Store. Conn is the process-wide pool;
// it is created once and shared by reference.
type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(conn *sql.DB) *Datasource {
	return &Datasource{Conn: conn}
}

// Open builds the store selected by the configured DNS.
func Open(cfg config.DataSourceConfig) (IDataSource, error) {
	if cfg.Dns == MemoryDSN {
		log.Println("Using in-memory ledger store. Data will not survive a restart.")
		return NewMemoryStore(), nil
	}
	conn, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewDataSource(conn), nil
}

// ConnectDB opens the pool and pings until the server answers or ConnectTimeout elapses.
func ConnectDB(cfg config.DataSourceConfig) (*sql.DB, error) {
	if strings.TrimSpace(cfg.Dns) == "" {
		return nil, errors.New("data source DNS is required")
	}

	db, err := sql.Open("postgres", cfg.Dns)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "opening database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.ConnectTimeout
	err = backoff.Retry(func() error {
		pingErr := db.Ping()
		if pingErr != nil {
			log.Printf("database connection error ❌: %v", pingErr)
			if isPermanentConnError(pingErr) {
				return backoff.Permanent(pingErr)
			}
		}
		return pingErr
	}, policy)
	if err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "pinging database")
	}

	log.Println("Database connection established ✅")
	return db, nil
}

// isPermanentConnError reports errors that retrying cannot fix, such as a malformed DSN
// or rejected credentials.
func isPermanentConnError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "28", "3D": // invalid authorization, invalid catalog name
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "missing \"=\"") || strings.Contains(msg, "invalid connection protocol") || strings.Contains(msg, "unknown authentication")
}

func (d Datasource) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.Conn.PingContext(ctx)
}

// storageError wraps a driver failure as a StorageError.
func storageError(message string, err error) error {
	return apierror.NewAPIError(apierror.ErrStorage, message, err)
}

// idempotencyConflict reports a key that was already used for a different entry.
func idempotencyConflict() error {
	return apierror.NewAPIError(apierror.ErrConflict, "Idempotency-Key was already used with a different request", nil)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
