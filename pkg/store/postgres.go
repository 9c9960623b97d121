/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package store

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
)

const (
	migrationsTable = "stackdock_schema_migrations"
	upsertBatchSize = 500
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var errTLSIncomplete = errors.New("postgres tls: cert_file, key_file and ca_file are required")

// querier is the subset of pgxpool.Pool the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore keeps records in the stackdock_resources table.
type PostgresStore struct {
	db     querier
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewPostgresStore dials cfg, runs pending migrations and returns the store.
func NewPostgresStore(ctx context.Context, cfg *models.PostgresDatabase, log logger.Logger) (*PostgresStore, error) {
	if cfg == nil {
		return nil, ErrNotConfigured
	}

	pool, err := NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{db: pool, pool: pool, logger: log}, nil
}

// NewPool builds a pgx pool from the database config.
func NewPool(ctx context.Context, cfg *models.PostgresDatabase, log logger.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse connection string: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	if cfg.MinConnections > 0 {
		poolConfig.MinConns = cfg.MinConnections
	}

	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime)
	}

	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = time.Duration(cfg.HealthCheckPeriod)
	}

	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = make(map[string]string)
	}

	for k, v := range cfg.ExtraRuntimeParams {
		if k != "" {
			poolConfig.ConnConfig.RuntimeParams[k] = v
		}
	}

	if cfg.StatementTimeout > 0 {
		ms := time.Duration(cfg.StatementTimeout) / time.Millisecond
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(int64(ms), 10)
	}

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	if tlsConfig != nil {
		poolConfig.ConnConfig.TLSConfig = tlsConfig
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to initialize pool: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Connected to Postgres")

	return pool, nil
}

func connString(cfg *models.PostgresDatabase) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:   "/" + cfg.Database,
	}

	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}

	q := u.Query()

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	q.Set("sslmode", sslMode)

	if cfg.ApplicationName != "" {
		q.Set("application_name", cfg.ApplicationName)
	}

	u.RawQuery = q.Encode()

	return u.String()
}

func buildTLSConfig(cfg *models.PostgresDatabase) (*tls.Config, error) {
	if cfg.TLS == nil {
		return nil, nil
	}

	if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" || cfg.TLS.CAFile == "" {
		return nil, errTLSIncomplete
	}

	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("postgres tls: failed to load client keypair: %w", err)
	}

	ca, err := os.ReadFile(cfg.TLS.CAFile)
	if err != nil {
		return nil, fmt.Errorf("postgres tls: failed to read CA file: %w", err)
	}

	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("postgres tls: unable to append CA certificate from %s", cfg.TLS.CAFile)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      roots,
		MinVersion:   tls.VersionTLS12,
		ServerName:   cfg.Host,
	}, nil
}

// Migrate applies embedded *.up.sql files not yet recorded in the tracking table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("migrations: acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("migrations: create tracking table: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	names, err := pendingMigrations(applied)
	if err != nil {
		return err
	}

	for _, name := range names {
		log.Info().Str("migration", name).Msg("Applying migration")

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("migrations: read %s: %w", name, err)
		}

		for idx, stmt := range splitSQLStatements(string(content)) {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrations: statement %d in %s failed: %w", idx+1, name, err)
			}
		}

		if _, err := conn.Exec(ctx, `INSERT INTO `+migrationsTable+` (version) VALUES ($1)`, migrationVersion(name)); err != nil {
			return fmt.Errorf("migrations: record %s: %w", name, err)
		}
	}

	return nil
}

func appliedVersions(ctx context.Context, conn *pgxpool.Conn) (map[string]struct{}, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM `+migrationsTable)
	if err != nil {
		return nil, fmt.Errorf("migrations: list applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("migrations: scan applied version: %w", err)
		}

		applied[version] = struct{}{}
	}

	return applied, rows.Err()
}

func pendingMigrations(applied map[string]struct{}) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations: read embedded migrations: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		if _, ok := applied[migrationVersion(entry.Name())]; ok {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}

// migrationVersion turns "00001_resources.up.sql" into "00001".
func migrationVersion(name string) string {
	if i := strings.IndexByte(name, '_'); i > 0 {
		return name[:i]
	}

	return strings.TrimSuffix(name, ".up.sql")
}

func splitSQLStatements(content string) []string {
	parts := strings.Split(content, ";")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if stmt := strings.TrimSpace(p); stmt != "" {
			out = append(out, stmt)
		}
	}

	return out
}

const upsertSQL = `INSERT INTO stackdock_resources (
	provider, resource_type, id, name, status, region,
	cross_ref_id, hostname, public_ip, provider_data, last_synced_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (provider, resource_type, id) DO UPDATE SET
	name = EXCLUDED.name,
	status = EXCLUDED.status,
	region = EXCLUDED.region,
	cross_ref_id = EXCLUDED.cross_ref_id,
	hostname = EXCLUDED.hostname,
	public_ip = EXCLUDED.public_ip,
	provider_data = EXCLUDED.provider_data,
	last_synced_at = EXCLUDED.last_synced_at`

// UpsertRecords writes records in batches.
func (p *PostgresStore) UpsertRecords(ctx context.Context, records []*models.ResourceRecord) error {
	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))

		batch := &pgx.Batch{}

		for _, rec := range records[start:end] {
			if err := validate(rec); err != nil {
				return err
			}

			batch.Queue(upsertSQL, upsertArgs(rec)...)
		}

		if err := p.sendBatch(ctx, batch); err != nil {
			return err
		}
	}

	return nil
}

func upsertArgs(rec *models.ResourceRecord) []any {
	var payload any
	if len(rec.ProviderData.Raw) > 0 {
		payload = []byte(rec.ProviderData.Raw)
	}

	return []any{
		rec.ProviderName,
		string(rec.ResourceType),
		rec.ID,
		rec.Name,
		rec.Status,
		rec.Region,
		rec.Fingerprint.CrossRefID,
		rec.Fingerprint.Hostname,
		rec.Fingerprint.PublicIP,
		payload,
		rec.LastSyncedAt.UTC(),
	}
}

func (p *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch) (err error) {
	br := p.db.SendBatch(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("postgres upsert batch close: %w", closeErr)
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err = br.Exec(); err != nil {
			return fmt.Errorf("postgres upsert (command %d): %w", i, err)
		}
	}

	return nil
}

func (p *PostgresStore) PruneStale(ctx context.Context, provider string, rt models.ResourceType, before time.Time) (int, error) {
	tag, err := p.db.Exec(ctx,
		`DELETE FROM stackdock_resources WHERE provider = $1 AND resource_type = $2 AND last_synced_at < $3`,
		provider, string(rt), before.UTC())
	if err != nil {
		return 0, fmt.Errorf("postgres prune %s/%s: %w", provider, rt, err)
	}

	return int(tag.RowsAffected()), nil
}

func (p *PostgresStore) ListRecords(ctx context.Context, rt models.ResourceType) ([]*models.ResourceRecord, error) {
	rows, err := p.db.Query(ctx, `SELECT provider, id, name, status, region,
		cross_ref_id, hostname, public_ip, provider_data, last_synced_at
		FROM stackdock_resources WHERE resource_type = $1 ORDER BY provider, id`, string(rt))
	if err != nil {
		return nil, fmt.Errorf("postgres list %s: %w", rt, err)
	}
	defer rows.Close()

	var out []*models.ResourceRecord

	for rows.Next() {
		rec := &models.ResourceRecord{ResourceType: rt}

		var payload []byte

		if err := rows.Scan(
			&rec.ProviderName, &rec.ID, &rec.Name, &rec.Status, &rec.Region,
			&rec.Fingerprint.CrossRefID, &rec.Fingerprint.Hostname, &rec.Fingerprint.PublicIP,
			&payload, &rec.LastSyncedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres scan %s: %w", rt, err)
		}

		rec.ProviderData = models.ExtensionBlob{Provider: rec.ProviderName, Raw: json.RawMessage(payload)}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres list %s: %w", rt, err)
	}

	return out, nil
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}

	return nil
}
