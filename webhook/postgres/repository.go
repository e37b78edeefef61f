package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/marcelsud/webhook-inspector/webhook"
)

/*
PostgreSQL Repository

- id is a UUID column; UUIDv7 byte order is creation order, so the primary key
  index serves "id < $1 ORDER BY id DESC" range scans directly
- headers and query_params are JSON (jsonb refuses \u0000), body is BYTEA so
  NUL bytes and invalid UTF-8 are stored as received
- TEXT columns cannot hold either, free-form text goes through textParam
- every insert is a single INSERT ... RETURNING statement
*/

const DriverName = "postgres"

const columns = `id, method, pathname, ip, status_code, content_type, content_length,
	query_params, headers, body, created_at`

type Repository struct {
	DB *sqlx.DB
}

type row struct {
	ID            string         `db:"id"`
	Method        string         `db:"method"`
	Pathname      string         `db:"pathname"`
	IP            string         `db:"ip"`
	StatusCode    int            `db:"status_code"`
	ContentType   sql.NullString `db:"content_type"`
	ContentLength sql.NullInt64  `db:"content_length"`
	QueryParams   []byte         `db:"query_params"`
	Headers       []byte         `db:"headers"`
	Body          []byte         `db:"body"`
	CreatedAt     time.Time      `db:"created_at"`
}

type summaryRow struct {
	ID        string    `db:"id"`
	Method    string    `db:"method"`
	Pathname  string    `db:"pathname"`
	CreatedAt time.Time `db:"created_at"`
}

// NewRepository opens a repository with the default pool (25, 5, 5 min)
func NewRepository(connectionString string) (*Repository, error) {
	return NewRepositoryWithPoolConfig(connectionString, 25, 5, 5)
}

// NewRepositoryWithPoolConfig opens a repository with a custom pool
// maxOpenConns: maximum simultaneous connections (0 = unlimited)
// maxIdleConns: idle connections kept in the pool
// maxLifeMinutes: maximum time a connection may be reused
func NewRepositoryWithPoolConfig(connectionString string, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Repository, error) {
	db, err := sqlx.Open(DriverName, connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxLifeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(maxLifeMinutes) * time.Minute)
	}

	return &Repository{
		DB: db,
	}, nil
}

// Insert stores the draft and returns the stored row
func (r *Repository) Insert(ctx context.Context, d webhook.Draft) (webhook.Webhook, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("generating id: %w", err)
	}

	headers := d.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("encoding headers: %w", err)
	}
	// lib/pq sends []byte as bytea, JSON parameters go as text
	var query any
	if d.QueryParams != nil {
		encoded, err := json.Marshal(d.QueryParams)
		if err != nil {
			return webhook.Webhook{}, fmt.Errorf("encoding query params: %w", err)
		}
		query = string(encoded)
	}

	stmt := `
		INSERT INTO webhooks (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + columns

	var stored row
	err = r.DB.GetContext(ctx, &stored, stmt,
		id.String(),
		d.Method,
		d.Pathname,
		textParam(d.IP),
		d.StatusCode,
		nullableText(d.ContentType),
		nullableInt(d.ContentLength),
		query,
		string(headersJSON),
		nullableBytes(d.Body),
		time.Now().UTC(),
	)
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("inserting webhook: %w", err)
	}

	return stored.toWebhook()
}

// ListBefore returns up to n summaries older than cursor, newest first
func (r *Repository) ListBefore(ctx context.Context, cursor string, n int) ([]webhook.Summary, error) {
	var (
		rows []summaryRow
		err  error
	)
	if cursor == "" {
		err = r.DB.SelectContext(ctx, &rows, `
			SELECT id, method, pathname, created_at
			FROM webhooks
			ORDER BY id DESC
			LIMIT $1`, n)
	} else {
		err = r.DB.SelectContext(ctx, &rows, `
			SELECT id, method, pathname, created_at
			FROM webhooks
			WHERE id < $1
			ORDER BY id DESC
			LIMIT $2`, cursor, n)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting webhooks: %w", err)
	}

	summaries := make([]webhook.Summary, 0, len(rows))
	for _, sr := range rows {
		summaries = append(summaries, webhook.Summary{
			ID:        sr.ID,
			Method:    sr.Method,
			Pathname:  sr.Pathname,
			CreatedAt: sr.CreatedAt.UTC(),
		})
	}
	return summaries, nil
}

// Get returns the full record
func (r *Repository) Get(ctx context.Context, id string) (webhook.Webhook, error) {
	var stored row
	err := r.DB.GetContext(ctx, &stored, `SELECT `+columns+` FROM webhooks WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.Webhook{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("selecting webhook: %w", err)
	}
	return stored.toWebhook()
}

// Count returns the number of stored records
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM webhooks`); err != nil {
		return 0, fmt.Errorf("counting webhooks: %w", err)
	}
	return n, nil
}

// Delete removes a record by id
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rows == 0 {
		return webhook.ErrNotFound
	}

	return nil
}

// Close closes the connection pool
func (r *Repository) Close(ctx context.Context) error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

func (r row) toWebhook() (webhook.Webhook, error) {
	headers := map[string]string{}
	if len(r.Headers) > 0 {
		if err := json.Unmarshal(r.Headers, &headers); err != nil {
			return webhook.Webhook{}, fmt.Errorf("decoding headers: %w", err)
		}
	}

	wh := webhook.Webhook{
		ID: r.ID,
		Draft: webhook.Draft{
			Method:     r.Method,
			Pathname:   r.Pathname,
			IP:         r.IP,
			StatusCode: r.StatusCode,
			Headers:    headers,
		},
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.QueryParams != nil {
		params := map[string]string{}
		if err := json.Unmarshal(r.QueryParams, &params); err != nil {
			return webhook.Webhook{}, fmt.Errorf("decoding query params: %w", err)
		}
		wh.QueryParams = params
	}
	if r.ContentType.Valid {
		wh.ContentType = &r.ContentType.String
	}
	if r.ContentLength.Valid {
		wh.ContentLength = &r.ContentLength.Int64
	}
	if r.Body != nil {
		body := string(r.Body)
		wh.Body = &body
	}
	return wh, nil
}

// textParam replaces invalid UTF-8 and NUL with U+FFFD, neither fits a TEXT column
func textParam(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "\uFFFD")
}

func nullableText(s *string) any {
	if s == nil {
		return nil
	}
	return textParam(*s)
}

func nullableBytes(s *string) any {
	if s == nil {
		return nil
	}
	return []byte(*s)
}

func nullableInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}
