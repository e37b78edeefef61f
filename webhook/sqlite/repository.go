package sqlite

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
	"github.com/marcelsud/webhook-inspector/webhook"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, registered as "sqlite"
)

/*
SQLite Repository

Single-node record store for local inspection. Same table as the PostgreSQL store,
with JSON maps kept as TEXT and timestamps as RFC3339Nano TEXT. UUIDv7 ids are
lower-case hex, so string comparison on id is creation order.
*/

const DriverName = "sqlite"

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
	QueryParams   sql.NullString `db:"query_params"`
	Headers       string         `db:"headers"`
	Body          sql.NullString `db:"body"`
	CreatedAt     string         `db:"created_at"`
}

type summaryRow struct {
	ID        string `db:"id"`
	Method    string `db:"method"`
	Pathname  string `db:"pathname"`
	CreatedAt string `db:"created_at"`
}

// DSN adds the pragmas every connection needs to a database path
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// NewRepository opens the database file; the schema comes from package migrations
func NewRepository(path string) (*Repository, error) {
	db, err := sqlx.Open(DriverName, DSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// one writer at a time is all SQLite offers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	return &Repository{DB: db}, nil
}

// Insert stores the draft and returns the stored row
func (r *Repository) Insert(ctx context.Context, d webhook.Draft) (webhook.Webhook, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("generating id: %w", err)
	}

	headers, err := json.Marshal(nonNil(d.Headers))
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("encoding headers: %w", err)
	}
	var query any
	if d.QueryParams != nil {
		encoded, err := json.Marshal(d.QueryParams)
		if err != nil {
			return webhook.Webhook{}, fmt.Errorf("encoding query params: %w", err)
		}
		query = string(encoded)
	}

	stmt := `INSERT INTO webhooks (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + columns

	var stored row
	err = r.DB.GetContext(ctx, &stored, stmt,
		id.String(),
		d.Method,
		d.Pathname,
		d.IP,
		d.StatusCode,
		nullable(d.ContentType),
		nullableInt(d.ContentLength),
		query,
		string(headers),
		nullableBytes(d.Body),
		time.Now().UTC().Format(time.RFC3339Nano),
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
		err = r.DB.SelectContext(ctx, &rows,
			`SELECT id, method, pathname, created_at FROM webhooks ORDER BY id DESC LIMIT ?`, n)
	} else {
		err = r.DB.SelectContext(ctx, &rows,
			`SELECT id, method, pathname, created_at FROM webhooks WHERE id < ? ORDER BY id DESC LIMIT ?`, cursor, n)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting webhooks: %w", err)
	}

	summaries := make([]webhook.Summary, 0, len(rows))
	for _, sr := range rows {
		createdAt, err := parseTime(sr.CreatedAt)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, webhook.Summary{
			ID:        sr.ID,
			Method:    sr.Method,
			Pathname:  sr.Pathname,
			CreatedAt: createdAt,
		})
	}
	return summaries, nil
}

// Get returns the full record
func (r *Repository) Get(ctx context.Context, id string) (webhook.Webhook, error) {
	var stored row
	err := r.DB.GetContext(ctx, &stored, `SELECT `+columns+` FROM webhooks WHERE id = ?`, id)
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
	result, err := r.DB.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
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

// Close closes the database
func (r *Repository) Close(ctx context.Context) error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

func (r row) toWebhook() (webhook.Webhook, error) {
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return webhook.Webhook{}, err
	}

	headers := map[string]string{}
	if err := json.Unmarshal([]byte(r.Headers), &headers); err != nil {
		return webhook.Webhook{}, fmt.Errorf("decoding headers: %w", err)
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
		CreatedAt: createdAt,
	}
	if r.QueryParams.Valid {
		params := map[string]string{}
		if err := json.Unmarshal([]byte(r.QueryParams.String), &params); err != nil {
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
	if r.Body.Valid {
		wh.Body = &r.Body.String
	}
	return wh, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at %q: %w", s, err)
	}
	return t, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// body is bound as a BLOB so it reads back byte for byte
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
