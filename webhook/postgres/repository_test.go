//go:build !integration

package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/marcelsud/webhook-inspector/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
Unit tests with sqlmock: they check the SQL the repository sends and how rows
are mapped back, without a database. Real behavior is covered by the
integration tests (go test -tags=integration).
*/

var rowColumns = []string{
	"id", "method", "pathname", "ip", "status_code", "content_type", "content_length",
	"query_params", "headers", "body", "created_at",
}

const testID = "0192f1a0-7c3e-7a11-8b2e-5f0c2d9e4a10"

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Repository{DB: sqlx.NewDb(db, DriverName)}, mock
}

func ptr[T any](v T) *T { return &v }

func TestRepository_Insert_Unit(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		draft := webhook.Draft{
			Method:        "POST",
			Pathname:      "/stripe",
			IP:            "203.0.113.7",
			StatusCode:    201,
			ContentType:   ptr("application/json"),
			ContentLength: ptr(int64(14)),
			QueryParams:   map[string]string{"livemode": "false"},
			Headers:       map[string]string{"content-type": "application/json"},
			Body:          ptr(`{"id":"evt_1"}`),
		}

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO webhooks")).
			WithArgs(
				sqlmock.AnyArg(),
				"POST",
				"/stripe",
				"203.0.113.7",
				201,
				"application/json",
				int64(14),
				`{"livemode":"false"}`,
				`{"content-type":"application/json"}`,
				[]byte(`{"id":"evt_1"}`),
				sqlmock.AnyArg(),
			).
			WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
				testID, "POST", "/stripe", "203.0.113.7", 201, "application/json", int64(14),
				[]byte(`{"livemode":"false"}`), []byte(`{"content-type":"application/json"}`), []byte(`{"id":"evt_1"}`), createdAt,
			))

		stored, err := repo.Insert(ctx, draft)

		require.NoError(t, err)
		assert.Equal(t, testID, stored.ID)
		assert.Equal(t, draft, stored.Draft)
		assert.Equal(t, createdAt, stored.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - absent fields are sent as NULL", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO webhooks")).
			WithArgs(sqlmock.AnyArg(), "GET", "/", "10.0.0.1", 201, nil, nil, nil, `{}`, nil, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
				testID, "GET", "/", "10.0.0.1", 201, nil, nil, nil, []byte(`{}`), nil, createdAt,
			))

		stored, err := repo.Insert(ctx, webhook.Draft{Method: "GET", Pathname: "/", IP: "10.0.0.1", StatusCode: 201})

		require.NoError(t, err)
		assert.Nil(t, stored.Body)
		assert.Nil(t, stored.ContentType)
		assert.Nil(t, stored.ContentLength)
		assert.Nil(t, stored.QueryParams)
		assert.Equal(t, map[string]string{}, stored.Headers)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - binary body goes as bytea, text columns get valid UTF-8", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		body := "\x00\xff\xfe"
		draft := webhook.Draft{
			Method:        "POST",
			Pathname:      "/bin",
			IP:            "10.0.0.1\x00",
			StatusCode:    201,
			ContentType:   ptr("application/octet-stream\xff"),
			ContentLength: ptr(int64(len(body))),
			QueryParams:   map[string]string{"x": "\x00"},
			Headers:       map[string]string{"content-type": "application/octet-stream\xff"},
			Body:          &body,
		}

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO webhooks")).
			WithArgs(
				sqlmock.AnyArg(),
				"POST",
				"/bin",
				"10.0.0.1\uFFFD",
				201,
				"application/octet-stream\uFFFD",
				int64(3),
				`{"x":"\u0000"}`,
				`{"content-type":"application/octet-stream\ufffd"}`,
				[]byte(body),
				sqlmock.AnyArg(),
			).
			WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
				testID, "POST", "/bin", "10.0.0.1\uFFFD", 201, "application/octet-stream\uFFFD", int64(3),
				[]byte(`{"x":"\u0000"}`), []byte(`{"content-type":"application/octet-stream\ufffd"}`), []byte(body), createdAt,
			))

		stored, err := repo.Insert(ctx, draft)

		require.NoError(t, err)
		require.NotNil(t, stored.Body)
		assert.Equal(t, body, *stored.Body)
		assert.Equal(t, map[string]string{"x": "\x00"}, stored.QueryParams)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - database failure", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO webhooks")).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.Insert(ctx, webhook.Draft{Method: "POST"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "inserting webhook")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_ListBefore_Unit(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	summaryColumns := []string{"id", "method", "pathname", "created_at"}

	t.Run("success - without cursor", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectQuery(`SELECT id, method, pathname, created_at\s+FROM webhooks\s+ORDER BY id DESC\s+LIMIT \$1`).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows(summaryColumns).
				AddRow("0192f1a0-0000-7000-8000-000000000002", "POST", "/b", createdAt).
				AddRow("0192f1a0-0000-7000-8000-000000000001", "GET", "/a", createdAt))

		rows, err := repo.ListBefore(ctx, "", 3)

		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "/b", rows[0].Pathname)
		assert.Equal(t, "GET", rows[1].Method)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - with cursor", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectQuery(`FROM webhooks\s+WHERE id < \$1\s+ORDER BY id DESC\s+LIMIT \$2`).
			WithArgs(testID, 21).
			WillReturnRows(sqlmock.NewRows(summaryColumns))

		rows, err := repo.ListBefore(ctx, testID, 21)

		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - database failure", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectQuery(`FROM webhooks`).WillReturnError(errors.New("timeout"))

		_, err := repo.ListBefore(ctx, "", 21)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "selecting webhooks")
	})
}

func TestRepository_Get_Unit(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectQuery(regexp.QuoteMeta("FROM webhooks WHERE id = $1")).
			WithArgs(testID).
			WillReturnRows(sqlmock.NewRows(rowColumns))

		_, err := repo.Get(ctx, testID)

		assert.ErrorIs(t, err, webhook.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Delete_Unit(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM webhooks WHERE id = $1")).
			WithArgs(testID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Delete(ctx, testID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM webhooks WHERE id = $1")).
			WithArgs(testID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(ctx, testID), webhook.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Count_Unit(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM webhooks")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := repo.Count(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
