package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-inspector/migrations"
	"github.com/marcelsud/webhook-inspector/webhook"
	"github.com/marcelsud/webhook-inspector/webhook/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *sqlite.Repository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "webhooks.db")
	db, err := sql.Open(sqlite.DriverName, sqlite.DSN(path))
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db, migrations.SQLite))

	repo, err := sqlite.NewRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return repo
}

func ptr[T any](v T) *T { return &v }

func sampleDraft(path string) webhook.Draft {
	return webhook.Draft{
		Method:     "POST",
		Pathname:   path,
		IP:         "203.0.113.7",
		StatusCode: 201,
		Headers:    map[string]string{"content-type": "application/json"},
	}
}

func TestRepository_Insert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	t.Run("success - round trips every field", func(t *testing.T) {
		draft := webhook.Draft{
			Method:        "POST",
			Pathname:      "/stripe",
			IP:            "203.0.113.7",
			StatusCode:    201,
			ContentType:   ptr("application/json"),
			ContentLength: ptr(int64(14)),
			QueryParams:   map[string]string{"livemode": "false"},
			Headers:       map[string]string{"content-type": "application/json", "x-empty": ""},
			Body:          ptr(`{"id":"evt_1"}`),
		}

		stored, err := repo.Insert(ctx, draft)
		require.NoError(t, err)

		parsed, err := uuid.Parse(stored.ID)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		assert.False(t, stored.CreatedAt.IsZero())
		assert.Equal(t, draft, stored.Draft)

		fetched, err := repo.Get(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.Draft, fetched.Draft)
		assert.True(t, stored.CreatedAt.Equal(fetched.CreatedAt))
	})

	t.Run("success - absent fields stay absent", func(t *testing.T) {
		stored, err := repo.Insert(ctx, webhook.Draft{Method: "GET", Pathname: "/", IP: "10.0.0.1", StatusCode: 201})
		require.NoError(t, err)

		fetched, err := repo.Get(ctx, stored.ID)
		require.NoError(t, err)
		assert.Nil(t, fetched.Body)
		assert.Nil(t, fetched.ContentLength)
		assert.Nil(t, fetched.ContentType)
		assert.Nil(t, fetched.QueryParams)
		assert.Equal(t, map[string]string{}, fetched.Headers)
	})

	t.Run("success - binary body reads back byte for byte", func(t *testing.T) {
		draft := sampleDraft("/bin")
		draft.ContentType = ptr("application/octet-stream")
		draft.Body = ptr("\x00\xff\xfe\x00")
		draft.ContentLength = ptr(int64(4))
		draft.QueryParams = map[string]string{"x": "\x00"}

		stored, err := repo.Insert(ctx, draft)
		require.NoError(t, err)

		fetched, err := repo.Get(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, draft, fetched.Draft)
	})

	t.Run("success - duplicate deliveries get distinct increasing ids", func(t *testing.T) {
		first, err := repo.Insert(ctx, sampleDraft("/dup"))
		require.NoError(t, err)
		second, err := repo.Insert(ctx, sampleDraft("/dup"))
		require.NoError(t, err)

		assert.Less(t, first.ID, second.ID)
	})
}

func TestRepository_ListBefore(t *testing.T) {
	ctx := context.Background()

	t.Run("newest first with exclusive cursor", func(t *testing.T) {
		repo := newTestRepository(t)
		var ids []string
		for i := 0; i < 5; i++ {
			wh, err := repo.Insert(ctx, sampleDraft("/x"))
			require.NoError(t, err)
			ids = append(ids, wh.ID)
		}

		all, err := repo.ListBefore(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, ids[4], all[0].ID)
		assert.Equal(t, ids[0], all[4].ID)

		older, err := repo.ListBefore(ctx, ids[2], 10)
		require.NoError(t, err)
		require.Len(t, older, 2)
		assert.Equal(t, ids[1], older[0].ID)
		assert.Equal(t, ids[0], older[1].ID)

		none, err := repo.ListBefore(ctx, ids[0], 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("nonexistent cursor is a bound, not an error", func(t *testing.T) {
		repo := newTestRepository(t)
		_, err := repo.Insert(ctx, sampleDraft("/x"))
		require.NoError(t, err)

		rows, err := repo.ListBefore(ctx, "00000000-0000-7000-8000-000000000000", 10)
		require.NoError(t, err)
		assert.Empty(t, rows)

		rows, err = repo.ListBefore(ctx, "ffffffff-ffff-7fff-bfff-ffffffffffff", 10)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestService_Pagination(t *testing.T) {
	ctx := context.Background()

	t.Run("five records in pages of two", func(t *testing.T) {
		repo := newTestRepository(t)
		service := webhook.NewService(repo)

		var ids []string
		for i := 0; i < 5; i++ {
			wh, err := service.Capture(ctx, sampleDraft("/x"))
			require.NoError(t, err)
			ids = append(ids, wh.ID)
		}
		a, b, c, d, e := ids[4], ids[3], ids[2], ids[1], ids[0]

		page, err := service.List(ctx, 2, "")
		require.NoError(t, err)
		assert.Equal(t, []string{a, b}, pageIDs(page))
		assert.Equal(t, b, page.NextCursor)

		page, err = service.List(ctx, 2, b)
		require.NoError(t, err)
		assert.Equal(t, []string{c, d}, pageIDs(page))
		assert.Equal(t, d, page.NextCursor)

		page, err = service.List(ctx, 2, d)
		require.NoError(t, err)
		assert.Equal(t, []string{e}, pageIDs(page))
		assert.False(t, page.HasMore)
	})

	t.Run("walk sees every record once despite concurrent inserts", func(t *testing.T) {
		repo := newTestRepository(t)
		service := webhook.NewService(repo)

		want := map[string]bool{}
		for i := 0; i < 23; i++ {
			wh, err := service.Capture(ctx, sampleDraft("/walk"))
			require.NoError(t, err)
			want[wh.ID] = true
		}

		var seen []string
		cursor := ""
		for {
			page, err := service.List(ctx, 5, cursor)
			require.NoError(t, err)
			seen = append(seen, pageIDs(page)...)

			// newer records land above the cursor and never reach this walk
			_, err = service.Capture(ctx, sampleDraft("/late"))
			require.NoError(t, err)

			if !page.HasMore {
				break
			}
			cursor = page.NextCursor
		}

		require.Len(t, seen, len(want))
		for _, id := range seen {
			assert.True(t, want[id], "unexpected id %s", id)
		}
		for i := 1; i < len(seen); i++ {
			assert.Greater(t, seen[i-1], seen[i])
		}
	})
}

func TestRepository_GetDeleteCount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	stored, err := repo.Insert(ctx, sampleDraft("/gone"))
	require.NoError(t, err)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, stored.ID))

	_, err = repo.Get(ctx, stored.ID)
	assert.ErrorIs(t, err, webhook.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, stored.ID), webhook.ErrNotFound)

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func pageIDs(page webhook.Page) []string {
	ids := make([]string, 0, len(page.Items))
	for _, s := range page.Items {
		ids = append(ids, s.ID)
	}
	return ids
}
