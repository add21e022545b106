package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/profile-importer/internal/types"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "url", "name", "email", "phone", "company", "notion_page_id", "status", "error", "created_at"}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *DB) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewWithPool(mock)
}

func TestDB_Migrate(t *testing.T) {
	mock, db := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS import_history")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, db.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_RecordImport(t *testing.T) {
	mock, db := newMock(t)

	rec := &ImportRecord{
		URL:          "https://www.linkedin.com/in/zhangsan",
		Name:         "张三",
		Email:        "zhang@example.com",
		NotionPageID: "page-1",
		Status:       types.ImportStatusSaved,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO import_history")).
		WithArgs(pgxmock.AnyArg(), rec.URL, "张三", "zhang@example.com", "", "", "page-1", "saved", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, db.RecordImport(context.Background(), rec))
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_RecordImport_Invalid(t *testing.T) {
	mock, db := newMock(t)

	assert.ErrorIs(t, db.RecordImport(context.Background(), &ImportRecord{URL: "x"}), ErrInvalidRecord)
	assert.ErrorIs(t, db.RecordImport(context.Background(), nil), ErrInvalidRecord)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_RecordImport_ExecError(t *testing.T) {
	mock, db := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO import_history")).
		WillReturnError(errors.New("connection reset"))

	err := db.RecordImport(context.Background(), &ImportRecord{URL: "u", Status: types.ImportStatusFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record import")
}

func TestDB_ListImports(t *testing.T) {
	mock, db := newMock(t)

	id1, id2 := uuid.New(), uuid.New()
	now := time.Now().UTC()
	rows := pgxmock.NewRows(columns).
		AddRow(id1.String(), "https://a", "A", "", "", "", "p1", "saved", "", now).
		AddRow(id2.String(), "https://b", "B", "b@x", "", "", "", "duplicate", "人选已存在", now.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("FROM import_history ORDER BY created_at DESC LIMIT $1")).
		WithArgs(DefaultListLimit).
		WillReturnRows(rows)

	records, err := db.ListImports(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, id1, records[0].ID)
	assert.Equal(t, types.ImportStatusSaved, records[0].Status)
	assert.Equal(t, types.ImportStatusDuplicate, records[1].Status)
	assert.Equal(t, "人选已存在", records[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_ListImports_ClampsLimit(t *testing.T) {
	mock, db := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1")).
		WithArgs(MaxListLimit).
		WillReturnRows(pgxmock.NewRows(columns))

	records, err := db.ListImports(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_FindByURL(t *testing.T) {
	mock, db := newMock(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE url = $1")).
		WithArgs("https://a").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(id.String(), "https://a", "A", "", "", "", "", "failed", "save failed: boom", time.Now()))

	rec, err := db.FindByURL(context.Background(), "https://a")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, types.ImportStatusFailed, rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_FindByURL_NotFound(t *testing.T) {
	mock, db := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE url = $1")).
		WithArgs("https://missing").
		WillReturnError(pgx.ErrNoRows)

	rec, err := db.FindByURL(context.Background(), "https://missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecordFromResult(t *testing.T) {
	finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	res := &types.ImportResult{
		Profile:    &types.ExtractedProfile{Name: "A", Email: "a@x", Phone: "1", Company: "C", URL: "https://profile"},
		Page:       &types.SavedPage{PageID: "page-9"},
		Status:     types.ImportStatusSaved,
		FinishedAt: finished,
	}

	rec := RecordFromResult("", res)
	assert.Equal(t, "https://profile", rec.URL)
	assert.Equal(t, "page-9", rec.NotionPageID)
	assert.Equal(t, "C", rec.Company)
	assert.Equal(t, finished, rec.CreatedAt)

	rec = RecordFromResult("https://requested", &types.ImportResult{Status: types.ImportStatusFailed, Error: "boom"})
	assert.Equal(t, "https://requested", rec.URL)
	assert.Equal(t, "boom", rec.Error)
}
