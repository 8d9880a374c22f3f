package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscan/internal/model"
	"smartscan/internal/store"
)

func newSQLiteRepo(t *testing.T) *SQL {
	t.Helper()
	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.InitSchema(context.Background()))
	return NewSQL(db)
}

func seedStudent(t *testing.T, repo *SQL, id, code, name string) {
	t.Helper()
	require.NoError(t, repo.CreateStudent(context.Background(), &model.Student{
		ID: model.RowID(id), QRCode: code, Name: name, Email: name + "@school.test",
	}))
}

func TestSQLFindByQRCode(t *testing.T) {
	repo := newSQLiteRepo(t)
	seedStudent(t, repo, "s-1", "A12", "ana")
	ctx := context.Background()

	st, err := repo.Students().FindByQRCode(ctx, "A12")
	require.NoError(t, err)
	assert.Equal(t, model.RowID("s-1"), st.ID)
	assert.Equal(t, "ana@school.test", st.Email)

	_, err = repo.Students().FindByQRCode(ctx, "ZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLInsertBatchAndList(t *testing.T) {
	repo := newSQLiteRepo(t)
	seedStudent(t, repo, "s-1", "A12", "ana")
	seedStudent(t, repo, "s-2", "B07", "ben")
	ctx := context.Background()

	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	err := repo.Attendance().InsertBatch(ctx, []model.AttendanceRecord{
		{StudentID: "s-1", Date: model.DateOf(now), Timestamp: now, Mode: model.ModeTimeIn, Status: model.StatusPresent},
		{StudentID: "s-2", Date: model.DateOf(now), Timestamp: now.Add(time.Second), Mode: model.ModeTimeIn, Status: model.StatusPresent},
	})
	require.NoError(t, err)

	entries, err := repo.Attendance().List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// newest first
	assert.Equal(t, model.RowID("s-2"), entries[0].StudentID)
	assert.Equal(t, "2024-09-01", entries[0].Date.String())
	assert.Equal(t, model.ModeTimeIn, entries[0].Mode)
	require.NotNil(t, entries[0].Student)
	assert.Equal(t, "ben", entries[0].Student.Name)
}

func TestSQLInsertBatchIsAllOrNothing(t *testing.T) {
	repo := newSQLiteRepo(t)
	seedStudent(t, repo, "s-1", "A12", "ana")
	ctx := context.Background()

	now := time.Now()
	err := repo.Attendance().InsertBatch(ctx, []model.AttendanceRecord{
		{StudentID: "s-1", Date: model.DateOf(now), Timestamp: now, Mode: model.ModeTimeOut, Status: model.StatusPresent},
		// unknown student violates the foreign key
		{StudentID: "missing", Date: model.DateOf(now), Timestamp: now, Mode: model.ModeTimeOut, Status: model.StatusPresent},
	})
	require.Error(t, err)

	entries, err := repo.Attendance().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLOperators(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	op := &Operator{Email: "ops@school.test", PasswordHash: "hash"}
	require.NoError(t, repo.Operators().Create(ctx, op))
	assert.NotEmpty(t, op.ID)

	got, err := repo.Operators().FindByEmail(ctx, "ops@school.test")
	require.NoError(t, err)
	assert.Equal(t, op.ID, got.ID)

	_, err = repo.Operators().FindByEmail(ctx, "nobody@school.test")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, repo.Operators().Create(ctx, &Operator{Email: "ops@school.test", PasswordHash: "x"}))
}
