package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portfolio-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var submissionRowColumns = []string{"id", "name", "files", "timestamp", "status", "created_at"}

const filesJSON = `[{"name":"essay.pdf","type":"application/pdf","size":4,"base64":"AAAA"}]`

func TestSubmissionRepositoryListPendingOrdersAndExcludesSentinel(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(submissionRowColumns).
		AddRow("sub-2", "Layla", filesJSON, "5/1/2024, 10:00", "pending", now).
		AddRow("sub-1", "Omar", filesJSON, "5/1/2024, 09:00", "pending", now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'pending' AND name <> $1") + `\s+` + regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WithArgs("Test Student").
		WillReturnRows(rows)

	subs, err := repo.ListPending(context.Background(), "Test Student")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, "sub-2", subs[0].ID)
	require.Equal(t, "essay.pdf", subs[0].Files[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListPendingEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_submissions")).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns))

	subs, err := repo.ListPending(context.Background(), "Test Student")
	require.NoError(t, err)
	require.NotNil(t, subs)
	require.Empty(t, subs)
}

func TestSubmissionRepositoryCreateAssignsIDAndPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_submissions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sub := &models.Submission{
		Name:      "Layla",
		Files:     models.EncodedFiles{{Name: "a.png", Type: "image/png", Size: 3}},
		Timestamp: "5/1/2024, 10:00",
		Status:    models.SubmissionApproved,
	}
	require.NoError(t, repo.Create(context.Background(), sub))
	require.NotEmpty(t, sub.ID)
	require.Equal(t, models.SubmissionPending, sub.Status)
	require.False(t, sub.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryApproveCopiesWithinTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_submissions WHERE id = $1 FOR UPDATE")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).
			AddRow("sub-1", "Omar", filesJSON, "5/1/2024, 09:00", "pending", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO approved_works")).
		WithArgs("sub-1", "Omar", sqlmock.AnyArg(), "5/1/2024, 09:00", models.WorkApproved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_submissions SET status = 'approved' WHERE id = $1 AND status = 'pending'")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	work, err := repo.Approve(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Equal(t, "sub-1", work.ID)
	require.Equal(t, "Omar", work.Name)
	require.Equal(t, models.WorkApproved, work.Status)
	require.Len(t, work.Files, 1)
	require.Equal(t, "AAAA", work.Files[0].Base64)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryApproveRejectsModerated(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).
			AddRow("sub-1", "Omar", filesJSON, "", "rejected", time.Now()))
	mock.ExpectRollback()

	_, err := repo.Approve(context.Background(), "sub-1")
	require.ErrorIs(t, err, ErrNotPending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryApproveUnknownID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Approve(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryApproveRollsBackOnDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).
			AddRow("sub-1", "Omar", filesJSON, "", "pending", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO approved_works")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Approve(context.Background(), "sub-1")
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateStatusOnlyFromPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	query := regexp.QuoteMeta("UPDATE student_submissions SET status = $2 WHERE id = $1 AND status = 'pending'")
	mock.ExpectExec(query).
		WithArgs("sub-1", models.SubmissionRejected).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs("sub-1", models.SubmissionRejected).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), "sub-1", models.SubmissionRejected))
	err := repo.UpdateStatus(context.Background(), "sub-1", models.SubmissionRejected)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
