package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/edulink/tutor-market-api/internal/models"
)

func TestReviewRepositoryCreateRecomputesRating(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reviews")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	review := &models.Review{OrderID: 42, CourseID: 1, StudentID: 10, Rating: 4, Content: "solid"}
	require.NoError(t, repo.Create(context.Background(), review))
	require.Equal(t, int64(5), review.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryCreateRollsBackOnRecomputeFailure(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reviews")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	review := &models.Review{OrderID: 42, CourseID: 1, StudentID: 10, Rating: 4}
	require.Error(t, repo.Create(context.Background(), review))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryUpdateRecomputesRating(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), 5, 1, 5, "got better"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryDeleteRecomputesRating(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reviews")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 5, 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryExistsByOrder(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM reviews")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	exists, err := repo.ExistsByOrder(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM reviews")).
		WithArgs(int64(43)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	exists, err = repo.ExistsByOrder(context.Background(), 43)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()

	repo := NewReviewRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "order_id", "course_id", "student_id", "rating", "content", "created_at", "updated_at"}).
		AddRow(int64(5), int64(42), int64(1), int64(10), 4, "solid", now, now).
		AddRow(int64(6), int64(43), int64(1), int64(11), 2, "meh", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, order_id, course_id")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	reviews, err := repo.ListByCourse(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
