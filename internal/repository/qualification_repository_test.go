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

func TestQualificationRepositoryCreateDefaultsPending(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()

	repo := NewQualificationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO qualifications")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	qualification := &models.Qualification{
		UserID: 20,
		Name:   "TEFL",
		Type:   models.QualificationTypeTeaching,
		Issuer: "Board",
	}
	require.NoError(t, repo.Create(context.Background(), qualification))
	require.Equal(t, int64(3), qualification.ID)
	require.Equal(t, models.QualificationStatusPending, qualification.Status)
	require.False(t, qualification.UploadTime.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQualificationRepositoryUpdateReview(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()

	repo := NewQualificationRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE qualifications SET")).
		WithArgs(int64(3), models.QualificationStatusRejected, "blurry scan", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateReview(context.Background(), 3, models.QualificationStatusRejected, "blurry scan", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQualificationRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()

	repo := NewQualificationRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "type", "issuer", "description", "file_url", "status", "review_comment", "review_date", "upload_time", "updated_at"}).
		AddRow(int64(3), int64(20), "TEFL", "teaching", "Board", "", "", "pending", "", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, name")).
		WithArgs(models.QualificationStatusPending).
		WillReturnRows(rows)

	pending, err := repo.ListByStatus(context.Background(), models.QualificationStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "TEFL", pending[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQualificationRepositoryDeleteByUser(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()

	repo := NewQualificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM qualifications WHERE user_id")).
		WithArgs(int64(20)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteByUser(context.Background(), 20))
	require.NoError(t, mock.ExpectationsWereMet())
}
