package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulink/tutor-market-api/internal/models"
	"github.com/edulink/tutor-market-api/internal/service"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
)

type qualificationRepoStub struct {
	qualifications map[int64]*models.Qualification
	nextID         int64
}

func (s *qualificationRepoStub) FindByID(ctx context.Context, id int64) (*models.Qualification, error) {
	if q, ok := s.qualifications[id]; ok {
		copied := *q
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *qualificationRepoStub) list(match func(*models.Qualification) bool) []models.Qualification {
	var result []models.Qualification
	for _, q := range s.qualifications {
		if match(q) {
			result = append(result, *q)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (s *qualificationRepoStub) ListByUser(ctx context.Context, userID int64) ([]models.Qualification, error) {
	return s.list(func(q *models.Qualification) bool { return q.UserID == userID }), nil
}

func (s *qualificationRepoStub) ListByUserAndStatus(ctx context.Context, userID int64, status models.QualificationStatus) ([]models.Qualification, error) {
	return s.list(func(q *models.Qualification) bool { return q.UserID == userID && q.Status == status }), nil
}

func (s *qualificationRepoStub) ListByStatus(ctx context.Context, status models.QualificationStatus) ([]models.Qualification, error) {
	return s.list(func(q *models.Qualification) bool { return q.Status == status }), nil
}

func (s *qualificationRepoStub) ListReviewed(ctx context.Context) ([]models.Qualification, error) {
	return s.list(func(q *models.Qualification) bool { return q.Status != models.QualificationStatusPending }), nil
}

func (s *qualificationRepoStub) Create(ctx context.Context, q *models.Qualification) error {
	if s.qualifications == nil {
		s.qualifications = make(map[int64]*models.Qualification)
	}
	s.nextID++
	q.ID = s.nextID
	q.UploadTime = time.Now().UTC()
	copied := *q
	s.qualifications[q.ID] = &copied
	return nil
}

func (s *qualificationRepoStub) UpdateReview(ctx context.Context, id int64, status models.QualificationStatus, comment string, reviewedAt time.Time) error {
	if q, ok := s.qualifications[id]; ok {
		q.Status = status
		q.ReviewComment = comment
		q.ReviewDate = &reviewedAt
	}
	return nil
}

func (s *qualificationRepoStub) Delete(ctx context.Context, id int64) error {
	delete(s.qualifications, id)
	return nil
}

func (s *qualificationRepoStub) DeleteByUser(ctx context.Context, userID int64) error {
	for id, q := range s.qualifications {
		if q.UserID == userID {
			delete(s.qualifications, id)
		}
	}
	return nil
}

type userReaderStub struct {
	users map[int64]*models.User
}

func (s *userReaderStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

type teacherReaderStub struct{}

func (teacherReaderStub) FindByUserID(ctx context.Context, userID int64) (*models.Teacher, error) {
	return nil, sql.ErrNoRows
}

func newQualificationHandlerFixture() (*QualificationHandler, *qualificationRepoStub) {
	repo := &qualificationRepoStub{qualifications: map[int64]*models.Qualification{}}
	users := &userReaderStub{users: map[int64]*models.User{
		20: {ID: 20, FullName: "Dana Wu", Role: models.RoleTeacher, Active: true},
	}}
	svc := service.NewQualificationService(repo, users, teacherReaderStub{}, nil, nil)
	return NewQualificationHandler(svc), repo
}

func TestQualificationHandlerSubmit(t *testing.T) {
	handler, repo := newQualificationHandlerFixture()

	c, w := newTestContext(t, http.MethodPost, "/qualifications", service.SubmitQualificationRequest{
		Name: "TEFL", Type: "teaching", Issuer: "Board",
	}, teacherClaims())
	handler.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.qualifications, 1)
	assert.Equal(t, models.QualificationStatusPending, repo.qualifications[1].Status)
}

func TestQualificationHandlerSubmitInvalidBody(t *testing.T) {
	handler, _ := newQualificationHandlerFixture()

	c, w := newTestContext(t, http.MethodPost, "/qualifications", []byte(`{"name":`), teacherClaims())
	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQualificationHandlerSubmitUnauthenticated(t *testing.T) {
	handler, _ := newQualificationHandlerFixture()

	c, w := newTestContext(t, http.MethodPost, "/qualifications", service.SubmitQualificationRequest{
		Name: "TEFL", Type: "teaching", Issuer: "Board",
	}, nil)
	handler.Submit(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQualificationHandlerReviewInvalidID(t *testing.T) {
	handler, _ := newQualificationHandlerFixture()

	c, w := newTestContext(t, http.MethodPost, "/qualifications/abc/review", service.ReviewQualificationRequest{Status: "approved"}, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	handler.Review(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQualificationHandlerReview(t *testing.T) {
	handler, repo := newQualificationHandlerFixture()
	seedQualification(t, repo, models.QualificationStatusPending)

	c, w := newTestContext(t, http.MethodPost, "/qualifications/1/review", service.ReviewQualificationRequest{
		Status: "rejected", Comment: "blurry scan",
	}, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.Review(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.QualificationStatusRejected, repo.qualifications[1].Status)
	assert.Equal(t, "blurry scan", repo.qualifications[1].ReviewComment)
}

func TestQualificationHandlerBatchReviewEmptyPayload(t *testing.T) {
	handler, _ := newQualificationHandlerFixture()

	c, w := newTestContext(t, http.MethodPost, "/qualifications/batch-review", map[int64]service.ReviewQualificationRequest{}, adminClaims())
	handler.BatchReview(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQualificationHandlerBatchReviewPartialFailure(t *testing.T) {
	handler, repo := newQualificationHandlerFixture()
	seedQualification(t, repo, models.QualificationStatusPending)

	c, w := newTestContext(t, http.MethodPost, "/qualifications/batch-review", map[int64]service.ReviewQualificationRequest{
		1:   {Status: "approved"},
		999: {Status: "approved"},
	}, adminClaims())
	handler.BatchReview(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.QualificationStatusApproved, repo.qualifications[1].Status)

	var envelope struct {
		Data map[string]struct {
			Qualification *models.Qualification `json:"qualification"`
			Error         string                `json:"error,omitempty"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data["1"].Error)
	assert.NotEmpty(t, envelope.Data["999"].Error)
}

func TestQualificationHandlerDeleteApprovedRejected(t *testing.T) {
	handler, repo := newQualificationHandlerFixture()
	seedQualification(t, repo, models.QualificationStatusApproved)

	c, w := newTestContext(t, http.MethodDelete, "/qualifications/1", nil, teacherClaims())
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.Delete(c)
	require.Equal(t, appErrors.ErrInvalidState.Status, w.Code)
	require.Len(t, repo.qualifications, 1)
}

func TestQualificationHandlerDeletePending(t *testing.T) {
	handler, repo := newQualificationHandlerFixture()
	seedQualification(t, repo, models.QualificationStatusPending)

	c, w := newTestContext(t, http.MethodDelete, "/qualifications/1", nil, teacherClaims())
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, repo.qualifications)
}

func seedQualification(t *testing.T, repo *qualificationRepoStub, status models.QualificationStatus) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &models.Qualification{
		UserID: 20, Name: "TEFL", Type: models.QualificationTypeTeaching, Issuer: "Board", Status: status,
	}))
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: 1, Role: models.RoleAdmin}
}
