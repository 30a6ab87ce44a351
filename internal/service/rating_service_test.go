package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edulink/tutor-market-api/internal/models"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
)

type mockRatingReviews struct {
	byCourse map[int64][]models.Review
}

func (m *mockRatingReviews) ListByCourse(ctx context.Context, courseID int64) ([]models.Review, error) {
	return m.byCourse[courseID], nil
}

type mockRatingCourses struct {
	courses map[int64]*models.Course
	updated map[int64]float64
}

func (m *mockRatingCourses) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		return course, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRatingCourses) UpdateRating(ctx context.Context, id int64, rating float64) error {
	if m.updated == nil {
		m.updated = make(map[int64]float64)
	}
	m.updated[id] = rating
	return nil
}

func TestAverage(t *testing.T) {
	avg, ok := Average([]models.Review{{Rating: 4}, {Rating: 5}, {Rating: 3}})
	require.True(t, ok)
	assert.InDelta(t, 4.0, avg, 0.0001)

	avg, ok = Average([]models.Review{{Rating: 5}})
	require.True(t, ok)
	assert.Equal(t, 5.0, avg)

	_, ok = Average(nil)
	assert.False(t, ok)
}

func TestRatingServiceRecompute(t *testing.T) {
	reviews := &mockRatingReviews{byCourse: map[int64][]models.Review{
		1: {{Rating: 2}, {Rating: 4}},
	}}
	courses := &mockRatingCourses{courses: map[int64]*models.Course{
		1: {ID: 1, Rating: models.DefaultCourseRating},
	}}
	svc := NewRatingService(reviews, courses, zap.NewNop())

	rating, err := svc.Recompute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, rating)
	assert.Equal(t, 3.0, courses.updated[1])
}

func TestRatingServiceRecomputeEmptySetKeepsStoredValue(t *testing.T) {
	reviews := &mockRatingReviews{byCourse: map[int64][]models.Review{}}
	courses := &mockRatingCourses{courses: map[int64]*models.Course{
		1: {ID: 1, Rating: 4.2},
	}}
	svc := NewRatingService(reviews, courses, zap.NewNop())

	rating, err := svc.Recompute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4.2, rating)
	assert.Empty(t, courses.updated)
}

func TestRatingServiceRecomputeUnknownCourse(t *testing.T) {
	svc := NewRatingService(&mockRatingReviews{}, &mockRatingCourses{courses: map[int64]*models.Course{}}, zap.NewNop())

	_, err := svc.Recompute(context.Background(), 404)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
