package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edulink/tutor-market-api/internal/models"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
)

type mockCourseRepo struct {
	courses map[int64]*models.Course
	nextID  int64
	lists   int
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		copied := *course
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindDetailByID(ctx context.Context, id int64) (*models.CourseDetail, error) {
	course, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.CourseDetail{Course: *course, TeacherName: "T"}, nil
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	m.lists++
	var details []models.CourseDetail
	for _, course := range m.courses {
		if filter.Category != "" && course.Category != filter.Category {
			continue
		}
		details = append(details, models.CourseDetail{Course: *course, TeacherName: "T"})
	}
	return details, len(details), nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[int64]*models.Course)
	}
	m.nextID++
	course.ID = m.nextID
	if course.Status == "" {
		course.Status = models.CourseStatusPending
	}
	if course.Rating == 0 {
		course.Rating = models.DefaultCourseRating
	}
	copied := *course
	m.courses[course.ID] = &copied
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	copied := *course
	m.courses[course.ID] = &copied
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id int64) error {
	delete(m.courses, id)
	return nil
}

type mockCourseCounter struct {
	counts map[int64]int
}

func (m *mockCourseCounter) CountByCourse(ctx context.Context, courseID int64) (int, error) {
	return m.counts[courseID], nil
}

type mockCacheStore struct {
	data        map[string][]byte
	invalidated []string
}

func newMockCacheStore() *mockCacheStore {
	return &mockCacheStore{data: map[string][]byte{}}
}

func (m *mockCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *mockCacheStore) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	m.data = map[string][]byte{}
	return nil
}

func newCourseFixture(store *mockCacheStore) (*CourseService, *mockCourseRepo, *mockCourseCounter, *mockCourseCounter) {
	repo := &mockCourseRepo{courses: map[int64]*models.Course{}}
	orders := &mockCourseCounter{counts: map[int64]int{}}
	reviews := &mockCourseCounter{counts: map[int64]int{}}
	var cacheSvc *CacheService
	if store != nil {
		cacheSvc = NewCacheService(store, nil, true, time.Minute, zap.NewNop())
	}
	svc := NewCourseService(repo, orders, reviews, cacheSvc, validator.New(), zap.NewNop())
	return svc, repo, orders, reviews
}

func TestCourseServiceCreateAppliesDefaults(t *testing.T) {
	svc, repo, _, _ := newCourseFixture(nil)

	course, err := svc.Create(context.Background(), teacherID, CreateCourseRequest{
		Title: "Algebra", Category: "math", Duration: 60, Price: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusPending, course.Status)
	assert.Equal(t, models.DefaultCourseRating, course.Rating)
	assert.Equal(t, teacherID, repo.courses[course.ID].TeacherID)
}

func TestCourseServiceUpdateOwnerOnly(t *testing.T) {
	svc, _, _, _ := newCourseFixture(nil)
	course, err := svc.Create(context.Background(), teacherID, CreateCourseRequest{Title: "Algebra", Category: "math", Duration: 60, Price: 150})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), course.ID, strangerID, UpdateCourseRequest{Title: "Hijack", Category: "math", Duration: 60, Price: 1})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}

func TestCourseServiceDeleteBlockedByOrders(t *testing.T) {
	svc, _, orders, _ := newCourseFixture(nil)
	course, err := svc.Create(context.Background(), teacherID, CreateCourseRequest{Title: "Algebra", Category: "math", Duration: 60, Price: 150})
	require.NoError(t, err)
	orders.counts[course.ID] = 2

	err = svc.Delete(context.Background(), course.ID, teacherID)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestCourseServiceDeleteBlockedByReviews(t *testing.T) {
	svc, _, _, reviews := newCourseFixture(nil)
	course, err := svc.Create(context.Background(), teacherID, CreateCourseRequest{Title: "Algebra", Category: "math", Duration: 60, Price: 150})
	require.NoError(t, err)
	reviews.counts[course.ID] = 1

	err = svc.Delete(context.Background(), course.ID, teacherID)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestCourseServiceDeleteUnreferenced(t *testing.T) {
	svc, repo, _, _ := newCourseFixture(nil)
	course, err := svc.Create(context.Background(), teacherID, CreateCourseRequest{Title: "Algebra", Category: "math", Duration: 60, Price: 150})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), course.ID, teacherID))
	assert.Empty(t, repo.courses)
}

func TestCourseServiceListServedFromCache(t *testing.T) {
	store := newMockCacheStore()
	svc, repo, _, _ := newCourseFixture(store)
	_, err := svc.Create(context.Background(), teacherID, CreateCourseRequest{Title: "Algebra", Category: "math", Duration: 60, Price: 150})
	require.NoError(t, err)

	filter := models.CourseFilter{Category: "math", Page: 1, PageSize: 20}
	first, _, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, first, 1)
	listsAfterFirst := repo.lists

	second, pagination, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	// Second read hits the cache, not the repository.
	assert.Equal(t, listsAfterFirst, repo.lists)
}

func TestCourseServiceMutationsInvalidateCatalog(t *testing.T) {
	store := newMockCacheStore()
	svc, _, _, _ := newCourseFixture(store)

	course, err := svc.Create(context.Background(), teacherID, CreateCourseRequest{Title: "Algebra", Category: "math", Duration: 60, Price: 150})
	require.NoError(t, err)
	assert.Contains(t, store.invalidated, catalogCachePattern)

	store.invalidated = nil
	_, err = svc.Update(context.Background(), course.ID, teacherID, UpdateCourseRequest{Title: "Algebra II", Category: "math", Duration: 90, Price: 180})
	require.NoError(t, err)
	assert.Contains(t, store.invalidated, catalogCachePattern)
}

func TestCourseServiceGetUnknown(t *testing.T) {
	svc, _, _, _ := newCourseFixture(nil)
	_, err := svc.Get(context.Background(), 404)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
