package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edulink/tutor-market-api/internal/models"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
)

// catalogCachePattern matches every cached catalog page.
const catalogCachePattern = "catalog:*"

type courseRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	FindDetailByID(ctx context.Context, id int64) (*models.CourseDetail, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) error
}

type courseOrderCounter interface {
	CountByCourse(ctx context.Context, courseID int64) (int, error)
}

type courseReviewCounter interface {
	CountByCourse(ctx context.Context, courseID int64) (int, error)
}

// CreateCourseRequest publishes a new course.
type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Category    string  `json:"category" validate:"required,max=100"`
	Duration    int     `json:"duration" validate:"required,min=1"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Description string  `json:"description" validate:"max=5000"`
	Cover       string  `json:"cover" validate:"omitempty,url"`
}

// UpdateCourseRequest rewrites an existing course.
type UpdateCourseRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Category    string  `json:"category" validate:"required,max=100"`
	Duration    int     `json:"duration" validate:"required,min=1"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Description string  `json:"description" validate:"max=5000"`
	Cover       string  `json:"cover" validate:"omitempty,url"`
	Status      string  `json:"status" validate:"omitempty,oneof=pending approved rejected"`
}

// catalogPage is the cached shape of a catalog listing.
type catalogPage struct {
	Courses    []models.CourseDetail `json:"courses"`
	Pagination models.Pagination     `json:"pagination"`
}

// CourseService manages the course catalog. Listings are cached in Redis when
// enabled; every mutation that can change a listing drops the whole catalog
// keyspace.
type CourseService struct {
	repo      courseRepository
	orders    courseOrderCounter
	reviews   courseReviewCounter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService. cache may be nil.
func NewCourseService(repo courseRepository, orders courseOrderCounter, reviews courseReviewCounter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, orders: orders, reviews: reviews, cache: cache, validator: validate, logger: logger}
}

// List returns catalog pages, served from cache when possible.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	key := catalogCacheKey(filter)
	if s.cache != nil {
		var cached catalogPage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			pagination := cached.Pagination
			return cached.Courses, &pagination, nil
		}
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}

	if s.cache != nil {
		s.cache.Set(ctx, key, catalogPage{Courses: courses, Pagination: *pagination})
	}
	return courses, pagination, nil
}

// Get returns a course with the owning teacher's name.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.CourseDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return detail, nil
}

// Create publishes a new course owned by the acting teacher. New courses
// start in pending status with the default rating.
func (s *CourseService) Create(ctx context.Context, teacherID int64, req CreateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		TeacherID:   teacherID,
		Title:       req.Title,
		Category:    req.Category,
		Duration:    req.Duration,
		Price:       req.Price,
		Description: req.Description,
		Cover:       req.Cover,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateCatalog(ctx)
	return s.Get(ctx, course.ID)
}

// Update rewrites a course. Only the owning teacher may update.
func (s *CourseService) Update(ctx context.Context, id, teacherID int64, req UpdateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.loadOwned(ctx, id, teacherID)
	if err != nil {
		return nil, err
	}
	course.Title = req.Title
	course.Category = req.Category
	course.Duration = req.Duration
	course.Price = req.Price
	course.Description = req.Description
	course.Cover = req.Cover
	if req.Status != "" {
		course.Status = models.CourseStatus(req.Status)
	}
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateCatalog(ctx)
	return s.Get(ctx, id)
}

// Delete removes a course. Only the owning teacher may delete, and only when
// no order or review references it.
func (s *CourseService) Delete(ctx context.Context, id, teacherID int64) error {
	course, err := s.loadOwned(ctx, id, teacherID)
	if err != nil {
		return err
	}
	orderCount, err := s.orders.CountByCourse(ctx, course.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course orders")
	}
	if orderCount > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "course has orders and cannot be deleted")
	}
	reviewCount, err := s.reviews.CountByCourse(ctx, course.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course reviews")
	}
	if reviewCount > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "course has reviews and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, course.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *CourseService) loadOwned(ctx context.Context, id, teacherID int64) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only manage your own courses")
	}
	return course, nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, catalogCachePattern)
	}
}

func catalogCacheKey(filter models.CourseFilter) string {
	return fmt.Sprintf("catalog:%d:%s:%s:%s:%s:%s:%d:%d",
		filter.TeacherID, filter.Category, filter.Keyword, filter.Status,
		filter.SortBy, filter.SortOrder, filter.Page, filter.PageSize)
}
