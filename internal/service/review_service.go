package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edulink/tutor-market-api/internal/models"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
)

type reviewRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Review, error)
	FindByOrderID(ctx context.Context, orderID int64) (*models.Review, error)
	ExistsByOrder(ctx context.Context, orderID int64) (bool, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewDetail, int, error)
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, id, courseID int64, rating int, content string) error
	Delete(ctx context.Context, id, courseID int64) error
}

type reviewOrderReader interface {
	FindByID(ctx context.Context, id int64) (*models.Order, error)
}

// CreateReviewRequest creates a review against a completed order.
type CreateReviewRequest struct {
	OrderID int64  `json:"order_id" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Content string `json:"content" validate:"max=2000"`
}

// UpdateReviewRequest rewrites an existing review.
type UpdateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Content string `json:"content" validate:"max=2000"`
}

// ReviewService gates review creation on order state and ownership, and
// delegates the rating recomputation to the repository's transactions.
type ReviewService struct {
	repo      reviewRepository
	orders    reviewOrderReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs ReviewService. cache may be nil.
func NewReviewService(repo reviewRepository, orders reviewOrderReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{repo: repo, orders: orders, cache: cache, validator: validate, logger: logger}
}

// Create attaches a review to a completed order. Only the order's student may
// review, exactly once.
func (s *ReviewService) Create(ctx context.Context, studentID int64, req CreateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	order, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	if order.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only review your own orders")
	}
	if order.Status != models.OrderStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only completed orders can be reviewed")
	}
	exists, err := s.repo.ExistsByOrder(ctx, req.OrderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate review")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "order already has a review")
	}

	review := &models.Review{
		OrderID:   order.ID,
		CourseID:  order.CourseID,
		StudentID: studentID,
		Rating:    req.Rating,
		Content:   req.Content,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}
	s.invalidateCatalog(ctx)
	return review, nil
}

// Update rewrites a student's own review. The course rating follows inside
// the repository transaction.
func (s *ReviewService) Update(ctx context.Context, reviewID, studentID int64, req UpdateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	review, err := s.loadOwned(ctx, reviewID, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, review.ID, review.CourseID, req.Rating, req.Content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update review")
	}
	s.invalidateCatalog(ctx)
	updated, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	return updated, nil
}

// Delete removes a student's own review.
func (s *ReviewService) Delete(ctx context.Context, reviewID, studentID int64) error {
	review, err := s.loadOwned(ctx, reviewID, studentID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, review.ID, review.CourseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}
	s.invalidateCatalog(ctx)
	return nil
}

// Get returns a review by ID.
func (s *ReviewService) Get(ctx context.Context, reviewID int64) (*models.Review, error) {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	return review, nil
}

// GetOrderReview returns the review attached to an order, if any.
func (s *ReviewService) GetOrderReview(ctx context.Context, orderID int64) (*models.Review, error) {
	review, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order has no review")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	return review, nil
}

// ListCourseReviews returns a course's reviews with pagination.
func (s *ReviewService) ListCourseReviews(ctx context.Context, courseID int64, page, pageSize int) ([]models.ReviewDetail, *models.Pagination, error) {
	return s.list(ctx, models.ReviewFilter{CourseID: courseID, Page: page, PageSize: pageSize})
}

// ListStudentReviews returns a student's own reviews with pagination.
func (s *ReviewService) ListStudentReviews(ctx context.Context, studentID int64, page, pageSize int) ([]models.ReviewDetail, *models.Pagination, error) {
	return s.list(ctx, models.ReviewFilter{StudentID: studentID, Page: page, PageSize: pageSize})
}

func (s *ReviewService) list(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewDetail, *models.Pagination, error) {
	reviews, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return reviews, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *ReviewService) loadOwned(ctx context.Context, reviewID, studentID int64) (*models.Review, error) {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if review.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only manage your own reviews")
	}
	return review, nil
}

// Ratings feed the cached course catalog, so any review mutation drops it.
func (s *ReviewService) invalidateCatalog(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, catalogCachePattern)
	}
}
