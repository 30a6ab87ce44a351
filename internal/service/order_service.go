package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edulink/tutor-market-api/internal/models"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
)

type orderRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	FindDetailByID(ctx context.Context, id int64) (*models.OrderDetail, error)
	ExistsActive(ctx context.Context, studentID, courseID int64) (bool, error)
	Create(ctx context.Context, order *models.Order) error
	MarkPaid(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id, courseID int64, at time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id int64, expected models.OrderStatus, at time.Time, reason string) (bool, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.OrderDetail, int, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type orderReviewReader interface {
	FindByOrderID(ctx context.Context, orderID int64) (*models.Review, error)
}

type orderMetrics interface {
	RecordOrderTransition(status, outcome string)
}

// CreateOrderRequest describes an order booking request.
type CreateOrderRequest struct {
	CourseID    int64     `json:"course_id" validate:"required"`
	BookingTime time.Time `json:"booking_time" validate:"required"`
	Remark      string    `json:"remark"`
}

// CancelOrderRequest carries the cancellation reason.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// OrderService enforces the order lifecycle: pending -> paid -> completed,
// with pending -> cancelled (student) and paid -> cancelled (teacher).
// Every transition is authorization-scoped and conditional on the current
// status, so a concurrent duplicate transition surfaces as an invalid state
// instead of silently succeeding twice.
type OrderService struct {
	repo      orderRepository
	courses   courseReader
	reviews   orderReviewReader
	metrics   orderMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOrderService constructs OrderService. metrics may be nil.
func NewOrderService(repo orderRepository, courses courseReader, reviews orderReviewReader, metrics orderMetrics, validate *validator.Validate, logger *zap.Logger) *OrderService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{repo: repo, courses: courses, reviews: reviews, metrics: metrics, validator: validate, logger: logger}
}

func (s *OrderService) recordTransition(target models.OrderStatus, applied bool) {
	if s.metrics == nil {
		return
	}
	outcome := "applied"
	if !applied {
		outcome = "rejected"
	}
	s.metrics.RecordOrderTransition(string(target), outcome)
}

// Create books a course for a student. The order amount snapshots the course
// price at booking time. A student may hold at most one non-cancelled order
// per course.
func (s *OrderService) Create(ctx context.Context, studentID int64, req CreateOrderRequest) (*models.OrderDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid order payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	exists, err := s.repo.ExistsActive(ctx, studentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate order")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "you already have an active order for this course")
	}
	order := &models.Order{
		CourseID:    course.ID,
		StudentID:   studentID,
		Amount:      course.Price,
		Status:      models.OrderStatusPending,
		BookingTime: req.BookingTime,
		Remark:      req.Remark,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create order")
	}
	return s.detail(ctx, order.ID)
}

// Get returns an order. Only the order's student or the course's teacher may
// read it.
func (s *OrderService) Get(ctx context.Context, orderID, actorID int64) (*models.OrderDetail, error) {
	order, course, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actorID != order.StudentID && actorID != course.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you don't have permission to view this order")
	}
	return s.detail(ctx, orderID)
}

// Pay transitions a pending order to paid. Only the order's student may pay.
func (s *OrderService) Pay(ctx context.Context, orderID, actorID int64) (*models.OrderDetail, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	if actorID != order.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you don't have permission to pay this order")
	}
	if order.Status != models.OrderStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "order is not in pending status")
	}
	applied, err := s.repo.MarkPaid(ctx, orderID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pay order")
	}
	s.recordTransition(models.OrderStatusPaid, applied)
	if !applied {
		// Lost a race against a concurrent transition.
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "order is not in pending status")
	}
	return s.detail(ctx, orderID)
}

// Cancel transitions an order to cancelled. The student may cancel a pending
// order; the course's teacher may cancel a paid one. Any other actor or state
// combination is a hard failure.
func (s *OrderService) Cancel(ctx context.Context, orderID, actorID int64, req CancelOrderRequest) (*models.OrderDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancel payload")
	}
	order, course, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	isStudent := actorID == order.StudentID
	isTeacher := actorID == course.TeacherID
	if !isStudent && !isTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you don't have permission to cancel this order")
	}

	var expected models.OrderStatus
	switch {
	case isStudent:
		if order.Status != models.OrderStatusPending {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "students can only cancel pending orders")
		}
		expected = models.OrderStatusPending
	case isTeacher:
		if order.Status != models.OrderStatusPaid {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "teachers can only cancel paid orders")
		}
		expected = models.OrderStatusPaid
	}

	applied, err := s.repo.MarkCancelled(ctx, orderID, expected, time.Now().UTC(), req.Reason)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel order")
	}
	s.recordTransition(models.OrderStatusCancelled, applied)
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "order status changed, cancellation rejected")
	}
	return s.detail(ctx, orderID)
}

// Complete transitions a paid order to completed. Only the course's teacher
// may complete.
func (s *OrderService) Complete(ctx context.Context, orderID, actorID int64) (*models.OrderDetail, error) {
	order, course, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actorID != course.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you don't have permission to complete this order")
	}
	if order.Status != models.OrderStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "order is not in paid status")
	}
	applied, err := s.repo.MarkCompleted(ctx, orderID, order.CourseID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete order")
	}
	s.recordTransition(models.OrderStatusCompleted, applied)
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "order is not in paid status")
	}
	return s.detail(ctx, orderID)
}

// ListStudentOrders returns a student's orders with pagination metadata.
func (s *OrderService) ListStudentOrders(ctx context.Context, studentID int64, filter models.OrderFilter) ([]models.OrderDetail, *models.Pagination, error) {
	filter.StudentID = studentID
	filter.TeacherID = 0
	return s.list(ctx, filter)
}

// ListTeacherOrders returns every order placed against a teacher's courses.
func (s *OrderService) ListTeacherOrders(ctx context.Context, teacherID int64, filter models.OrderFilter) ([]models.OrderDetail, *models.Pagination, error) {
	filter.TeacherID = teacherID
	filter.StudentID = 0
	return s.list(ctx, filter)
}

func (s *OrderService) list(ctx context.Context, filter models.OrderFilter) ([]models.OrderDetail, *models.Pagination, error) {
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list orders")
	}
	for i := range orders {
		s.attachReview(ctx, &orders[i])
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
	return orders, pagination, nil
}

func (s *OrderService) load(ctx context.Context, orderID int64) (*models.Order, *models.Course, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	course, err := s.courses.FindByID(ctx, order.CourseID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return order, course, nil
}

func (s *OrderService) detail(ctx context.Context, orderID int64) (*models.OrderDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, orderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order detail")
	}
	s.attachReview(ctx, detail)
	return detail, nil
}

func (s *OrderService) attachReview(ctx context.Context, detail *models.OrderDetail) {
	if detail.Status != models.OrderStatusCompleted {
		return
	}
	review, err := s.reviews.FindByOrderID(ctx, detail.ID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to load order review", zap.Int64("order_id", detail.ID), zap.Error(err))
		}
		return
	}
	detail.HasReview = true
	detail.Review = review
}
