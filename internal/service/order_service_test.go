package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edulink/tutor-market-api/internal/models"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
)

type mockOrderRepo struct {
	orders map[int64]*models.Order
	nextID int64
	// raceOnPay simulates a concurrent transition landing between the status
	// check and the conditional update.
	raceOnPay bool
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	if order, ok := m.orders[id]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOrderRepo) FindDetailByID(ctx context.Context, id int64) (*models.OrderDetail, error) {
	order, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.OrderDetail{Order: *order, CourseTitle: "Algebra", TeacherName: "T"}, nil
}

func (m *mockOrderRepo) ExistsActive(ctx context.Context, studentID, courseID int64) (bool, error) {
	for _, order := range m.orders {
		if order.StudentID == studentID && order.CourseID == courseID && order.Status != models.OrderStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOrderRepo) Create(ctx context.Context, order *models.Order) error {
	if m.orders == nil {
		m.orders = make(map[int64]*models.Order)
	}
	m.nextID++
	order.ID = m.nextID
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockOrderRepo) MarkPaid(ctx context.Context, id int64, at time.Time) (bool, error) {
	order, ok := m.orders[id]
	if !ok || order.Status != models.OrderStatusPending || m.raceOnPay {
		return false, nil
	}
	order.Status = models.OrderStatusPaid
	order.PaymentTime = &at
	return true, nil
}

func (m *mockOrderRepo) MarkCompleted(ctx context.Context, id, courseID int64, at time.Time) (bool, error) {
	order, ok := m.orders[id]
	if !ok || order.Status != models.OrderStatusPaid {
		return false, nil
	}
	order.Status = models.OrderStatusCompleted
	order.CompletionTime = &at
	return true, nil
}

func (m *mockOrderRepo) MarkCancelled(ctx context.Context, id int64, expected models.OrderStatus, at time.Time, reason string) (bool, error) {
	order, ok := m.orders[id]
	if !ok || order.Status != expected {
		return false, nil
	}
	order.Status = models.OrderStatusCancelled
	order.CancellationTime = &at
	order.CancellationReason = reason
	return true, nil
}

func (m *mockOrderRepo) List(ctx context.Context, filter models.OrderFilter) ([]models.OrderDetail, int, error) {
	var details []models.OrderDetail
	for _, order := range m.orders {
		if filter.StudentID != 0 && order.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		details = append(details, models.OrderDetail{Order: *order})
	}
	return details, len(details), nil
}

type mockCourseReader struct {
	courses map[int64]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		copied := *course
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type mockOrderReviewReader struct {
	byOrder map[int64]*models.Review
}

func (m *mockOrderReviewReader) FindByOrderID(ctx context.Context, orderID int64) (*models.Review, error) {
	if review, ok := m.byOrder[orderID]; ok {
		return review, nil
	}
	return nil, sql.ErrNoRows
}

const (
	studentID  = int64(10)
	teacherID  = int64(20)
	strangerID = int64(99)
)

func newOrderFixture() (*OrderService, *mockOrderRepo, *mockCourseReader) {
	repo := &mockOrderRepo{orders: map[int64]*models.Order{}}
	courses := &mockCourseReader{courses: map[int64]*models.Course{
		1: {ID: 1, TeacherID: teacherID, Title: "Algebra", Price: 150, Status: models.CourseStatusApproved},
	}}
	reviews := &mockOrderReviewReader{byOrder: map[int64]*models.Review{}}
	svc := NewOrderService(repo, courses, reviews, nil, validator.New(), zap.NewNop())
	return svc, repo, courses
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestOrderServiceCreateSnapshotsPrice(t *testing.T) {
	svc, repo, courses := newOrderFixture()

	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 150.0, order.Amount)

	// Raising the price afterwards must not touch the stored amount.
	courses.courses[1].Price = 300
	stored := repo.orders[order.ID]
	assert.Equal(t, 150.0, stored.Amount)
}

func TestOrderServiceCreateRejectsDuplicateActiveOrder(t *testing.T) {
	svc, _, _ := newOrderFixture()

	_, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestOrderServiceCreateUnknownCourse(t *testing.T) {
	svc, _, _ := newOrderFixture()

	_, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 404, BookingTime: time.Now()})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestOrderServiceFullLifecycle(t *testing.T) {
	svc, repo, _ := newOrderFixture()

	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)

	paid, err := svc.Pay(context.Background(), order.ID, studentID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, paid.Status)
	assert.NotNil(t, repo.orders[order.ID].PaymentTime)

	completed, err := svc.Complete(context.Background(), order.ID, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, completed.Status)
	assert.NotNil(t, repo.orders[order.ID].CompletionTime)
}

func TestOrderServicePayAuthorization(t *testing.T) {
	svc, _, _ := newOrderFixture()
	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), order.ID, strangerID)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))

	_, err = svc.Pay(context.Background(), order.ID, teacherID)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}

func TestOrderServicePayTwiceRejected(t *testing.T) {
	svc, _, _ := newOrderFixture()
	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), order.ID, studentID)
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), order.ID, studentID)
	assert.Equal(t, appErrors.ErrInvalidState.Code, errorCode(t, err))
}

func TestOrderServicePayLosesRace(t *testing.T) {
	svc, repo, _ := newOrderFixture()
	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)

	repo.raceOnPay = true
	_, err = svc.Pay(context.Background(), order.ID, studentID)
	assert.Equal(t, appErrors.ErrInvalidState.Code, errorCode(t, err))
	// The order is untouched when the conditional update does not apply.
	assert.Equal(t, models.OrderStatusPending, repo.orders[order.ID].Status)
}

func TestOrderServiceStudentCancelsPending(t *testing.T) {
	svc, repo, _ := newOrderFixture()
	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), order.ID, studentID, CancelOrderRequest{Reason: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "changed my mind", repo.orders[order.ID].CancellationReason)
	assert.NotNil(t, repo.orders[order.ID].CancellationTime)
}

func TestOrderServiceStudentCannotCancelPaid(t *testing.T) {
	svc, _, _ := newOrderFixture()
	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)
	_, err = svc.Pay(context.Background(), order.ID, studentID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), order.ID, studentID, CancelOrderRequest{Reason: "too late"})
	assert.Equal(t, appErrors.ErrInvalidState.Code, errorCode(t, err))
}

func TestOrderServiceTeacherCancelsPaid(t *testing.T) {
	svc, _, _ := newOrderFixture()
	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)
	_, err = svc.Pay(context.Background(), order.ID, studentID)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), order.ID, teacherID, CancelOrderRequest{Reason: "schedule conflict"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
}

func TestOrderServiceTeacherCannotCancelPending(t *testing.T) {
	svc, _, _ := newOrderFixture()
	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), order.ID, teacherID, CancelOrderRequest{Reason: "nope"})
	assert.Equal(t, appErrors.ErrInvalidState.Code, errorCode(t, err))
}

func TestOrderServiceCancelOutsiderForbidden(t *testing.T) {
	svc, _, _ := newOrderFixture()
	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), order.ID, strangerID, CancelOrderRequest{Reason: "not mine"})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}

func TestOrderServiceCompleteRequiresPaid(t *testing.T) {
	svc, _, _ := newOrderFixture()
	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), order.ID, teacherID)
	assert.Equal(t, appErrors.ErrInvalidState.Code, errorCode(t, err))

	_, err = svc.Complete(context.Background(), order.ID, studentID)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}

func TestOrderServiceCancelledIsTerminal(t *testing.T) {
	svc, _, _ := newOrderFixture()
	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), order.ID, studentID, CancelOrderRequest{Reason: "done"})
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), order.ID, studentID)
	assert.Equal(t, appErrors.ErrInvalidState.Code, errorCode(t, err))
	_, err = svc.Cancel(context.Background(), order.ID, studentID, CancelOrderRequest{Reason: "again"})
	assert.Equal(t, appErrors.ErrInvalidState.Code, errorCode(t, err))
}

func TestOrderServiceGetVisibility(t *testing.T) {
	svc, _, _ := newOrderFixture()
	order, err := svc.Create(context.Background(), studentID, CreateOrderRequest{CourseID: 1, BookingTime: time.Now()})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), order.ID, studentID)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), order.ID, teacherID)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), order.ID, strangerID)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))

	_, err = svc.Get(context.Background(), 404, studentID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
