package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edulink/tutor-market-api/internal/models"
)

// OrderRepository handles persistence of orders.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository constructs the repository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, course_id, student_id, amount, status, booking_time, payment_time,
        completion_time, cancellation_time, cancellation_reason, remark, created_at, updated_at`

// FindByID returns an order by its ID.
func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	var order models.Order
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		return nil, err
	}
	return &order, nil
}

// FindDetailByID returns an order with course context.
func (r *OrderRepository) FindDetailByID(ctx context.Context, id int64) (*models.OrderDetail, error) {
	const query = `SELECT o.id, o.course_id, o.student_id, o.amount, o.status, o.booking_time,
        o.payment_time, o.completion_time, o.cancellation_time, o.cancellation_reason, o.remark,
        o.created_at, o.updated_at,
        c.title AS course_title, c.cover AS course_cover, u.full_name AS teacher_name
        FROM orders o
        JOIN courses c ON c.id = o.course_id
        JOIN users u ON u.id = c.teacher_id
        WHERE o.id = $1`
	var detail models.OrderDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActive checks whether the student already holds a non-cancelled order
// for the course.
func (r *OrderRepository) ExistsActive(ctx context.Context, studentID, courseID int64) (bool, error) {
	const query = `SELECT 1 FROM orders WHERE student_id = $1 AND course_id = $2 AND status <> $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID, models.OrderStatusCancelled); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active order: %w", err)
	}
	return true, nil
}

// Create persists a new order record.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	order.CreatedAt = now
	order.UpdatedAt = now
	const query = `INSERT INTO orders (course_id, student_id, amount, status, booking_time, remark, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		order.CourseID, order.StudentID, order.Amount, order.Status,
		order.BookingTime, order.Remark, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// MarkPaid transitions a pending order to paid. The status predicate makes the
// write conditional so a concurrent transition loses cleanly.
func (r *OrderRepository) MarkPaid(ctx context.Context, id int64, at time.Time) (bool, error) {
	const query = `UPDATE orders SET status = $2, payment_time = $3, updated_at = $3
        WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.OrderStatusPaid, at, models.OrderStatusPending)
	if err != nil {
		return false, fmt.Errorf("pay order: %w", err)
	}
	return rowsAffected(res)
}

// MarkCompleted transitions a paid order to completed and bumps the course
// student counter in the same transaction.
func (r *OrderRepository) MarkCompleted(ctx context.Context, id, courseID int64, at time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin complete order: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE orders SET status = $2, completion_time = $3, updated_at = $3
        WHERE id = $1 AND status = $4`
	res, err := tx.ExecContext(ctx, query, id, models.OrderStatusCompleted, at, models.OrderStatusPaid)
	if err != nil {
		return false, fmt.Errorf("complete order: %w", err)
	}
	applied, err := rowsAffected(res)
	if err != nil || !applied {
		return applied, err
	}

	const bump = `UPDATE courses SET student_count = student_count + 1, updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, bump, courseID, at); err != nil {
		return false, fmt.Errorf("bump student count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit complete order: %w", err)
	}
	return true, nil
}

// MarkCancelled transitions an order to cancelled, guarded by the expected
// current status.
func (r *OrderRepository) MarkCancelled(ctx context.Context, id int64, expected models.OrderStatus, at time.Time, reason string) (bool, error) {
	const query = `UPDATE orders SET status = $2, cancellation_time = $3, cancellation_reason = $4, updated_at = $3
        WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.OrderStatusCancelled, at, reason, expected)
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	return rowsAffected(res)
}

// List returns orders filtered by the provided criteria.
func (r *OrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.OrderDetail, int, error) {
	base := `FROM orders o
JOIN courses c ON c.id = o.course_id
JOIN users u ON u.id = c.teacher_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != 0 {
		conditions = append(conditions, fmt.Sprintf("o.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TeacherID != 0 {
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Keyword != "" {
		conditions = append(conditions, fmt.Sprintf("c.title ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Keyword+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT o.id, o.course_id, o.student_id, o.amount, o.status, o.booking_time,
        o.payment_time, o.completion_time, o.cancellation_time, o.cancellation_reason, o.remark,
        o.created_at, o.updated_at,
        c.title AS course_title, c.cover AS course_cover, u.full_name AS teacher_name
        %s ORDER BY o.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var orders []models.OrderDetail
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	return orders, total, nil
}

// CountByCourse returns how many orders reference a course.
func (r *OrderRepository) CountByCourse(ctx context.Context, courseID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM orders WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count course orders: %w", err)
	}
	return count, nil
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
