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

// ReviewRepository handles persistence of reviews. Every mutation recomputes
// the owning course's rating inside the same transaction so the rating is
// never observably stale relative to the review set.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, order_id, course_id, student_id, rating, content, created_at, updated_at`

// recomputeRatingQuery folds the aggregation into the mutating transaction.
// COALESCE keeps the last computed value when the review set is empty.
const recomputeRatingQuery = `UPDATE courses
        SET rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE course_id = $1), rating), updated_at = $2
        WHERE id = $1`

// FindByID returns a review by its ID.
func (r *ReviewRepository) FindByID(ctx context.Context, id int64) (*models.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		return nil, err
	}
	return &review, nil
}

// FindByOrderID returns the review attached to an order.
func (r *ReviewRepository) FindByOrderID(ctx context.Context, orderID int64) (*models.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE order_id = $1`, reviewColumns)
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, orderID); err != nil {
		return nil, err
	}
	return &review, nil
}

// ExistsByOrder checks whether an order already carries a review.
func (r *ReviewRepository) ExistsByOrder(ctx context.Context, orderID int64) (bool, error) {
	const query = `SELECT 1 FROM reviews WHERE order_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, orderID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check order review: %w", err)
	}
	return true, nil
}

// ListByCourse returns every review for a course, unpaged, for aggregation.
func (r *ReviewRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE course_id = $1`, reviewColumns)
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, courseID); err != nil {
		return nil, fmt.Errorf("list course reviews: %w", err)
	}
	return reviews, nil
}

// List returns reviews filtered by course or student with pagination.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewDetail, int, error) {
	base := `FROM reviews r
JOIN courses c ON c.id = r.course_id
JOIN users u ON u.id = r.student_id`
	var conditions []string
	var args []interface{}

	if filter.CourseID != 0 {
		conditions = append(conditions, fmt.Sprintf("r.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.StudentID != 0 {
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
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

	query := fmt.Sprintf(`SELECT r.id, r.order_id, r.course_id, r.student_id, r.rating, r.content,
        r.created_at, r.updated_at, c.title AS course_title, u.full_name AS student_name
        %s ORDER BY r.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var reviews []models.ReviewDetail
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	return reviews, total, nil
}

// Create inserts a review and recomputes the course rating atomically.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create review: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO reviews (order_id, course_id, student_id, rating, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := tx.QueryRowxContext(ctx, query,
		review.OrderID, review.CourseID, review.StudentID, review.Rating,
		review.Content, review.CreatedAt, review.UpdatedAt,
	).Scan(&review.ID); err != nil {
		return fmt.Errorf("create review: %w", err)
	}

	if _, err := tx.ExecContext(ctx, recomputeRatingQuery, review.CourseID, now); err != nil {
		return fmt.Errorf("recompute course rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create review: %w", err)
	}
	return nil
}

// Update rewrites rating and content and recomputes the course rating atomically.
func (r *ReviewRepository) Update(ctx context.Context, id, courseID int64, rating int, content string) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update review: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE reviews SET rating = $2, content = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, rating, content, now); err != nil {
		return fmt.Errorf("update review: %w", err)
	}

	if _, err := tx.ExecContext(ctx, recomputeRatingQuery, courseID, now); err != nil {
		return fmt.Errorf("recompute course rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update review: %w", err)
	}
	return nil
}

// Delete removes a review and recomputes the course rating atomically.
func (r *ReviewRepository) Delete(ctx context.Context, id, courseID int64) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete review: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `DELETE FROM reviews WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if _, err := tx.ExecContext(ctx, recomputeRatingQuery, courseID, now); err != nil {
		return fmt.Errorf("recompute course rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete review: %w", err)
	}
	return nil
}

// CountByCourse returns how many reviews reference a course.
func (r *ReviewRepository) CountByCourse(ctx context.Context, courseID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM reviews WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count course reviews: %w", err)
	}
	return count, nil
}
