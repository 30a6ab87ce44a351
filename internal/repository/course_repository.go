package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edulink/tutor-market-api/internal/models"
)

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, teacher_id, title, category, duration, price, description, cover,
        status, rating, student_count, created_at, updated_at`

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindDetailByID returns a course with the owning teacher's name.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id int64) (*models.CourseDetail, error) {
	const query = `SELECT c.id, c.teacher_id, c.title, c.category, c.duration, c.price, c.description,
        c.cover, c.status, c.rating, c.student_count, c.created_at, c.updated_at,
        u.full_name AS teacher_name
        FROM courses c
        JOIN users u ON u.id = c.teacher_id
        WHERE c.id = $1`
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns courses filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := `FROM courses c
JOIN users u ON u.id = c.teacher_id`
	var conditions []string
	var args []interface{}

	if filter.TeacherID != 0 {
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("c.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Keyword != "" {
		conditions = append(conditions, fmt.Sprintf("(c.title ILIKE $%d OR c.description ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Keyword+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "c.created_at",
		"price":      "c.price",
		"rating":     "c.rating",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT c.id, c.teacher_id, c.title, c.category, c.duration, c.price,
        c.description, c.cover, c.status, c.rating, c.student_count, c.created_at, c.updated_at,
        u.full_name AS teacher_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// Create persists a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.Status == "" {
		course.Status = models.CourseStatusPending
	}
	if course.Rating == 0 {
		course.Rating = models.DefaultCourseRating
	}
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (teacher_id, title, category, duration, price, description, cover,
        status, rating, student_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		course.TeacherID, course.Title, course.Category, course.Duration, course.Price,
		course.Description, course.Cover, course.Status, course.Rating, course.StudentCount,
		course.CreatedAt, course.UpdatedAt,
	).Scan(&course.ID); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update rewrites the mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = $2, category = $3, duration = $4, price = $5,
        description = $6, cover = $7, status = $8, updated_at = $9
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		course.ID, course.Title, course.Category, course.Duration, course.Price,
		course.Description, course.Cover, course.Status, course.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// UpdateRating persists a recomputed course rating.
func (r *CourseRepository) UpdateRating(ctx context.Context, id int64, rating float64) error {
	const query = `UPDATE courses SET rating = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, rating, time.Now().UTC()); err != nil {
		return fmt.Errorf("update course rating: %w", err)
	}
	return nil
}

// Delete removes a course record.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM courses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// CountByTeacher returns how many courses a teacher owns.
func (r *CourseRepository) CountByTeacher(ctx context.Context, teacherID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM courses WHERE teacher_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID); err != nil {
		return 0, fmt.Errorf("count teacher courses: %w", err)
	}
	return count, nil
}
