package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edulink/tutor-market-api/internal/models"
)

// TeacherRepository handles persistence of the teacher directory.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherDetailColumns = `t.id, t.user_id, t.education, t.major, t.experience, t.subjects,
        t.status, t.created_at, t.updated_at, u.full_name, u.email, u.phone`

// FindByID returns a teacher by its ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id int64) (*models.Teacher, error) {
	const query = `SELECT id, user_id, education, major, experience, subjects, status, created_at, updated_at
        FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByUserID returns the teacher record owned by a user.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID int64) (*models.Teacher, error) {
	const query = `SELECT id, user_id, education, major, experience, subjects, status, created_at, updated_at
        FROM teachers WHERE user_id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, userID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindDetailByID returns a teacher with user identity fields.
func (r *TeacherRepository) FindDetailByID(ctx context.Context, id int64) (*models.TeacherDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM teachers t JOIN users u ON u.id = t.user_id WHERE t.id = $1`, teacherDetailColumns)
	var detail models.TeacherDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns teachers filtered by the provided criteria.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error) {
	base := `FROM teachers t
JOIN users u ON u.id = t.user_id`
	var conditions []string
	var args []interface{}

	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("u.full_name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("t.subjects ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Subject+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)+1))
		args = append(args, filter.Status)
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY t.created_at DESC LIMIT %d OFFSET %d`,
		teacherDetailColumns, base+clause, size, offset)

	var teachers []models.TeacherDetail
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// Create persists a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	now := time.Now().UTC()
	if teacher.Status == "" {
		teacher.Status = models.TeacherStatusActive
	}
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (user_id, education, major, experience, subjects, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		teacher.UserID, teacher.Education, teacher.Major, teacher.Experience,
		teacher.Subjects, teacher.Status, teacher.CreatedAt, teacher.UpdatedAt,
	).Scan(&teacher.ID); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update rewrites the mutable teacher fields.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET education = $2, major = $3, experience = $4, subjects = $5,
        status = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		teacher.ID, teacher.Education, teacher.Major, teacher.Experience,
		teacher.Subjects, teacher.Status, teacher.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// Delete removes a teacher record.
func (r *TeacherRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM teachers WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}
