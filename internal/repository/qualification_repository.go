package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edulink/tutor-market-api/internal/models"
)

// QualificationRepository handles persistence of credential documents.
type QualificationRepository struct {
	db *sqlx.DB
}

// NewQualificationRepository constructs the repository.
func NewQualificationRepository(db *sqlx.DB) *QualificationRepository {
	return &QualificationRepository{db: db}
}

const qualificationColumns = `id, user_id, name, type, issuer, description, file_url, status,
        review_comment, review_date, upload_time, updated_at`

// FindByID returns a qualification by its ID.
func (r *QualificationRepository) FindByID(ctx context.Context, id int64) (*models.Qualification, error) {
	query := fmt.Sprintf(`SELECT %s FROM qualifications WHERE id = $1`, qualificationColumns)
	var qualification models.Qualification
	if err := r.db.GetContext(ctx, &qualification, query, id); err != nil {
		return nil, err
	}
	return &qualification, nil
}

// ListByUser returns a user's qualifications, newest first.
func (r *QualificationRepository) ListByUser(ctx context.Context, userID int64) ([]models.Qualification, error) {
	query := fmt.Sprintf(`SELECT %s FROM qualifications WHERE user_id = $1 ORDER BY upload_time DESC`, qualificationColumns)
	var qualifications []models.Qualification
	if err := r.db.SelectContext(ctx, &qualifications, query, userID); err != nil {
		return nil, fmt.Errorf("list user qualifications: %w", err)
	}
	return qualifications, nil
}

// ListByUserAndStatus returns a user's qualifications in a given status.
func (r *QualificationRepository) ListByUserAndStatus(ctx context.Context, userID int64, status models.QualificationStatus) ([]models.Qualification, error) {
	query := fmt.Sprintf(`SELECT %s FROM qualifications WHERE user_id = $1 AND status = $2 ORDER BY upload_time DESC`, qualificationColumns)
	var qualifications []models.Qualification
	if err := r.db.SelectContext(ctx, &qualifications, query, userID, status); err != nil {
		return nil, fmt.Errorf("list user qualifications by status: %w", err)
	}
	return qualifications, nil
}

// ListByStatus returns every qualification in a given status.
func (r *QualificationRepository) ListByStatus(ctx context.Context, status models.QualificationStatus) ([]models.Qualification, error) {
	query := fmt.Sprintf(`SELECT %s FROM qualifications WHERE status = $1 ORDER BY upload_time DESC`, qualificationColumns)
	var qualifications []models.Qualification
	if err := r.db.SelectContext(ctx, &qualifications, query, status); err != nil {
		return nil, fmt.Errorf("list qualifications by status: %w", err)
	}
	return qualifications, nil
}

// ListReviewed returns every qualification that has left the pending state.
func (r *QualificationRepository) ListReviewed(ctx context.Context) ([]models.Qualification, error) {
	query := fmt.Sprintf(`SELECT %s FROM qualifications WHERE status <> $1 ORDER BY review_date DESC`, qualificationColumns)
	var qualifications []models.Qualification
	if err := r.db.SelectContext(ctx, &qualifications, query, models.QualificationStatusPending); err != nil {
		return nil, fmt.Errorf("list reviewed qualifications: %w", err)
	}
	return qualifications, nil
}

// Create persists a new qualification record.
func (r *QualificationRepository) Create(ctx context.Context, qualification *models.Qualification) error {
	now := time.Now().UTC()
	if qualification.Status == "" {
		qualification.Status = models.QualificationStatusPending
	}
	qualification.UploadTime = now
	qualification.UpdatedAt = now
	const query = `INSERT INTO qualifications (user_id, name, type, issuer, description, file_url, status, upload_time, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		qualification.UserID, qualification.Name, qualification.Type, qualification.Issuer,
		qualification.Description, qualification.FileURL, qualification.Status,
		qualification.UploadTime, qualification.UpdatedAt,
	).Scan(&qualification.ID); err != nil {
		return fmt.Errorf("create qualification: %w", err)
	}
	return nil
}

// UpdateReview records a moderation decision, overwriting any previous one.
func (r *QualificationRepository) UpdateReview(ctx context.Context, id int64, status models.QualificationStatus, comment string, reviewedAt time.Time) error {
	const query = `UPDATE qualifications SET status = $2, review_comment = $3, review_date = $4, updated_at = $4
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, comment, reviewedAt); err != nil {
		return fmt.Errorf("review qualification: %w", err)
	}
	return nil
}

// Delete removes a qualification record.
func (r *QualificationRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM qualifications WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete qualification: %w", err)
	}
	return nil
}

// DeleteByUser removes every qualification owned by a user.
func (r *QualificationRepository) DeleteByUser(ctx context.Context, userID int64) error {
	const query = `DELETE FROM qualifications WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete user qualifications: %w", err)
	}
	return nil
}
