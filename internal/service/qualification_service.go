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

type qualificationRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Qualification, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Qualification, error)
	ListByUserAndStatus(ctx context.Context, userID int64, status models.QualificationStatus) ([]models.Qualification, error)
	ListByStatus(ctx context.Context, status models.QualificationStatus) ([]models.Qualification, error)
	ListReviewed(ctx context.Context) ([]models.Qualification, error)
	Create(ctx context.Context, qualification *models.Qualification) error
	UpdateReview(ctx context.Context, id int64, status models.QualificationStatus, comment string, reviewedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

type qualificationUserReader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type qualificationTeacherReader interface {
	FindByUserID(ctx context.Context, userID int64) (*models.Teacher, error)
}

// SubmitQualificationRequest submits a credential document for moderation.
type SubmitQualificationRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Type        string `json:"type" validate:"required,oneof=education teaching professional language other"`
	Issuer      string `json:"issuer" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	FileURL     string `json:"file_url" validate:"omitempty,url"`
}

// ReviewQualificationRequest records a moderation decision.
type ReviewQualificationRequest struct {
	Status  string `json:"status" validate:"required,oneof=approved rejected"`
	Comment string `json:"comment" validate:"max=2000"`
}

// BatchReviewResult carries the per-item outcome of a batch moderation call.
// Exactly one of Qualification and Error is set.
type BatchReviewResult struct {
	Qualification *models.Qualification `json:"qualification,omitempty"`
	Error         string                `json:"error,omitempty"`
}

// QualificationService runs the credential moderation workflow: teachers
// submit documents, admins approve or reject them, and the approved set is
// projected into a composite teacher profile on demand.
type QualificationService struct {
	repo      qualificationRepository
	users     qualificationUserReader
	teachers  qualificationTeacherReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQualificationService constructs QualificationService.
func NewQualificationService(repo qualificationRepository, users qualificationUserReader, teachers qualificationTeacherReader, validate *validator.Validate, logger *zap.Logger) *QualificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QualificationService{repo: repo, users: users, teachers: teachers, validator: validate, logger: logger}
}

// Submit files a new qualification in pending status. A rejected credential
// cannot be reopened; its owner submits a fresh record instead.
func (s *QualificationService) Submit(ctx context.Context, userID int64, req SubmitQualificationRequest) (*models.Qualification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid qualification payload")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	qualification := &models.Qualification{
		UserID:      userID,
		Name:        req.Name,
		Type:        models.QualificationType(req.Type),
		Issuer:      req.Issuer,
		Description: req.Description,
		FileURL:     req.FileURL,
		Status:      models.QualificationStatusPending,
	}
	if err := s.repo.Create(ctx, qualification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit qualification")
	}
	return qualification, nil
}

// Get returns a qualification by ID.
func (s *QualificationService) Get(ctx context.Context, id int64) (*models.Qualification, error) {
	qualification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "qualification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualification")
	}
	return qualification, nil
}

// ListByUser returns a user's qualifications, optionally filtered by status.
func (s *QualificationService) ListByUser(ctx context.Context, userID int64, status string) ([]models.Qualification, error) {
	var (
		qualifications []models.Qualification
		err            error
	)
	if status != "" {
		qualifications, err = s.repo.ListByUserAndStatus(ctx, userID, models.QualificationStatus(status))
	} else {
		qualifications, err = s.repo.ListByUser(ctx, userID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list qualifications")
	}
	return qualifications, nil
}

// ListPending returns the moderation queue.
func (s *QualificationService) ListPending(ctx context.Context) ([]models.Qualification, error) {
	qualifications, err := s.repo.ListByStatus(ctx, models.QualificationStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending qualifications")
	}
	return qualifications, nil
}

// ListReviewed returns every qualification a decision was made on.
func (s *QualificationService) ListReviewed(ctx context.Context) ([]models.Qualification, error) {
	qualifications, err := s.repo.ListReviewed(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviewed qualifications")
	}
	return qualifications, nil
}

// Review records an approve/reject decision on a qualification. Re-reviewing
// overwrites the previous decision.
func (s *QualificationService) Review(ctx context.Context, id int64, req ReviewQualificationRequest) (*models.Qualification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateReview(ctx, id, models.QualificationStatus(req.Status), req.Comment, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review qualification")
	}
	return s.Get(ctx, id)
}

// BatchReview applies moderation decisions independently per qualification.
// A failing item never rolls back its siblings; each key in the result maps
// to either the updated record or the failure message.
func (s *QualificationService) BatchReview(ctx context.Context, decisions map[int64]ReviewQualificationRequest) map[int64]BatchReviewResult {
	results := make(map[int64]BatchReviewResult, len(decisions))
	for id, decision := range decisions {
		qualification, err := s.Review(ctx, id, decision)
		if err != nil {
			s.logger.Warn("batch review item failed", zap.Int64("qualification_id", id), zap.Error(err))
			results[id] = BatchReviewResult{Error: appErrors.FromError(err).Message}
			continue
		}
		results[id] = BatchReviewResult{Qualification: qualification}
	}
	return results
}

// Delete removes a qualification. Only the owner may delete, and an approved
// credential is immutable once it feeds the composite profile.
func (s *QualificationService) Delete(ctx context.Context, id, userID int64) error {
	qualification, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if qualification.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "you can only delete your own qualifications")
	}
	if qualification.Status == models.QualificationStatusApproved {
		return appErrors.Clone(appErrors.ErrInvalidState, "approved qualifications cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete qualification")
	}
	return nil
}

// TeacherQualifications derives the composite profile of a teacher from the
// approved credential set. It is recomputed on every call and never stored:
// the first approved teaching credential becomes the teaching certificate,
// the first approved education credential fills education and major (falling
// back to the teacher record), and the remaining approved credentials land
// in other certificates.
func (s *QualificationService) TeacherQualifications(ctx context.Context, userID int64) (*models.TeacherQualifications, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	qualifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list qualifications")
	}

	profile := &models.TeacherQualifications{
		TeacherName:       user.FullName,
		OtherCertificates: []string{},
		Qualifications:    qualifications,
	}

	for _, q := range qualifications {
		if q.Status != models.QualificationStatusApproved {
			continue
		}
		switch q.Type {
		case models.QualificationTypeTeaching:
			if profile.TeachingCertificate == "" {
				profile.TeachingCertificate = q.Name
			}
		case models.QualificationTypeEducation:
			if profile.Education == "" {
				profile.Education = q.Name
				profile.Major = q.Description
			}
		default:
			profile.OtherCertificates = append(profile.OtherCertificates, q.Name)
		}
	}

	teacher, err := s.teachers.FindByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
	} else {
		profile.TeacherID = teacher.ID
		if profile.Education == "" {
			profile.Education = teacher.Education
		}
		if profile.Major == "" {
			profile.Major = teacher.Major
		}
	}

	return profile, nil
}
