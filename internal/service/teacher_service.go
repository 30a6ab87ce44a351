package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edulink/tutor-market-api/internal/models"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
)

type teacherRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
	FindDetailByID(ctx context.Context, id int64) (*models.TeacherDetail, error)
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id int64) error
}

type teacherUserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
}

type teacherCourseCounter interface {
	CountByTeacher(ctx context.Context, teacherID int64) (int, error)
}

type teacherQualificationCleaner interface {
	DeleteByUser(ctx context.Context, userID int64) error
}

type qualificationDeriver interface {
	TeacherQualifications(ctx context.Context, userID int64) (*models.TeacherQualifications, error)
}

// CreateTeacherRequest provisions a teacher and its backing user account.
type CreateTeacherRequest struct {
	Email      string   `json:"email" validate:"required,email"`
	FullName   string   `json:"full_name" validate:"required,max=100"`
	Phone      string   `json:"phone" validate:"max=30"`
	Password   string   `json:"password" validate:"omitempty,min=8"`
	Education  string   `json:"education" validate:"max=200"`
	Major      string   `json:"major" validate:"max=200"`
	Experience int      `json:"experience" validate:"min=0"`
	Subjects   []string `json:"subjects" validate:"max=20,dive,max=50"`
}

// UpdateTeacherRequest rewrites a teacher's directory entry.
type UpdateTeacherRequest struct {
	FullName   string   `json:"full_name" validate:"required,max=100"`
	Phone      string   `json:"phone" validate:"max=30"`
	Education  string   `json:"education" validate:"max=200"`
	Major      string   `json:"major" validate:"max=200"`
	Experience int      `json:"experience" validate:"min=0"`
	Subjects   []string `json:"subjects" validate:"max=20,dive,max=50"`
	Status     string   `json:"status" validate:"omitempty,oneof=active inactive"`
}

// defaultTeacherPassword is assigned to admin-provisioned accounts until the
// teacher changes it on first login.
const defaultTeacherPassword = "changeme123"

// TeacherService manages the teacher directory. Teachers are provisioned by
// admins together with their user account; the composite qualification
// profile is delegated to the moderation workflow.
type TeacherService struct {
	repo           teacherRepository
	users          teacherUserStore
	courses        teacherCourseCounter
	qualifications teacherQualificationCleaner
	deriver        qualificationDeriver
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewTeacherService constructs TeacherService.
func NewTeacherService(repo teacherRepository, users teacherUserStore, courses teacherCourseCounter, qualifications teacherQualificationCleaner, deriver qualificationDeriver, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{
		repo:           repo,
		users:          users,
		courses:        courses,
		qualifications: qualifications,
		deriver:        deriver,
		validator:      validate,
		logger:         logger,
	}
}

// List returns directory entries with pagination.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	for i := range teachers {
		teachers[i].Subjects = splitSubjects(teachers[i].Teacher.Subjects)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return teachers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a directory entry.
func (s *TeacherService) Get(ctx context.Context, id int64) (*models.TeacherDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	detail.Subjects = splitSubjects(detail.Teacher.Subjects)
	return detail, nil
}

// Create provisions a teacher account and its directory entry.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.TeacherDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	taken, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate teacher email")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	}

	password := req.Password
	if password == "" {
		password = defaultTeacherPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         models.RoleTeacher,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher account")
	}

	teacher := &models.Teacher{
		UserID:     user.ID,
		Education:  req.Education,
		Major:      req.Major,
		Experience: req.Experience,
		Subjects:   joinSubjects(req.Subjects),
		Status:     models.TeacherStatusActive,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.logger.Info("teacher provisioned", zap.Int64("teacher_id", teacher.ID), zap.Int64("user_id", user.ID))
	return s.Get(ctx, teacher.ID)
}

// Update rewrites a directory entry and the linked user's identity fields.
func (s *TeacherService) Update(ctx context.Context, id int64, req UpdateTeacherRequest) (*models.TeacherDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, teacher.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher account")
	}
	user.FullName = req.FullName
	user.Phone = req.Phone
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher account")
	}

	teacher.Education = req.Education
	teacher.Major = req.Major
	teacher.Experience = req.Experience
	teacher.Subjects = joinSubjects(req.Subjects)
	if req.Status != "" {
		teacher.Status = models.TeacherStatus(req.Status)
	}
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return s.Get(ctx, id)
}

// Delete removes a teacher, their qualifications and their user account.
// Blocked while the teacher still owns courses.
func (s *TeacherService) Delete(ctx context.Context, id int64) error {
	teacher, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	courseCount, err := s.courses.CountByTeacher(ctx, teacher.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher courses")
	}
	if courseCount > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "teacher still owns courses and cannot be deleted")
	}
	if err := s.qualifications.DeleteByUser(ctx, teacher.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher qualifications")
	}
	if err := s.repo.Delete(ctx, teacher.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	if err := s.users.Delete(ctx, teacher.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher account")
	}
	s.logger.Info("teacher deleted", zap.Int64("teacher_id", teacher.ID), zap.Int64("user_id", teacher.UserID))
	return nil
}

// Qualifications returns the composite profile derived from the teacher's
// approved credentials.
func (s *TeacherService) Qualifications(ctx context.Context, id int64) (*models.TeacherQualifications, error) {
	teacher, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := s.deriver.TeacherQualifications(ctx, teacher.UserID)
	if err != nil {
		return nil, err
	}
	profile.TeacherID = teacher.ID
	return profile, nil
}

func (s *TeacherService) load(ctx context.Context, id int64) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func joinSubjects(subjects []string) string {
	cleaned := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		subject = strings.TrimSpace(subject)
		if subject != "" {
			cleaned = append(cleaned, subject)
		}
	}
	return strings.Join(cleaned, ",")
}

func splitSubjects(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	subjects := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			subjects = append(subjects, part)
		}
	}
	return subjects
}
