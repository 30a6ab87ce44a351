package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/edulink/tutor-market-api/internal/models"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
)

type ratingReviewLister interface {
	ListByCourse(ctx context.Context, courseID int64) ([]models.Review, error)
}

type ratingCourseStore interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	UpdateRating(ctx context.Context, id int64, rating float64) error
}

// RatingService derives course ratings from the review set. The review
// repository already folds the recomputation into its own transactions, so
// under normal operation the stored rating never drifts; Recompute exists as
// an admin-triggered resync for data repaired out of band.
type RatingService struct {
	reviews ratingReviewLister
	courses ratingCourseStore
	logger  *zap.Logger
}

// NewRatingService constructs RatingService.
func NewRatingService(reviews ratingReviewLister, courses ratingCourseStore, logger *zap.Logger) *RatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{reviews: reviews, courses: courses, logger: logger}
}

// Average computes the arithmetic mean of review ratings. The second return
// is false when the set is empty, in which case the stored rating must be
// left untouched.
func Average(reviews []models.Review) (float64, bool) {
	if len(reviews) == 0 {
		return 0, false
	}
	var sum int
	for _, review := range reviews {
		sum += review.Rating
	}
	return float64(sum) / float64(len(reviews)), true
}

// Recompute recalculates a course's rating from its current review set and
// persists it. An empty review set keeps the last stored value.
func (s *RatingService) Recompute(ctx context.Context, courseID int64) (float64, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	reviews, err := s.reviews.ListByCourse(ctx, courseID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course reviews")
	}

	rating, ok := Average(reviews)
	if !ok {
		return course.Rating, nil
	}
	if err := s.courses.UpdateRating(ctx, courseID, rating); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course rating")
	}
	s.logger.Info("course rating recomputed",
		zap.Int64("course_id", courseID),
		zap.Float64("rating", rating),
		zap.Int("review_count", len(reviews)))
	return rating, nil
}
