package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edulink/tutor-market-api/internal/service"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
	"github.com/edulink/tutor-market-api/pkg/response"
)

// QualificationHandler exposes credential moderation endpoints.
type QualificationHandler struct {
	qualifications *service.QualificationService
}

// NewQualificationHandler constructs handler.
func NewQualificationHandler(qualifications *service.QualificationService) *QualificationHandler {
	return &QualificationHandler{qualifications: qualifications}
}

// Submit godoc
// @Summary Submit a credential for moderation
// @Tags Qualifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SubmitQualificationRequest true "Qualification payload"
// @Success 201 {object} response.Envelope
// @Router /qualifications [post]
func (h *QualificationHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SubmitQualificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	qualification, err := h.qualifications.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, qualification)
}

// Mine godoc
// @Summary List the caller's qualifications
// @Tags Qualifications
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /qualifications/mine [get]
func (h *QualificationHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	qualifications, err := h.qualifications.ListByUser(c.Request.Context(), claims.UserID, c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qualifications, nil)
}

// Pending godoc
// @Summary List the moderation queue
// @Tags Qualifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /qualifications/pending [get]
func (h *QualificationHandler) Pending(c *gin.Context) {
	qualifications, err := h.qualifications.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qualifications, nil)
}

// Reviewed godoc
// @Summary List reviewed qualifications
// @Tags Qualifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /qualifications/reviewed [get]
func (h *QualificationHandler) Reviewed(c *gin.Context) {
	qualifications, err := h.qualifications.ListReviewed(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qualifications, nil)
}

// Review godoc
// @Summary Approve or reject a qualification
// @Tags Qualifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Qualification ID"
// @Param payload body service.ReviewQualificationRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /qualifications/{id}/review [post]
func (h *QualificationHandler) Review(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid qualification id"))
		return
	}
	var req service.ReviewQualificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	qualification, err := h.qualifications.Review(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qualification, nil)
}

// BatchReview godoc
// @Summary Apply moderation decisions in bulk
// @Tags Qualifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body map[int64]service.ReviewQualificationRequest true "Decisions keyed by qualification ID"
// @Success 200 {object} response.Envelope
// @Router /qualifications/batch-review [post]
func (h *QualificationHandler) BatchReview(c *gin.Context) {
	var decisions map[int64]service.ReviewQualificationRequest
	if err := c.ShouldBindJSON(&decisions); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if len(decisions) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "no decisions provided"))
		return
	}
	results := h.qualifications.BatchReview(c.Request.Context(), decisions)
	response.JSON(c, http.StatusOK, results, nil)
}

// Delete godoc
// @Summary Delete an own, non-approved qualification
// @Tags Qualifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Qualification ID"
// @Success 204
// @Router /qualifications/{id} [delete]
func (h *QualificationHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid qualification id"))
		return
	}
	if err := h.qualifications.Delete(c.Request.Context(), id, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
