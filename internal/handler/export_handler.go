package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edulink/tutor-market-api/internal/models"
	"github.com/edulink/tutor-market-api/internal/service"
	"github.com/edulink/tutor-market-api/pkg/response"
)

// ExportHandler exposes admin report downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// OrdersCSV godoc
// @Summary Download the order book as CSV
// @Tags Exports
// @Produce text/csv
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Success 200 {file} file
// @Router /exports/orders [get]
func (h *ExportHandler) OrdersCSV(c *gin.Context) {
	payload, err := h.exports.OrdersCSV(c.Request.Context(), models.OrderStatus(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("orders-%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

// QualificationReport godoc
// @Summary Download the qualification review report as PDF
// @Tags Exports
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {file} file
// @Router /exports/qualifications [get]
func (h *ExportHandler) QualificationReport(c *gin.Context) {
	payload, err := h.exports.QualificationReportPDF(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("qualification-report-%s.pdf", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}
