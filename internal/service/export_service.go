package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edulink/tutor-market-api/internal/models"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
	"github.com/edulink/tutor-market-api/pkg/export"
)

type exportOrderLister interface {
	List(ctx context.Context, filter models.OrderFilter) ([]models.OrderDetail, int, error)
}

type exportQualificationLister interface {
	ListReviewed(ctx context.Context) ([]models.Qualification, error)
}

// exportPageSize bounds a single export query.
const exportPageSize = 1000

// ExportService produces admin-facing CSV and PDF reports.
type ExportService struct {
	orders         exportOrderLister
	qualifications exportQualificationLister
	csv            *export.CSVExporter
	pdf            *export.PDFExporter
	logger         *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(orders exportOrderLister, qualifications exportQualificationLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		orders:         orders,
		qualifications: qualifications,
		csv:            export.NewCSVExporter(),
		pdf:            export.NewPDFExporter(),
		logger:         logger,
	}
}

// OrdersCSV renders the order book, optionally filtered by status, as CSV.
func (s *ExportService) OrdersCSV(ctx context.Context, status models.OrderStatus) ([]byte, error) {
	filter := models.OrderFilter{Status: status, Page: 1, PageSize: exportPageSize}
	orders, _, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load orders for export")
	}

	data := export.Dataset{
		Headers: []string{"ID", "Course", "Student", "Teacher", "Amount", "Status", "Booked At", "Created At"},
	}
	for _, order := range orders {
		data.Rows = append(data.Rows, map[string]string{
			"ID":         strconv.FormatInt(order.ID, 10),
			"Course":     order.CourseTitle,
			"Student":    strconv.FormatInt(order.StudentID, 10),
			"Teacher":    order.TeacherName,
			"Amount":     fmt.Sprintf("%.2f", order.Amount),
			"Status":     string(order.Status),
			"Booked At":  order.BookingTime.Format(time.RFC3339),
			"Created At": order.CreatedAt.Format(time.RFC3339),
		})
	}

	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render orders csv")
	}
	s.logger.Info("orders exported", zap.Int("rows", len(data.Rows)))
	return payload, nil
}

// QualificationReportPDF renders every moderation decision as a PDF report.
func (s *ExportService) QualificationReportPDF(ctx context.Context) ([]byte, error) {
	qualifications, err := s.qualifications.ListReviewed(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualifications for export")
	}

	data := export.Dataset{
		Headers: []string{"ID", "User", "Name", "Type", "Status", "Comment", "Reviewed At"},
	}
	for _, q := range qualifications {
		reviewedAt := ""
		if q.ReviewDate != nil {
			reviewedAt = q.ReviewDate.Format(time.RFC3339)
		}
		data.Rows = append(data.Rows, map[string]string{
			"ID":          strconv.FormatInt(q.ID, 10),
			"User":        strconv.FormatInt(q.UserID, 10),
			"Name":        q.Name,
			"Type":        string(q.Type),
			"Status":      string(q.Status),
			"Comment":     q.ReviewComment,
			"Reviewed At": reviewedAt,
		})
	}

	payload, err := s.pdf.Render(data, "Qualification Review Report")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qualification report")
	}
	s.logger.Info("qualification report exported", zap.Int("rows", len(data.Rows)))
	return payload, nil
}
