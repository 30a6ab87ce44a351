package models

import "time"

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

// Order lifecycle states. pending and paid are transient, completed and
// cancelled are terminal.
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a student's booking of a course. The amount is a snapshot of the
// course price at booking time and is never re-read from the course.
type Order struct {
	ID                 int64       `db:"id" json:"id"`
	CourseID           int64       `db:"course_id" json:"course_id"`
	StudentID          int64       `db:"student_id" json:"student_id"`
	Amount             float64     `db:"amount" json:"amount"`
	Status             OrderStatus `db:"status" json:"status"`
	BookingTime        time.Time   `db:"booking_time" json:"booking_time"`
	PaymentTime        *time.Time  `db:"payment_time" json:"payment_time,omitempty"`
	CompletionTime     *time.Time  `db:"completion_time" json:"completion_time,omitempty"`
	CancellationTime   *time.Time  `db:"cancellation_time" json:"cancellation_time,omitempty"`
	CancellationReason string      `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	Remark             string      `db:"remark" json:"remark,omitempty"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether no further transition may leave the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// OrderDetail enriches Order with course context and the attached review.
type OrderDetail struct {
	Order
	CourseTitle string  `db:"course_title" json:"course_title"`
	CourseCover string  `db:"course_cover" json:"course_cover,omitempty"`
	TeacherName string  `db:"teacher_name" json:"teacher_name"`
	HasReview   bool    `db:"-" json:"has_review"`
	Review      *Review `db:"-" json:"review,omitempty"`
}

// OrderFilter provides filters for listing orders.
type OrderFilter struct {
	StudentID int64
	TeacherID int64
	Status    OrderStatus
	Keyword   string
	Page      int
	PageSize  int
}
