package models

import "time"

// Review is a student's rating of a completed order. At most one review may
// exist per order.
type Review struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	StudentID int64     `db:"student_id" json:"student_id"`
	Rating    int       `db:"rating" json:"rating"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReviewDetail enriches Review with course and student context.
type ReviewDetail struct {
	Review
	CourseTitle string `db:"course_title" json:"course_title"`
	StudentName string `db:"student_name" json:"student_name"`
}

// ReviewFilter provides filters for listing reviews.
type ReviewFilter struct {
	CourseID  int64
	StudentID int64
	Page      int
	PageSize  int
}
