package models

import "time"

// CourseStatus represents the publication state of a course.
type CourseStatus string

// Possible course statuses.
const (
	CourseStatusPending  CourseStatus = "pending"
	CourseStatusApproved CourseStatus = "approved"
	CourseStatusRejected CourseStatus = "rejected"
)

// DefaultCourseRating is assigned to a course before any review lands.
const DefaultCourseRating = 5.0

// Course is a tutoring offer published by a teacher.
type Course struct {
	ID           int64        `db:"id" json:"id"`
	TeacherID    int64        `db:"teacher_id" json:"teacher_id"`
	Title        string       `db:"title" json:"title"`
	Category     string       `db:"category" json:"category"`
	Duration     int          `db:"duration" json:"duration"`
	Price        float64      `db:"price" json:"price"`
	Description  string       `db:"description" json:"description"`
	Cover        string       `db:"cover" json:"cover,omitempty"`
	Status       CourseStatus `db:"status" json:"status"`
	Rating       float64      `db:"rating" json:"rating"`
	StudentCount int          `db:"student_count" json:"student_count"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches Course with the owning teacher's name.
type CourseDetail struct {
	Course
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	TeacherID int64
	Category  string
	Keyword   string
	Status    CourseStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
