package models

import "time"

// TeacherStatus marks whether a teacher is accepting students.
type TeacherStatus string

// Possible teacher statuses.
const (
	TeacherStatusActive   TeacherStatus = "active"
	TeacherStatusInactive TeacherStatus = "inactive"
)

// Teacher is a directory record linking a TEACHER user to tutoring metadata.
// Education and Major act as fallbacks for the qualification-derived profile.
type Teacher struct {
	ID         int64         `db:"id" json:"id"`
	UserID     int64         `db:"user_id" json:"user_id"`
	Education  string        `db:"education" json:"education,omitempty"`
	Major      string        `db:"major" json:"major,omitempty"`
	Experience int           `db:"experience" json:"experience"`
	Subjects   string        `db:"subjects" json:"-"`
	Status     TeacherStatus `db:"status" json:"status"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// TeacherDetail enriches Teacher with user identity fields.
type TeacherDetail struct {
	Teacher
	Name     string   `db:"full_name" json:"name"`
	Email    string   `db:"email" json:"email"`
	Phone    string   `db:"phone" json:"phone,omitempty"`
	Subjects []string `db:"-" json:"subjects"`
}

// TeacherFilter provides filters for listing teachers.
type TeacherFilter struct {
	Name     string
	Subject  string
	Status   TeacherStatus
	Page     int
	PageSize int
}
